package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/plibrary/internal/config"
)

const loginGuardSweepInterval = 5 * time.Minute

// loginGuard slows password guessing per client IP and login name. Every
// key gets a bucket of MaxLoginAttempts failures refilling over the window;
// the failure that empties it locks the key out. State is in memory only;
// the per-account lockout lives in the users table.
type loginGuard struct {
	mu       sync.Mutex
	entries  map[string]*guardEntry
	refill   rate.Limit
	attempts int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type guardEntry struct {
	bucket      *rate.Limiter
	lastFailure time.Time
	lockedUntil time.Time
}

func newLoginGuard(cfg config.Auth) *loginGuard {
	attempts := cfg.MaxLoginAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxLoginAttempts
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = config.DefaultLoginWindow
	}
	lockout := cfg.LockoutDuration
	if lockout <= 0 {
		lockout = config.DefaultLockoutDuration
	}

	g := &loginGuard{
		entries:  make(map[string]*guardEntry),
		refill:   rate.Every(window / time.Duration(attempts)),
		attempts: attempts,
		window:   window,
		lockout:  lockout,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go g.sweepLoop()
	return g
}

func guardKey(ip, login string) string {
	return ip + "|" + strings.ToLower(strings.TrimSpace(login))
}

// allow reports whether a sign-in may be attempted and, if not, how long
// the client has to wait.
func (g *loginGuard) allow(ip, login string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[guardKey(ip, login)]
	if !ok {
		return true, 0
	}
	if wait := entry.lockedUntil.Sub(g.now()); wait > 0 {
		return false, wait
	}
	return true, 0
}

// fail spends one attempt and reports whether the key is now locked out.
func (g *loginGuard) fail(ip, login string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	key := guardKey(ip, login)
	entry, ok := g.entries[key]
	if !ok {
		entry = &guardEntry{bucket: rate.NewLimiter(g.refill, g.attempts)}
		g.entries[key] = entry
	}
	entry.lastFailure = now

	entry.bucket.AllowN(now, 1)
	if entry.bucket.TokensAt(now) >= 1 {
		return false
	}

	// Start over with a full bucket once the lockout ends
	entry.lockedUntil = now.Add(g.lockout)
	entry.bucket = rate.NewLimiter(g.refill, g.attempts)
	return true
}

// succeed forgets the key after a successful sign-in.
func (g *loginGuard) succeed(ip, login string) {
	g.mu.Lock()
	delete(g.entries, guardKey(ip, login))
	g.mu.Unlock()
}

func (g *loginGuard) sweepLoop() {
	ticker := time.NewTicker(loginGuardSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep()
		case <-g.stop:
			return
		}
	}
}

// sweep drops keys that are neither locked nor failed within the window.
func (g *loginGuard) sweep() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, entry := range g.entries {
		if now.After(entry.lockedUntil) && now.Sub(entry.lastFailure) > g.window {
			delete(g.entries, key)
		}
	}
}

func (g *loginGuard) close() {
	g.stopOnce.Do(func() { close(g.stop) })
}
