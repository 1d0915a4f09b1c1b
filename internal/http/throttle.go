package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const throttleIdleExpiry = 10 * time.Minute

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle limits mutating requests per client IP. Reads are never limited.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*throttleEntry
	rate     rate.Limit
	burst    int
	log      logrus.FieldLogger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a throttle allowing perSecond mutating requests per
// client with the given burst, and starts its cleanup goroutine.
func NewThrottle(perSecond float64, burst int, log logrus.FieldLogger) *Throttle {
	if burst < 1 {
		burst = 1
	}
	t := &Throttle{
		limiters: make(map[string]*throttleEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		log:      log,
		stopCh:   make(chan struct{}),
	}
	go t.cleanupLoop()
	return t
}

// Stop ends the cleanup goroutine.
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

func (t *Throttle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Handler returns the gin middleware.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !t.limiter(ip).Allow() {
			t.log.WithFields(logrus.Fields{
				"ip":     ip,
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("Request throttled")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

func (t *Throttle) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.cleanup(time.Now())
		case <-t.stopCh:
			return
		}
	}
}

func (t *Throttle) cleanup(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > throttleIdleExpiry {
			delete(t.limiters, key)
		}
	}
}
