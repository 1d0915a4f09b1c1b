package auth

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/entities"
)

// SessionCookieName names the browser cookie holding the session token.
const SessionCookieName = "plibrary_session"

const (
	sessionKeyUserID   = "user_id"
	sessionKeySignedIn = "signed_in_at"
)

const sessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

// SessionManager keeps browser sign-ins in the sessions table of the
// catalog database. A session holds the user id only; the gate reloads the
// user on every request so role changes apply at once.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates the sessions table when missing. sqlDB is the
// handle underneath gorm.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	if _, err := sqlDB.Exec(sessionsSchema); err != nil {
		return nil, err
	}

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = config.DefaultSessionLifetime
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2
	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// SignIn binds the session to user under a fresh token.
func (sm *SessionManager) SignIn(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	// Stored as int so GetInt can read it back
	sm.Put(ctx, sessionKeyUserID, int(user.ID))
	sm.Put(ctx, sessionKeySignedIn, time.Now().Unix())
	return nil
}

func (sm *SessionManager) SignOut(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// UserID returns the signed-in user, 0 for anonymous sessions.
func (sm *SessionManager) UserID(ctx context.Context) uint {
	return uint(sm.GetInt(ctx, sessionKeyUserID))
}

// Handler loads the session for the request and saves it afterwards. It
// must run before the gate.
func (sm *SessionManager) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			sm.ErrorFunc(c.Writer, c.Request, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &cookieWriter{ResponseWriter: c.Writer, sessions: sm, ctx: ctx}
		c.Writer = w
		c.Next()

		// Nothing was written, the cookie still has to go out
		w.commit()
	}
}

// cookieWriter saves the session and sets its cookie just before the
// response headers are sent.
type cookieWriter struct {
	gin.ResponseWriter
	sessions  *SessionManager
	ctx       context.Context
	committed bool
}

func (w *cookieWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	switch w.sessions.Status(w.ctx) {
	case scs.Modified:
		token, expiry, err := w.sessions.Commit(w.ctx)
		if err != nil {
			// The sign-in is lost, the user lands on the login page again
			return
		}
		w.sessions.WriteSessionCookie(w.ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sessions.WriteSessionCookie(w.ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *cookieWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}
