package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/entities"
)

// ContextKeyUser holds the *entities.User of an authenticated request.
const ContextKeyUser = "auth_user"

const contextKeyMethod = "auth_method"

// Method is how a request proved who sent it.
type Method string

const (
	MethodSession Method = "session"
	MethodBearer  Method = "bearer"
)

// Pages reachable without signing in
const (
	LoginPath  = "/login"
	LogoutPath = "/logout"
	SetupPath  = "/setup"
)

var publicPaths = map[string]bool{
	LoginPath:      true,
	LogoutPath:     true,
	SetupPath:      true,
	"/health":      true,
	"/ping":        true,
	"/metrics":     true,
	"/favicon.ico": true,
}

const editorsOnlyMessage = "Your account can browse the catalog but not change it."

// Gate admits a request only when it carries a bearer token or a signed-in
// session. The route handler never runs otherwise: browsers are sent to the
// login page, API clients get 401.
type Gate struct {
	service  *Service
	sessions *SessionManager
	log      logrus.FieldLogger
}

func NewGate(service *Service, sessions *SessionManager, log logrus.FieldLogger) *Gate {
	return &Gate{
		service:  service,
		sessions: sessions,
		log:      log,
	}
}

func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}

		if user := g.fromBearer(c); user != nil {
			admit(c, user, MethodBearer)
			return
		}
		if user := g.fromSession(c); user != nil {
			admit(c, user, MethodSession)
			return
		}

		if wantsJSON(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Redirect(http.StatusFound, LoginRedirectURL(c.Request.URL))
		c.Abort()
	}
}

func admit(c *gin.Context, user *entities.User, method Method) {
	c.Set(ContextKeyUser, user)
	c.Set(contextKeyMethod, method)
	c.Next()
}

// LoginRedirectURL sends the browser to the login page, remembering where
// it was going.
func LoginRedirectURL(u *url.URL) string {
	return LoginPath + "?next=" + url.QueryEscape(u.RequestURI())
}

func (g *Gate) fromBearer(c *gin.Context) *entities.User {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return nil
	}

	user, err := g.service.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		g.log.WithError(err).WithField("path", c.Request.URL.Path).Debug("Bearer token rejected")
		return nil
	}
	return user
}

func (g *Gate) fromSession(c *gin.Context) *entities.User {
	if g.sessions == nil {
		return nil
	}

	userID := g.sessions.UserID(c.Request.Context())
	if userID == 0 {
		return nil
	}

	user, err := g.service.GetUserByID(userID)
	if err != nil {
		// Deleted users keep stale cookies around
		g.log.WithError(err).WithField("user_id", userID).Debug("Session user lookup failed")
		return nil
	}
	return user
}

// RequireRole admits only the listed roles.
func (g *Gate) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	allowed := make(map[entities.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		if user := CurrentUser(c); user == nil || !allowed[user.Role] {
			forbid(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireEditor guards the pages and actions that change the catalog.
func (g *Gate) RequireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := CurrentUser(c); user == nil || !user.Role.CanEditCatalog() {
			forbid(c, editorsOnlyMessage)
			return
		}
		c.Next()
	}
}

func forbid(c *gin.Context, message string) {
	if wantsJSON(c.Request) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
		return
	}
	c.String(http.StatusForbidden, message)
	c.Abort()
}

// CurrentUser returns the authenticated user, nil on public paths.
func CurrentUser(c *gin.Context) *entities.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID returns the authenticated user's id, 0 on public paths.
func GetUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

func authenticatedWith(c *gin.Context) Method {
	method, _ := c.Get(contextKeyMethod)
	m, _ := method.(Method)
	return m
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

// wantsJSON tells API clients from browsers. Any Authorization header
// counts, valid or not.
func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("Authorization") != ""
}
