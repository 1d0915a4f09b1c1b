package auth

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/entities"
)

// Audit actions emitted by the sign-in pages
const (
	ActionLogin       = "login"
	ActionLoginFailed = "login_failed"
	ActionLogout      = "logout"
	ActionSetup       = "setup"
)

const (
	msgBadCredentials = "Invalid username or password"
	msgLocked         = "Account is locked. Please try again later."
	msgTooManyTries   = "Too many login attempts. Please try again later."
	msgSessionFailed  = "Failed to create session"
	msgDatabase       = "Database error. Please try again."
)

// setupMessages maps account errors to what the setup page tells the user.
var setupMessages = []struct {
	err error
	msg string
}{
	{ErrPasswordRequired, "Password is required"},
	{ErrPasswordTooShort, "Password must be at least 12 characters"},
	{ErrPasswordTooLong, "Password exceeds maximum length of 72 characters"},
	{ErrUsernameRequired, "Username is required"},
	{ErrUsernameInvalid, "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"},
	{ErrEmailRequired, "Email is required"},
	{ErrEmailInvalid, "Invalid email format"},
}

// EventRecorder receives sign-in events for the audit trail.
type EventRecorder interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// authPage is the data of the login and setup templates.
type authPage struct {
	Title     string `json:"title"`
	Next      string `json:"next,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Error     string `json:"error,omitempty"`
	CSRFToken string `json:"-"`
}

// AuthController serves the login, logout and first-administrator pages.
type AuthController struct {
	service   *Service
	sessions  *SessionManager
	templates *template.Template
	guard     *loginGuard
	recorder  EventRecorder
	log       logrus.FieldLogger

	// Only one first administrator may be created
	setupMu sync.Mutex
}

// NewAuthController loads the templates under templatesPath/auth. Without
// them the pages answer with JSON. recorder may be nil.
func NewAuthController(service *Service, sessions *SessionManager, templatesPath string, cfg config.Auth, recorder EventRecorder, log logrus.FieldLogger) *AuthController {
	pattern := filepath.Join(templatesPath, "auth", "*.html")
	tmpl, err := template.ParseGlob(pattern)
	if err != nil {
		log.WithError(err).WithField("pattern", pattern).Warn("Auth templates not loaded")
		tmpl = nil
	}

	return &AuthController{
		service:   service,
		sessions:  sessions,
		templates: tmpl,
		guard:     newLoginGuard(cfg),
		recorder:  recorder,
		log:       log,
	}
}

func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET(LoginPath, ac.LoginPage)
	router.POST(LoginPath, ac.Login)
	router.POST(LogoutPath, ac.Logout)
	router.GET(SetupPath, ac.SetupPage)
	router.POST(SetupPath, ac.Setup)
}

// Stop ends the login guard's cleanup goroutine.
func (ac *AuthController) Stop() {
	ac.guard.close()
}

// LoginPage handles GET /login
func (ac *AuthController) LoginPage(c *gin.Context) {
	next := localPath(c.Query("next"))
	if ac.sessions.UserID(c.Request.Context()) != 0 {
		c.Redirect(http.StatusFound, next)
		return
	}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.log.WithError(err).Error("Failed to count users")
	} else if !hasUsers {
		c.Redirect(http.StatusFound, SetupPath)
		return
	}

	ac.show(c, "login.html", authPage{Title: "Login", Next: next, Error: c.Query("error")})
}

// Login handles POST /login
func (ac *AuthController) Login(c *gin.Context) {
	login := c.PostForm("username")
	page := authPage{Title: "Login", Next: localPath(c.PostForm("next")), Username: login}
	ip := c.ClientIP()

	if ok, wait := ac.guard.allow(ip, login); !ok {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		page.Error = msgTooManyTries
		ac.show(c, "login.html", page)
		return
	}

	user, err := ac.service.Authenticate(login, c.PostForm("password"))
	if err != nil {
		locked := ac.guard.fail(ip, login)
		ac.log.WithError(err).WithFields(logrus.Fields{
			"username":  login,
			"client_ip": ip,
			"locked":    locked,
		}).Info("Login failed")
		ac.record(c, 0, ActionLoginFailed, false)

		page.Error = msgBadCredentials
		if errors.Is(err, ErrAccountLocked) {
			page.Error = msgLocked
		}
		ac.show(c, "login.html", page)
		return
	}
	ac.guard.succeed(ip, login)

	if err := ac.sessions.SignIn(c.Request.Context(), user); err != nil {
		ac.log.WithError(err).WithField("user_id", user.ID).Error("Failed to create session")
		page.Error = msgSessionFailed
		ac.show(c, "login.html", page)
		return
	}

	ac.log.WithField("user_id", user.ID).Info("User logged in")
	ac.record(c, user.ID, ActionLogin, true)
	c.Redirect(http.StatusFound, page.Next)
}

// Logout handles POST /logout
func (ac *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if userID := ac.sessions.UserID(ctx); userID != 0 {
		ac.record(c, userID, ActionLogout, true)
	}
	if err := ac.sessions.SignOut(ctx); err != nil {
		ac.log.WithError(err).Warn("Failed to destroy session")
	}
	c.Redirect(http.StatusFound, LoginPath)
}

// SetupPage handles GET /setup. It is only useful while no account exists.
func (ac *AuthController) SetupPage(c *gin.Context) {
	page := authPage{Title: "Initial Setup", Error: c.Query("error")}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.log.WithError(err).Error("Failed to count users")
		page.Error = msgDatabase
		ac.show(c, "setup.html", page)
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	ac.show(c, "setup.html", page)
}

// Setup handles POST /setup, creating the first administrator and signing
// them in.
func (ac *AuthController) Setup(c *gin.Context) {
	ac.setupMu.Lock()
	defer ac.setupMu.Unlock()

	page := authPage{
		Title:    "Initial Setup",
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
	}

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		ac.log.WithError(err).Error("Failed to count users")
		page.Error = msgDatabase
		ac.show(c, "setup.html", page)
		return
	}
	if hasUsers {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	password := c.PostForm("password")
	if password != c.PostForm("confirm_password") {
		page.Error = "Passwords do not match"
		ac.show(c, "setup.html", page)
		return
	}

	user, err := ac.service.CreateUser(page.Username, page.Email, password, entities.UserRoleAdmin)
	if err != nil {
		page.Error = setupMessage(err)
		ac.show(c, "setup.html", page)
		return
	}

	ac.log.WithField("username", user.Username).Info("Initial admin created")
	ac.record(c, user.ID, ActionSetup, true)

	if err := ac.sessions.SignIn(c.Request.Context(), user); err != nil {
		ac.log.WithError(err).Error("Failed to create session")
		c.Redirect(http.StatusFound, LoginPath)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func setupMessage(err error) string {
	for _, m := range setupMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Failed to create user"
}

func (ac *AuthController) record(c *gin.Context, userID uint, action string, success bool) {
	if ac.recorder == nil {
		return
	}
	ac.recorder.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

func (ac *AuthController) show(c *gin.Context, name string, page authPage) {
	page.CSRFToken = GetCSRFToken(c)
	if ac.templates == nil {
		c.JSON(http.StatusOK, page)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, page); err != nil {
		ac.log.WithError(err).WithField("template", name).Error("Failed to render template")
	}
}

// localPath returns p when it points inside this site, "/" otherwise.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") ||
		strings.HasPrefix(p, "//") ||
		strings.Contains(p, "://") ||
		strings.Contains(p, `\`) {
		return "/"
	}
	return p
}
