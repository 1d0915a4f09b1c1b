package http

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/plibrary/internal/analytics"
	"github.com/mrlokans/plibrary/internal/audit"
	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/config"
	auditrepo "github.com/mrlokans/plibrary/internal/database/audit"
	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/database/profiles"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/formset"
	"github.com/mrlokans/plibrary/internal/ledger"
	"github.com/mrlokans/plibrary/internal/logging"
	"github.com/mrlokans/plibrary/internal/metrics"
	"github.com/mrlokans/plibrary/internal/profile"
)

type fullRouter struct {
	router *gin.Engine
	repo   *catalog.Repository
	seed   seeded
	auth   *auth.Service
	events *audit.Service
	editor string
	viewer string
}

func setupFullRouter(t *testing.T, opts ...func(*RouterConfig)) *fullRouter {
	t.Helper()

	db := setupTestDB(t)
	log := logging.Discard()

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	authCfg := config.Auth{
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	authService := auth.NewService(users.NewRepository(db.DB), authCfg, log)
	sessions, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	repo := catalog.NewRepository(db.DB)
	events := audit.NewService(auditrepo.NewRepository(db.DB), log)
	m := metrics.New()
	profileService := profile.NewService(profiles.NewRepository(db.DB), log)

	routerCfg := RouterConfig{
		Catalog:        repo,
		Ledger:         ledger.NewService(repo, events, m, log),
		Formsets:       formset.NewProcessor(repo, config.DefaultFormsetExtra, config.DefaultFormsetMax, log),
		Profiles:       profileService,
		Database:       db,
		Recorder:       events,
		AuditEvents:    events,
		AuthRecorder:   events,
		Metrics:        m,
		AuthService:    authService,
		SessionManager: sessions,
		Gate:           auth.NewGate(authService, sessions, log),
		AuthConfig:     authCfg,
		TemplatesPath:  "../../templates",
		StaticPath:     "../../static",
		Version:        "test",
		Log:            log,
	}
	for _, opt := range opts {
		opt(&routerCfg)
	}

	router, stop := NewRouter(routerCfg)
	t.Cleanup(func() {
		stop()
		events.Wait()
	})

	editor, err := authService.CreateUser("librarian", "librarian@example.com", "correct-horse-battery", entities.UserRoleEditor)
	require.NoError(t, err)
	editorToken, err := authService.GenerateToken(editor.ID)
	require.NoError(t, err)

	viewer, err := authService.CreateUser("reader", "reader@example.com", "correct-horse-staple", entities.UserRoleViewer)
	require.NoError(t, err)
	viewerToken, err := authService.GenerateToken(viewer.ID)
	require.NoError(t, err)

	return &fullRouter{
		router: router,
		repo:   repo,
		seed:   seedCatalog(t, repo, 1),
		auth:   authService,
		events: events,
		editor: editorToken,
		viewer: viewerToken,
	}
}

func (f *fullRouter) do(method, path, token string, values url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if values != nil {
		body = strings.NewReader(values.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, _ := http.NewRequest(method, path, body)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_AnonymousPagesRedirectToLogin(t *testing.T) {
	f := setupFullRouter(t)

	paths := []string{
		"/",
		"/index",
		"/lend_return",
		"/lended",
		"/publishers",
		"/authors/create_many",
		"/books_authors/create_many",
		"/profile/create",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := f.do(http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, auth.LoginPath+"?next="+url.QueryEscape(path), w.Header().Get("Location"))
		})
	}
}

func TestRouter_AnonymousMutationsChangeNothing(t *testing.T) {
	f := setupFullRouter(t)
	id := idString(f.seed.book.ID)

	f.do(http.MethodPost, "/index/book_increment", "", url.Values{"id": {id}})
	f.do(http.MethodPost, "/index/book_decrement", "", url.Values{"id": {id}})
	f.do(http.MethodPost, "/lend_return/do", "", url.Values{"id": {id}, "fid": {idString(f.seed.friend.ID)}})
	f.do(http.MethodPost, "/publishers/create", "", url.Values{"name": {"Penguin"}})

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)
	assert.Nil(t, book.LendedToID)

	publishers, err := f.repo.ListPublishers()
	require.NoError(t, err)
	assert.Empty(t, publishers)
}

func TestRouter_APIRequiresCredentials(t *testing.T) {
	f := setupFullRouter(t)

	w := f.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/books", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/books", f.viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Solaris")
}

func TestRouter_BearerIncrement(t *testing.T) {
	f := setupFullRouter(t)

	w := f.do(http.MethodPost, "/index/book_increment", f.editor, url.Values{"id": {idString(f.seed.book.ID)}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/index", w.Header().Get("Location"))

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.CopyCount)

	f.events.Wait()
	events, total, err := f.events.GetEvents(0, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, entities.AuditEventLedger, events[0].EventType)
}

func TestRouter_RendersPages(t *testing.T) {
	f := setupFullRouter(t)

	tests := []struct {
		path string
		want string
	}{
		{path: "/", want: "Personal library"},
		{path: "/index", want: "Solaris"},
		{path: "/lend_return", want: "Kris"},
		{path: "/lended", want: "Every book is at home."},
		{path: "/publishers", want: "No publishers yet."},
		{path: "/publishers/create", want: `name="name"`},
		{path: "/authors", want: "Stanislaw Lem"},
		{path: "/authors/create", want: `name="birth_year"`},
		{path: "/friends", want: "kris@example.com"},
		{path: "/friends/create", want: `name="contact"`},
		{path: "/authors/create_many", want: `name="authors-TOTAL_FORMS"`},
		{path: "/books_authors/create_many", want: `name="books-0-title"`},
		{path: "/profile/create", want: `name="age"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, f.editor, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Contains(t, w.Body.String(), "librarian")
		})
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	f := setupFullRouter(t)

	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "plibrary_")

	w = f.do(http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="password"`)

	w = f.do(http.MethodGet, "/static/style.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AdminAPIRequiresAdmin(t *testing.T) {
	f := setupFullRouter(t)

	w := f.do(http.MethodGet, "/api/audit", f.viewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := f.auth.CreateUser("keeper", "keeper@example.com", "correct-horse-archive", entities.UserRoleAdmin)
	require.NoError(t, err)
	token, err := f.auth.GenerateToken(admin.ID)
	require.NoError(t, err)

	w = f.do(http.MethodGet, "/api/audit", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ReadOnlyRefusesChanges(t *testing.T) {
	f := setupFullRouter(t, func(cfg *RouterConfig) { cfg.ReadOnly = true })

	w := f.do(http.MethodPost, "/index/book_increment", f.editor, url.Values{"id": {idString(f.seed.book.ID)}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)

	w = f.do(http.MethodGet, "/index", f.editor, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "read-only")
}

func TestRouter_AnalyticsTag(t *testing.T) {
	f := setupFullRouter(t, func(cfg *RouterConfig) {
		cfg.Analytics = &analytics.PlausibleConfig{Enabled: true, Domain: "books.example.com", ScriptURL: analytics.DefaultScriptURL}
	})

	w := f.do(http.MethodGet, "/index", f.editor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-domain="books.example.com"`)

	plain := setupFullRouter(t)
	w = plain.do(http.MethodGet, "/index", plain.editor, nil)
	assert.NotContains(t, w.Body.String(), "data-domain")
}

func TestRouter_ViewerCannotChangeCatalog(t *testing.T) {
	f := setupFullRouter(t)
	id := idString(f.seed.book.ID)

	w := f.do(http.MethodPost, "/index/book_increment", f.viewer, url.Values{"id": {id}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(http.MethodPost, "/lend_return/do", f.viewer, url.Values{"id": {id}, "fid": {idString(f.seed.friend.ID)}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(http.MethodGet, "/authors/create_many", f.viewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)
	assert.Nil(t, book.LendedToID)

	// Browsing and the own profile stay open
	w = f.do(http.MethodGet, "/index", f.viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "/index/book_increment")
	w = f.do(http.MethodGet, "/profile/create", f.viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

var csrfFieldPattern = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

// browser keeps cookies between requests like a real client.
type browser struct {
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(router http.Handler) *browser {
	return &browser{router: router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(method, path string, values url.Values, header http.Header) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(values.Encode()))
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for name, vals := range header {
		req.Header[name] = vals
	}
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}
	return w
}

// signIn submits the login form with the token the login page handed out
// and returns that token.
func (b *browser) signIn(t *testing.T, username, password string) string {
	t.Helper()

	w := b.send(http.MethodGet, auth.LoginPath, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	match := csrfFieldPattern.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2, "login page has no CSRF field")
	token := html.UnescapeString(match[1])

	w = b.send(http.MethodPost, auth.LoginPath, url.Values{
		"gorilla.csrf.Token": {token},
		"username":           {username},
		"password":           {password},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, "/", w.Header().Get("Location"))
	require.Contains(t, b.cookies, auth.SessionCookieName)
	return token
}

func withCSRF(cfg *RouterConfig) {
	cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
}

func TestRouter_CSRF_AnonymousPostsRedirectToLogin(t *testing.T) {
	f := setupFullRouter(t, withCSRF)
	id := idString(f.seed.book.ID)

	posts := []struct {
		path   string
		values url.Values
	}{
		{path: "/index/book_increment", values: url.Values{"id": {id}}},
		{path: "/lend_return/do", values: url.Values{"id": {id}, "fid": {idString(f.seed.friend.ID)}}},
		{path: "/authors/create_many", values: url.Values{"authors-TOTAL_FORMS": {"1"}, "authors-0-full_name": {"Ursula K. Le Guin"}}},
		{path: "/profile/create", values: url.Values{"age": {"30"}}},
	}

	for _, tt := range posts {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(http.MethodPost, tt.path, "", tt.values)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, auth.LoginPath+"?next="+url.QueryEscape(tt.path), w.Header().Get("Location"))
		})
	}

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)
	assert.Nil(t, book.LendedToID)
}

func TestRouter_CSRF_ForgedTokenRevocationIsRejected(t *testing.T) {
	f := setupFullRouter(t, withCSRF)
	b := newBrowser(f.router)
	token := b.signIn(t, "librarian", "correct-horse-battery")

	// Cookies ride along, the form token does not
	w := b.send(http.MethodDelete, "/api/auth/token", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF token invalid or missing")
	assert.NotContains(t, w.Body.String(), "token revoked")

	_, err := f.auth.ValidateToken(f.editor)
	require.NoError(t, err, "the API token must survive a forged revocation")

	w = b.send(http.MethodDelete, "/api/auth/token", nil, http.Header{"X-Csrf-Token": {token}})
	assert.Equal(t, http.StatusOK, w.Code)
	_, err = f.auth.ValidateToken(f.editor)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRouter_CSRF_ForgedFormChangesNothing(t *testing.T) {
	f := setupFullRouter(t, withCSRF)
	b := newBrowser(f.router)
	token := b.signIn(t, "librarian", "correct-horse-battery")
	id := idString(f.seed.book.ID)

	w := b.send(http.MethodPost, "/index/book_increment", url.Values{"id": {id}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), auth.FormExpiredMessage)

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)

	w = b.send(http.MethodPost, "/index/book_increment", url.Values{"id": {id}, "gorilla.csrf.Token": {token}}, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/index", w.Header().Get("Location"))

	book, err = f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.CopyCount)
}

func TestRouter_CSRF_BearerRequestsSkipToken(t *testing.T) {
	f := setupFullRouter(t, withCSRF)

	w := f.do(http.MethodPost, "/index/book_increment", f.editor, url.Values{"id": {idString(f.seed.book.ID)}})
	assert.Equal(t, http.StatusFound, w.Code)

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.CopyCount)
}

func TestRouter_CSRF_ViewerSessionIsForbidden(t *testing.T) {
	f := setupFullRouter(t, withCSRF)
	b := newBrowser(f.router)
	token := b.signIn(t, "reader", "correct-horse-staple")

	w := b.send(http.MethodPost, "/index/book_increment", url.Values{
		"id":                 {idString(f.seed.book.ID)},
		"gorilla.csrf.Token": {token},
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	book, err := f.repo.GetBookByID(f.seed.book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.CopyCount)
}

func TestRouter_BulkPageRendersFormLimit(t *testing.T) {
	f := setupFullRouter(t)

	w := f.do(http.MethodGet, "/books_authors/create_many", f.editor, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `name="authors-MAX_NUM_FORMS" value="1000"`)
	assert.Contains(t, body, `name="books-MAX_NUM_FORMS" value="1000"`)
	assert.Contains(t, body, `name="books-TOTAL_FORMS" value="2"`)
}
