package http

import (
	"fmt"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/entities"
	"github.com/mrlokans/plibrary/internal/readonly"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"add": func(a, b int) int {
		return a + b
	},
	"price": func(p float64) string {
		return fmt.Sprintf("%.2f", p)
	},
	"deref": func(id *uint) uint {
		if id == nil {
			return 0
		}
		return *id
	},
}

// NewRouter creates and configures the HTTP router with all endpoints. The
// returned function stops background goroutines owned by the router.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var stops []func()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	router.Use(auth.SecurityHeaders(cfg.Analytics.ScriptOrigin()))
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurity(365 * 24 * time.Hour))
	}

	if cfg.RateLimit > 0 {
		throttle := NewThrottle(cfg.RateLimit, cfg.RateBurst, log.WithField("component", "throttle"))
		stops = append(stops, throttle.Stop)
		router.Use(throttle.Handler())
	}

	// Session, then gate, then CSRF: an anonymous request is sent to the
	// login page before its token is looked at.
	router.Use(cfg.SessionManager.Handler())
	router.Use(cfg.Gate.Handler())
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	// Inject auth data for templates
	router.Use(AuthContextMiddleware())

	if cfg.ReadOnly {
		log.Warn("Catalog is read-only, changes will be refused")
	}
	router.Use(readonly.NewMiddleware(cfg.ReadOnly).Handler())

	funcs := template.FuncMap{
		"analytics": cfg.Analytics.ScriptTag,
	}
	for name, fn := range templateFuncs {
		funcs[name] = fn
	}
	tmpl := template.Must(template.New("").Funcs(funcs).ParseGlob(cfg.TemplatesPath + "/*.html"))
	router.SetHTMLTemplate(tmpl)

	router.Static("/static", cfg.StaticPath)

	// Auth routes
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig, cfg.AuthRecorder, log)
	authController.RegisterRoutes(router)
	stops = append(stops, authController.Stop)

	auth.NewTokenController(cfg.AuthService, log).RegisterRoutes(router)

	health := NewHealthController(cfg.Database, cfg.Version)
	books := NewBooksController(cfg.Catalog, log)
	catalog := NewCatalogController(cfg.Catalog, cfg.Profiles, log)
	ledger := NewLedgerController(cfg.Ledger, log)
	bulk := NewBulkController(cfg.Formsets, cfg.Recorder, bulkObserver(cfg), cfg.Profiles, log)
	profiles := NewProfileController(cfg.Profiles, cfg.Recorder, log)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Books API
	router.GET("/api/books", books.GetAllBooks)

	// Catalog pages
	router.GET("/", catalog.Home)
	router.GET("/index", catalog.BooksPage)
	router.GET("/lend_return", catalog.LendReturnPage)
	router.GET("/lended", catalog.LentBooksPage)
	router.GET("/publishers", catalog.PublishersPage)
	router.GET("/authors", catalog.AuthorsPage)
	router.GET("/friends", catalog.FriendsPage)

	// Lending ledger, GET only bounces back to the page
	router.GET("/index/book_increment", redirectTo("/index"))
	router.GET("/index/book_decrement", redirectTo("/index"))
	router.GET("/lend_return/do", redirectTo("/lend_return"))

	// Viewers browse, editors and admins change the catalog
	edit := router.Group("/", cfg.Gate.RequireEditor())
	edit.GET("/publishers/create", catalog.PublisherCreatePage)
	edit.POST("/publishers/create", catalog.CreatePublisher)
	edit.GET("/authors/create", catalog.AuthorCreatePage)
	edit.POST("/authors/create", catalog.CreateAuthor)
	edit.GET("/friends/create", catalog.FriendCreatePage)
	edit.POST("/friends/create", catalog.CreateFriend)

	edit.POST("/index/book_increment", ledger.Increment)
	edit.POST("/index/book_decrement", ledger.Decrement)
	edit.POST("/lend_return/do", ledger.LendOrReturn)

	// Bulk entry
	edit.GET("/authors/create_many", bulk.AuthorsPage)
	edit.POST("/authors/create_many", bulk.CreateAuthors)
	edit.GET("/books_authors/create_many", bulk.AuthorsAndBooksPage)
	edit.POST("/books_authors/create_many", bulk.CreateAuthorsAndBooks)

	// Profile, every signed-in user keeps their own
	router.GET("/profile/create", profiles.CreatePage)
	router.POST("/profile/create", profiles.Create)

	// Admin API
	admin := router.Group("/api", cfg.Gate.RequireRole(entities.UserRoleAdmin))
	if cfg.AuditEvents != nil {
		auditController := NewAuditController(cfg.AuditEvents, log)
		admin.GET("/audit", auditController.GetAuditEvents)
	}
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.AuditRetentionDays, log)
		admin.GET("/tasks/types", tasksController.ListTaskTypes)
		admin.GET("/tasks/:id", tasksController.GetTaskStatus)
		admin.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router, func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func bulkObserver(cfg RouterConfig) BulkObserver {
	if cfg.Metrics == nil {
		return nil
	}
	return cfg.Metrics
}
