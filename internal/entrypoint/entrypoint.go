package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/analytics"
	"github.com/mrlokans/plibrary/internal/audit"
	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/database"
	auditrepo "github.com/mrlokans/plibrary/internal/database/audit"
	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/database/profiles"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/formset"
	http_controllers "github.com/mrlokans/plibrary/internal/http"
	"github.com/mrlokans/plibrary/internal/ledger"
	"github.com/mrlokans/plibrary/internal/logging"
	"github.com/mrlokans/plibrary/internal/metrics"
	"github.com/mrlokans/plibrary/internal/profile"
	"github.com/mrlokans/plibrary/internal/scheduler"
	"github.com/mrlokans/plibrary/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, log logrus.FieldLogger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.WithField("timeout", timeout).Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown")
	}

	// Background work stops after the last request has drained
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("Server exiting")
}

// csrfSecret decodes the configured session secret, generating a fresh one
// when none is set. Generated secrets invalidate forms on restart.
func csrfSecret(cfg config.Auth, log logrus.FieldLogger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		secret, err := hex.DecodeString(cfg.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(cfg.SessionSecret), nil
		}
		return secret, nil
	}

	generated, err := auth.NewSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Warn("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return generated, nil
}

func Run(cfg *config.Config, version string) {
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.WithField("version", version).Info("Starting personal library")

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.Database.Path, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("Error closing database")
		}
	}()

	catalogRepo := catalog.NewRepository(db.DB)
	profileRepo := profiles.NewRepository(db.DB)

	auditService := audit.NewService(auditrepo.NewRepository(db.DB), log)

	var m *metrics.Metrics
	var ledgerObserver ledger.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New()
		ledgerObserver = m
	}

	ledgerService := ledger.NewService(catalogRepo, auditService, ledgerObserver, log.WithField("component", "ledger"))
	processor := formset.NewProcessor(catalogRepo, cfg.Catalog.FormsetExtra, cfg.Catalog.FormsetMax, log.WithField("component", "formset"))
	profileService := profile.NewService(profileRepo, log.WithField("component", "profile"))

	// Task queue and scheduled retention cleanup
	var taskQueue http_controllers.TaskQueue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var cleanupScheduler *scheduler.AuditCleanupScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.WithError(err).Error("Error closing task client")
			}
		}()

		taskClient.Register(tasks.NewCleanupAuditEventsQueue(auditService, log.WithField("component", "tasks")))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)
		taskQueue = taskClient

		cleanupScheduler = scheduler.NewAuditCleanupScheduler(taskClient, cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays, log)
		if err := cleanupScheduler.Start(taskCtx); err != nil {
			log.WithError(err).WithField("schedule", cfg.Audit.CleanupSchedule).Fatal("Failed to start audit cleanup scheduler")
		}
	} else {
		log.Info("Task queue disabled, audit events are kept indefinitely")
	}

	// Authentication is always on
	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth, log)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.WithError(err).Fatal("Failed to get SQL DB for sessions")
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize session manager")
	}
	gate := auth.NewGate(authService, sessionManager, log.WithField("component", "auth"))

	secret, err := csrfSecret(cfg.Auth, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to generate CSRF secret")
	}

	if hasUsers, err := authService.HasUsers(); err != nil {
		log.WithError(err).Error("Failed to count users")
	} else if !hasUsers {
		log.Info("No users found. Visit /setup to create an administrator account.")
	}

	routerCfg := http_controllers.RouterConfig{
		Catalog:            catalogRepo,
		Ledger:             ledgerService,
		Formsets:           processor,
		Profiles:           profileService,
		Database:           db,
		Recorder:           auditService,
		AuditEvents:        auditService,
		AuthRecorder:       auditService,
		Metrics:            m,
		AuthService:        authService,
		SessionManager:     sessionManager,
		Gate:               gate,
		AuthConfig:         cfg.Auth,
		CSRFSecret:         secret,
		SecureCookies:      cfg.Auth.SecureCookies,
		RateLimit:          cfg.HTTP.RateLimit,
		RateBurst:          cfg.HTTP.RateBurst,
		TemplatesPath:      cfg.UI.TemplatesPath,
		StaticPath:         cfg.UI.StaticPath,
		ReadOnly:           cfg.Catalog.ReadOnly,
		Analytics:          analytics.NewPlausibleConfig(cfg.Plausible, log),
		Version:            version,
		TaskQueue:          taskQueue,
		AuditRetentionDays: cfg.Audit.RetentionDays,
		Log:                log,
	}

	router, stopRouter := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		stopRouter()
		if cleanupScheduler != nil {
			cleanupScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		auditService.Wait()
	}

	Serve(router, cfg, log, onShutdown)
}
