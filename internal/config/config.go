package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Log
		Auth
		Catalog
		Audit
		Tasks
		Metrics
		Plausible
	}

	HTTP struct {
		Port      int32
		Host      string
		RateLimit float64 // Mutating requests per second per client IP, 0 disables
		RateBurst int
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Log struct {
		Level  string // logrus level name
		Format string // "text" or "json"
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Catalog struct {
		FormsetExtra int // Blank rows rendered by bulk entry pages
		FormsetMax   int // Upper bound on TOTAL_FORMS accepted from a submission
		ReadOnly     bool
	}
	Audit struct {
		RetentionDays   int
		CleanupSchedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Metrics struct {
		Enabled bool
	}
	Plausible struct {
		Domain     string // Tracking is off when empty
		ScriptURL  string
		Extensions string // Comma-separated, e.g. "outbound-links,file-downloads"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("http_rate_limit", 10)
	v.SetDefault("http_rate_burst", 20)
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Auth defaults
	// An empty secret is replaced by a random one at startup
	v.SetDefault("auth_session_secret", "")
	v.SetDefault("auth_session_lifetime", DefaultSessionLifetime.String())
	v.SetDefault("auth_token_expiry", "720h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_max_login_attempts", DefaultMaxLoginAttempts)
	v.SetDefault("auth_rate_limit_window", DefaultLoginWindow.String())
	v.SetDefault("auth_lockout_duration", DefaultLockoutDuration.String())

	// Bulk entry defaults
	v.SetDefault("catalog_formset_extra", DefaultFormsetExtra)
	v.SetDefault("catalog_formset_max", DefaultFormsetMax)
	v.SetDefault("catalog_read_only", false)

	// Audit retention
	v.SetDefault("audit_retention_days", 30)
	v.SetDefault("audit_cleanup_schedule", "0 3 * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("metrics_enabled", true)

	v.SetDefault("plausible_domain", "")
	v.SetDefault("plausible_script_url", "")
	v.SetDefault("plausible_extensions", "")

	return &Config{
		HTTP: HTTP{
			Port:      v.GetInt32("PORT"),
			Host:      v.GetString("HOST"),
			RateLimit: v.GetFloat64("HTTP_RATE_LIMIT"),
			RateBurst: v.GetInt("HTTP_RATE_BURST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Catalog: Catalog{
			FormsetExtra: v.GetInt("CATALOG_FORMSET_EXTRA"),
			FormsetMax:   v.GetInt("CATALOG_FORMSET_MAX"),
			ReadOnly:     v.GetBool("CATALOG_READ_ONLY"),
		},
		Audit: Audit{
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
		Plausible: Plausible{
			Domain:     v.GetString("PLAUSIBLE_DOMAIN"),
			ScriptURL:  v.GetString("PLAUSIBLE_SCRIPT_URL"),
			Extensions: v.GetString("PLAUSIBLE_EXTENSIONS"),
		},
	}
}
