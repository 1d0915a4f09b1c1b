package http

import (
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/analytics"
	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/config"
	"github.com/mrlokans/plibrary/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog  CatalogStore
	Ledger   Ledger
	Formsets BulkCreator
	Profiles ProfileService
	Database Pinger

	// Audit trail, optional
	Recorder    CatalogRecorder
	AuditEvents AuditReader
	// AuthRecorder receives login, logout and setup events, optional
	AuthRecorder auth.EventRecorder

	// Metrics registry, nil disables /metrics and request instrumentation
	Metrics *metrics.Metrics

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	Gate           *auth.Gate
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Mutating requests per second per client IP, 0 disables
	RateLimit float64
	RateBurst int

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Refuse every catalog change while set
	ReadOnly bool
	// Plausible script tag settings, nil disables tracking
	Analytics *analytics.PlausibleConfig

	// Application info
	Version string

	// Task queue client (optional)
	TaskQueue          TaskQueue
	AuditRetentionDays int

	Log logrus.FieldLogger
}
