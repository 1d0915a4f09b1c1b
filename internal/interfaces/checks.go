package interfaces

// Compile-time checks that the concrete types wired by the entrypoint
// satisfy the interfaces their consumers declare.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/plibrary/internal/audit"
	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/database"
	"github.com/mrlokans/plibrary/internal/database/catalog"
	"github.com/mrlokans/plibrary/internal/database/profiles"
	"github.com/mrlokans/plibrary/internal/database/users"
	"github.com/mrlokans/plibrary/internal/formset"
	"github.com/mrlokans/plibrary/internal/http"
	"github.com/mrlokans/plibrary/internal/ledger"
	"github.com/mrlokans/plibrary/internal/metrics"
	"github.com/mrlokans/plibrary/internal/profile"
	"github.com/mrlokans/plibrary/internal/scheduler"
	"github.com/mrlokans/plibrary/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.CatalogStore = (*catalog.Repository)(nil)
var _ ledger.Store = (*catalog.Repository)(nil)
var _ formset.Store = (*catalog.Repository)(nil)
var _ profile.Store = (*profiles.Repository)(nil)
var _ auth.UserStore = (*users.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Domain Services
// =============================================================================

var _ http.Ledger = (*ledger.Service)(nil)
var _ http.BulkCreator = (*formset.Processor)(nil)
var _ http.ProfileService = (*profile.Service)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ ledger.Recorder = (*audit.Service)(nil)
var _ http.CatalogRecorder = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ auth.EventRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Metrics and Background Work
// =============================================================================

var _ ledger.Observer = (*metrics.Metrics)(nil)
var _ http.BulkObserver = (*metrics.Metrics)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ scheduler.CleanupEnqueuer = (*tasks.Client)(nil)
