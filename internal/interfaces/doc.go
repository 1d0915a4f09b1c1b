// Package interfaces documents the seams between the library packages.
//
// Consumers declare the narrow interface they need next to the code that
// uses it; this package only holds compile-time checks tying the concrete
// implementations to those declarations.
//
// # Data Access
//
//   - http.CatalogStore, ledger.Store, formset.Store: catalog.Repository
//   - profile.Store: profiles.Repository
//   - http.Pinger: database.Database
//
// # Domain Services
//
//   - http.Ledger: ledger.Service (copy counts, lending)
//   - http.BulkCreator: formset.Processor (bulk entry)
//   - http.ProfileService: profile.Service (page enrichment, age form)
//
// # Audit and Background Work
//
//   - ledger.Recorder, http.CatalogRecorder, http.AuditReader,
//     auth.EventRecorder, tasks.AuditEventCleaner: audit.Service
//   - ledger.Observer, http.BulkObserver: metrics.Metrics
//   - http.TaskQueue, scheduler.CleanupEnqueuer: tasks.Client
//
// # Adding an Implementation
//
// Add a var _ line to checks.go so a missing method fails the build
// instead of the wiring in internal/entrypoint.
package interfaces
