// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── catalog/         # Books, authors, publishers and friends
//	├── profiles/        # Social accounts and user profiles
//	├── users/           # User lookups
//	└── audit/           # Audit event storage and retention
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./plibrary.db", log)
//
//	catalogRepo := catalog.NewRepository(db.DB)
//	profilesRepo := profiles.NewRepository(db.DB)
//
//	book, err := catalogRepo.GetBookByID(123)
//	account, err := profilesRepo.GetSocialAccountByUserID(userID)
//
// # Interface Implementations
//
//   - catalog.Repository: implements ledger.Store and http.CatalogStore
//   - profiles.Repository: implements profile.Store
//   - audit.Repository: implements audit.Repository and tasks.AuditCleaner
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add the entity to Models in database.go
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
