package config

import "time"

// Default paths and limits
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./plibrary.db"

	// DefaultFormsetExtra is the number of blank rows offered by bulk entry pages
	DefaultFormsetExtra = 2

	// DefaultFormsetMax caps the number of rows accepted in one bulk submission
	DefaultFormsetMax = 1000

	// DefaultMaxLoginAttempts is the number of failed sign-ins before lockout
	DefaultMaxLoginAttempts = 5
)

// Default sign-in timings
const (
	DefaultSessionLifetime = 24 * time.Hour
	DefaultLoginWindow     = 15 * time.Minute
	DefaultLockoutDuration = 30 * time.Minute
)
