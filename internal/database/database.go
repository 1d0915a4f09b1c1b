package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/plibrary/internal/entities"
)

// Models lists every entity migrated at start-up. Catalog entities come first
// so foreign keys resolve on a fresh database.
var Models = []any{
	&entities.Author{},
	&entities.Publisher{},
	&entities.Friend{},
	&entities.Book{},
	&entities.User{},
	&entities.SocialAccount{},
	&entities.UserProfile{},
	&entities.AuditEvent{},
}

// Connection pragmas for go-sqlite3, applied to every pooled connection.
const connectionPragmas = "_journal_mode=WAL&_busy_timeout=5000"

const slowQueryThreshold = 200 * time.Millisecond

type Database struct {
	DB *gorm.DB
}

// gormLogWriter sends gorm's slow-query and error lines to logrus.
type gormLogWriter struct {
	log logrus.FieldLogger
}

func (w gormLogWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}

func newGormLogger(log logrus.FieldLogger) logger.Interface {
	return logger.New(gormLogWriter{log: log.WithField("component", "gorm")}, logger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// dsn appends the connection pragmas to a database path.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + connectionPragmas
	}
	return dbPath + "?" + connectionPragmas
}

func NewDatabase(dbPath string, log logrus.FieldLogger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithField("path", dbPath).Info("Database initialized")

	return &Database{DB: db}, nil
}

// Ping checks that the underlying connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
