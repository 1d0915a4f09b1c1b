package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/plibrary/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventLedger,
		Action:      "book_lend",
		Description: "Lent book 3 to friend 7",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.LogEvent(&entities.AuditEvent{
			UserID:    1,
			EventType: entities.AuditEventLedger,
			Action:    "copy_increment",
			Status:    entities.AuditStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}))
	}
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{
		UserID:    2,
		EventType: entities.AuditEventLedger,
		Action:    "copy_decrement",
		Status:    entities.AuditStatusSuccess,
	}))

	t.Run("paginates newest first", func(t *testing.T) {
		events, total, err := repo.GetEvents(1, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 10)
		assert.True(t, events[0].CreatedAt.After(events[9].CreatedAt))

		events, _, err = repo.GetEvents(1, 10, 10)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("zero user returns everyone", func(t *testing.T) {
		_, total, err := repo.GetEvents(0, 0, -1)
		require.NoError(t, err)
		assert.Equal(t, int64(16), total)
	})
}

func TestRepository_GetEventsByType(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventLedger, Action: "book_return"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventCatalog, Action: "authors_create_many"}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, EventType: entities.AuditEventCatalog, Action: "books_authors_create_many"}))

	events, total, err := repo.GetEventsByType(entities.AuditEventCatalog, 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range events {
		assert.Equal(t, entities.AuditEventCatalog, e.EventType)
	}
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, Action: "old", CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, Action: "older", CreatedAt: time.Now().Add(-90 * 24 * time.Hour)}))
	require.NoError(t, repo.LogEvent(&entities.AuditEvent{UserID: 1, Action: "fresh"}))

	deleted, err := repo.DeleteOldEvents(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	events, total, err := repo.GetEvents(1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "fresh", events[0].Action)
}
