package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/database/audit"
	"github.com/mrlokans/plibrary/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  logrus.FieldLogger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.log.WithError(err).WithField("action", event.Action).Error("Failed to log audit event")
		}
	}()
}

// Wait blocks until pending asynchronous writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogLedger records a lending ledger change on a book.
func (s *Service) LogLedger(userID uint, action string, bookID uint, description string) {
	s.LogAsync(&entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventLedger,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	})
}

// LogBulkCreate records a bulk entry submission with per-kind row counts.
func (s *Service) LogBulkCreate(userID uint, action string, counts map[string]int, err error) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventCatalog,
		Action:    action,
		Status:    entities.AuditStatusSuccess,
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	event.Description = fmt.Sprintf("Created %d rows", total)

	if mdBytes, e := json.Marshal(counts); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogProfile records a profile creation or update.
func (s *Service) LogProfile(userID uint, description string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventProfile,
		Action:      "profile_create",
		Description: description,
		EntityType:  "user_profile",
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(userID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, userID, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
