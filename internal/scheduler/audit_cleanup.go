// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRun returns the next activation of a schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// CleanupEnqueuer hands audit cleanup work to the task queue.
type CleanupEnqueuer interface {
	EnqueueAuditCleanup(retentionDays int) (string, error)
}

// AuditCleanupScheduler periodically enqueues audit retention cleanup.
type AuditCleanupScheduler struct {
	enqueuer      CleanupEnqueuer
	schedule      string
	retentionDays int
	log           logrus.FieldLogger

	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewAuditCleanupScheduler(enqueuer CleanupEnqueuer, schedule string, retentionDays int, log logrus.FieldLogger) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		enqueuer:      enqueuer,
		schedule:      schedule,
		retentionDays: retentionDays,
		log:           log.WithField("component", "scheduler"),
		cron:          cron.New(cron.WithParser(parser)),
	}
}

// Start registers the job and starts the cron loop. An empty schedule
// disables the scheduler. The scheduler stops when ctx is cancelled.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		s.log.Info("Audit cleanup scheduler: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRun(s.schedule, time.Now())
	s.log.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"next_run": nextRun,
	}).Info("Audit cleanup scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce enqueues a cleanup immediately.
func (s *AuditCleanupScheduler) RunOnce() {
	id, err := s.enqueuer.EnqueueAuditCleanup(s.retentionDays)
	if err != nil {
		s.log.WithError(err).Error("Audit cleanup scheduler: failed to enqueue task")
		return
	}
	s.log.WithField("task_id", id).Info("Audit cleanup scheduler: task enqueued")
}

// Stop waits for a running job to finish and halts the cron loop.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false

	s.log.Info("Audit cleanup scheduler: stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
