package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/models"
)

// TriggerSchedule labels backups started by the scheduler.
const TriggerSchedule = "schedule"

// BackupRunner creates a configuration snapshot.
type BackupRunner interface {
	CreateBackup(ctx context.Context, trigger string) (models.BackupArtifact, error)
}

// BackupScheduler takes configuration snapshots on a cron schedule
type BackupScheduler struct {
	runner   BackupRunner
	schedule string
	cron     *cron.Cron
	logger   *logging.Logger

	mu      sync.Mutex
	running bool
}

// NewBackupScheduler creates a scheduler. An empty schedule disables it.
func NewBackupScheduler(runner BackupRunner, schedule string, logger *logging.Logger) *BackupScheduler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &BackupScheduler{
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger,
	}
}

// Start registers the backup job and starts the cron loop. The scheduler
// stops on its own when ctx is cancelled.
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("Backup schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Backup scheduler started: %s", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce takes one scheduled snapshot.
func (s *BackupScheduler) RunOnce(ctx context.Context) {
	artifact, err := s.runner.CreateBackup(ctx, TriggerSchedule)
	if err != nil {
		s.logger.Error("Scheduled backup failed: %v", err)
		return
	}
	s.logger.Info("Scheduled backup created: %s", artifact.Name)
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("Backup scheduler stopped")
}

// Running reports whether the cron loop is active.
func (s *BackupScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
