package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"divecenter-backend/internal/jobs"
	"divecenter-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner.
// An invalid cron spec is an error.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Report overdue rentals
	if _, err := s.cron.AddFunc(cfg.NotifyOverdueRentals, s.jobs.NotifyOverdueRentals); err != nil {
		logger.Error("Failed to register NotifyOverdueRentals job", "error", err)
		return fmt.Errorf("register NotifyOverdueRentals %q: %w", cfg.NotifyOverdueRentals, err)
	}

	// Daily inventory summary
	if _, err := s.cron.AddFunc(cfg.LogCenterSummaries, s.jobs.LogCenterSummaries); err != nil {
		logger.Error("Failed to register LogCenterSummaries job", "error", err)
		return fmt.Errorf("register LogCenterSummaries %q: %w", cfg.LogCenterSummaries, err)
	}

	logger.Info("All cron jobs registered successfully")
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
