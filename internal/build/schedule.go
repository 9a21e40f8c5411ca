package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/inkpress/internal/logfields"
)

// Scheduler wraps gocron for periodic builds.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// ScheduleBuild runs build on the cron expression. A run still in progress
// when the next one is due causes that run to be skipped.
func (s *Scheduler) ScheduleBuild(ctx context.Context, expr string, build func(context.Context) error) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func(jobCtx context.Context) {
			s.logger.Info("Executing scheduled build", logfields.Schedule(expr))
			if err := build(jobCtx); err != nil {
				s.logger.Error("Scheduled build failed", logfields.Schedule(expr), logfields.Error(err))
			}
		}),
		gocron.WithName("site-build"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create scheduled build job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Jobs reports the number of scheduled jobs.
func (s *Scheduler) Jobs() int { return len(s.scheduler.Jobs()) }
