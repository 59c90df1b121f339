// Package scheduler runs the periodic maintenance jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// VerificationSweeper deletes abandoned task verifications.
type VerificationSweeper interface {
	SweepAbandoned(ctx context.Context) (int64, error)
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	cron gocron.Scheduler
	job  gocron.Job
}

// New registers the verification sweep to run every interval. Call Start to begin.
func New(clock clockwork.Clock, interval time.Duration, sweeper VerificationSweeper) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	cron, err := gocron.NewScheduler(gocron.WithClock(clock), gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	job, err := cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			sweep(ctx, sweeper, interval)
		}),
		gocron.WithName("sweep-task-verifications"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("register sweep job: %w", err)
	}

	return &Scheduler{cron: cron, job: job}, nil
}

func sweep(ctx context.Context, sweeper VerificationSweeper, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := sweeper.SweepAbandoned(ctx)
	if err != nil {
		log.Error().Err(err).Msg("verification sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("swept abandoned task verifications")
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

// RunNow triggers the sweep outside its schedule.
func (s *Scheduler) RunNow() error {
	return s.job.RunNow()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
