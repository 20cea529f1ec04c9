package store

import (
	"context"
	"log/slog"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Sweeper drops expired credentials.
type Sweeper interface {
	System() string
	Sweep() int
}

// Scheduler runs the periodic flush and credential sweep.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the jobs. An empty schedule disables the job.
func NewScheduler(ctx context.Context, state *State, flushSpec, sweepSpec string, sweepers []Sweeper, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = helpers.NewNoopLogger()
	}
	logger = logger.With("component", "scheduler")
	c := cron.New()

	if flushSpec != "" {
		if _, err := c.AddFunc(flushSpec, func() {
			if err := state.Flush(ctx); err != nil {
				logger.Error("scheduled flush failed", slog.Any("error", err))
			}
		}); err != nil {
			return nil, errors.Wrapf(err, "invalid flush schedule %q", flushSpec)
		}
	}
	if sweepSpec != "" && len(sweepers) > 0 {
		if _, err := c.AddFunc(sweepSpec, func() {
			for _, s := range sweepers {
				if n := s.Sweep(); n > 0 {
					logger.Info("expired credentials swept", slog.String("system", s.System()), slog.Int("count", n))
				}
			}
		}); err != nil {
			return nil, errors.Wrapf(err, "invalid sweep schedule %q", sweepSpec)
		}
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Debug("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
