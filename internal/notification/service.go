package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"prayer-alerts/config"
	"prayer-alerts/internal/logging"
)

// Service runs dispatch passes on the configured schedule.
type Service struct {
	cfg        config.DispatchConfig
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewService creates the recurring dispatch service.
func NewService(cfg config.DispatchConfig, d *Dispatcher, log zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		dispatcher: d,
		log:        log.With().Str("component", "dispatch_service").Logger(),
	}
}

// Run starts the worker pool, runs one pass immediately and then one per
// schedule tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info().Msg("dispatch is disabled; not starting")
		return nil
	}

	cronLog := logging.CronLogger{Log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid dispatch schedule %q: %w", s.cfg.Schedule, err)
	}

	s.dispatcher.Start(ctx)
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("starting dispatch service")
	s.RunOnce(ctx)

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info().Msg("dispatch service shutting down")
	return nil
}

// RunOnce performs a single pass and logs its outcome.
func (s *Service) RunOnce(ctx context.Context) Stats {
	start := time.Now()
	stats, err := s.dispatcher.DispatchOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("dispatch pass finished with load errors")
	}
	if stats.Due > 0 {
		s.log.Info().
			Int("due", stats.Due).
			Int("sent", stats.Sent).
			Int("skipped", stats.Skipped).
			Int("failed", stats.Failed).
			Dur("took", time.Since(start)).
			Msg("dispatch pass finished")
	}
	return stats
}

// Dispatcher returns the underlying dispatcher for on-demand passes.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}
