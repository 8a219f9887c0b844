package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/architeacher/outboxrelay/internal/config"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/usecases"
	"github.com/architeacher/outboxrelay/internal/usecases/commands"
)

var _ ports.BackgroundProcessor = (*CleanupTick)(nil)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CleanupTick purges PUBLISHED rows older than RetentionDays on the
// cron schedule configured in cfg.Schedule (02:00 daily by default).
// FAILED rows are never touched; they stay until an operator inspects
// and replays or deletes them.
type CleanupTick struct {
	app      *usecases.RelayApplication
	cfg      config.CleanupConfig
	schedule cron.Schedule
	metrics  infrastructure.Metrics
	logger   infrastructure.Logger
}

func NewCleanupTick(
	app *usecases.RelayApplication,
	cfg config.CleanupConfig,
	metrics infrastructure.Metrics,
	logger infrastructure.Logger,
) (*CleanupTick, error) {
	schedule, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse cleanup schedule %q: %w", cfg.Schedule, err)
	}

	return &CleanupTick{
		app:      app,
		cfg:      cfg,
		schedule: schedule,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

func (c *CleanupTick) Start(ctx context.Context) error {
	c.logger.Info().Str("schedule", c.cfg.Schedule).Int("retention_days", c.cfg.RetentionDays).Msg("starting outbox cleanup tick")

	for {
		wait := time.Until(c.schedule.Next(time.Now()))

		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info().Msg("outbox cleanup tick shutting down")

			return ctx.Err()

		case <-timer.C:
			c.run(ctx)
		}
	}
}

func (c *CleanupTick) run(ctx context.Context) {
	result, err := c.app.Commands.CleanupOutboxEventsHandler.Handle(ctx, commands.CleanupOutboxEventsCommand{
		RetentionDays: c.cfg.RetentionDays,
	})
	if err != nil {
		c.logger.Error().Err(err).Int64("deleted_before_error", result.Deleted).Msg("cleanup tick failed")

		return
	}

	c.metrics.RecordCleanup(ctx, result.Deleted)
	c.logger.Info().Int64("deleted", result.Deleted).Msg("cleanup tick completed")
}
