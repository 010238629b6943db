// Package janitor removes local accounts that started registration but
// never verified. Stale rows would otherwise squat on email addresses
// forever, since the users table enforces email uniqueness.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobportal/auth-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

// userPurger is the slice of the user repository the janitor needs.
type userPurger interface {
	PurgeUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

type Janitor struct {
	users     userPurger
	logger    *slog.Logger
	schedule  string
	retention time.Duration
}

func New(users userPurger, logger *slog.Logger, schedule string, retention time.Duration) *Janitor {
	return &Janitor{
		users:     users,
		logger:    logger.With("component", "janitor"),
		schedule:  schedule,
		retention: retention,
	}
}

// Start runs the purge on the configured cron schedule and blocks until
// ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, func() { j.PurgeOnce(ctx) }); err != nil {
		return fmt.Errorf("parse janitor schedule %q: %w", j.schedule, err)
	}

	j.logger.Info("janitor started", "schedule", j.schedule, "retention", j.retention)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("janitor stopped")
	return nil
}

// PurgeOnce deletes unverified local accounts older than the retention
// window. Safe to call directly, outside the cron loop.
func (j *Janitor) PurgeOnce(ctx context.Context) {
	start := time.Now()
	cutoff := start.Add(-j.retention)

	purged, err := j.users.PurgeUnverified(ctx, cutoff)
	if err != nil {
		j.logger.Error("purge unverified accounts", "error", err)
		return
	}

	metrics.JanitorPurgedTotal.Add(float64(purged))
	metrics.JanitorCycleDuration.Observe(time.Since(start).Seconds())

	if purged > 0 {
		j.logger.Info("purged unverified accounts", "count", purged, "cutoff", cutoff)
	}
}
