// Package scheduler runs the background sweeps of the reservation service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// PendingExpirer cancels PENDING reservations created before cutoff.
type PendingExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

// ExpiryScheduler periodically cancels reservations whose payment window lapsed.
type ExpiryScheduler struct {
	scheduler gocron.Scheduler
	expirer   PendingExpirer
	ttl       time.Duration
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewExpiryScheduler creates the sweep. A zero ttl disables it; Start is then a no-op.
func NewExpiryScheduler(expirer PendingExpirer, ttl, interval time.Duration, logger *zap.Logger) (*ExpiryScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpiryScheduler{
		scheduler: s,
		expirer:   expirer,
		ttl:       ttl,
		interval:  interval,
		timeout:   interval,
		now:       time.Now,
		logger:    logger.Named("expiry"),
	}, nil
}

// Enabled reports whether the sweep will run.
func (e *ExpiryScheduler) Enabled() bool { return e.ttl > 0 }

// Start registers the job and starts the scheduler.
func (e *ExpiryScheduler) Start() error {
	if !e.Enabled() {
		e.logger.Info("pending expiry disabled")
		return nil
	}

	_, err := e.scheduler.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(e.sweep),
		gocron.WithName("expire-pending-reservations"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule expiry job: %w", err)
	}

	e.scheduler.Start()
	e.logger.Info("pending expiry scheduled",
		zap.Duration("ttl", e.ttl),
		zap.Duration("interval", e.interval),
	)
	return nil
}

// Shutdown stops the scheduler and waits for a running sweep.
func (e *ExpiryScheduler) Shutdown() error {
	return e.scheduler.Shutdown()
}

func (e *ExpiryScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	_, _ = e.RunOnce(ctx)
}

// RunOnce performs one sweep and returns how many reservations were cancelled.
func (e *ExpiryScheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := e.now().UTC().Add(-e.ttl)
	n, err := e.expirer.ExpirePending(ctx, cutoff)
	if err != nil {
		e.logger.Error("pending expiry sweep failed", zap.Time("cutoff", cutoff), zap.Int("expired", n), zap.Error(err))
		return n, err
	}
	if n > 0 {
		e.logger.Info("expired pending reservations", zap.Int("expired", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}
