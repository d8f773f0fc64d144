package service

import (
	"context"
	"errors"
	"time"

	"LuckyNumbers/internal/model"

	"github.com/sirupsen/logrus"
)

// Cycle one draw for the bucket containing at
type Cycle interface {
	RunOnce(ctx context.Context, at time.Time) (*model.DrawResult, error)
}

// Scheduler runs a cycle at the start of every bucket
type Scheduler struct {
	cycle    Cycle
	interval time.Duration
	now      func() time.Time
	logger   *logrus.Logger
}

func NewScheduler(cycle Cycle, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{cycle: cycle, interval: interval, now: time.Now, logger: logger}
}

// NextDelay time until the next bucket boundary. Computed from the wall clock each time so
// delays never add up.
func (s *Scheduler) NextDelay(now time.Time) time.Duration {
	return model.Bucket(now, s.interval).Add(s.interval).Sub(now)
}

// Run blocks until ctx is done. Cycle errors are logged and the next tick is always scheduled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.WithField("interval", s.interval.String()).Info("draw scheduler started")
	for {
		delay := s.NextDelay(s.now())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("draw scheduler stopped")
			return
		case <-timer.C:
		}
		s.tick(ctx)
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("draw cycle panic: %v", r)
		}
	}()
	if _, err := s.cycle.RunOnce(ctx, s.now()); err != nil {
		entry := s.logger.WithError(err)
		switch {
		case errors.Is(err, model.ErrNotReady):
			entry.Warn("store not ready, draw skipped")
		case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled):
			entry.Debug("draw cycle interrupted")
		default:
			entry.Error("draw cycle failed")
		}
	}
}
