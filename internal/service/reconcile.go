package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LuckyNumbers/internal/draw"
	"LuckyNumbers/internal/interfaces"
	"LuckyNumbers/internal/messaging"
	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/repository"

	"github.com/sirupsen/logrus"
)

// State where the engine is in its draw cycle
type State string

const (
	StateIdle       State = "IDLE"
	StateDrawing    State = "DRAWING"
	StatePersisting State = "PERSISTING"
	StateNotifying  State = "NOTIFYING"
	StateStopped    State = "STOPPED"
)

// ErrStopped returned by RunOnce after Shutdown
var ErrStopped = errors.New("draw engine stopped")

// pendingRetryBuckets how far back each cycle looks for draws that were never notified
const pendingRetryBuckets = 60

// DrawEngine draws, stores and reconciles one bucket at a time
type DrawEngine struct {
	results   repository.ResultRepository
	guesses   repository.GuessRepository
	generator draw.Generator
	publisher interfaces.Publisher
	rules     model.Rules
	topic     string
	logger    *logrus.Logger
	now       func() time.Time

	cycle sync.Mutex // one cycle in flight

	mu    sync.RWMutex
	state State
}

// NewDrawEngine topic is where draws are broadcast, messaging.TopicNumbers when empty
func NewDrawEngine(
	results repository.ResultRepository,
	guesses repository.GuessRepository,
	generator draw.Generator,
	publisher interfaces.Publisher,
	rules model.Rules,
	topic string,
	logger *logrus.Logger,
) *DrawEngine {
	if topic == "" {
		topic = messaging.TopicNumbers
	}
	return &DrawEngine{
		results:   results,
		guesses:   guesses,
		generator: generator,
		publisher: publisher,
		rules:     rules,
		topic:     topic,
		logger:    logger,
		now:       time.Now,
		state:     StateIdle,
	}
}

// WithClock replaces time.Now
func (e *DrawEngine) WithClock(now func() time.Time) *DrawEngine {
	e.now = now
	return e
}

// State the current state
func (e *DrawEngine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *DrawEngine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateStopped {
		e.state = s
	}
}

// RunOnce draws for the bucket containing at. Returns nil, nil when another caller already
// drew that bucket.
func (e *DrawEngine) RunOnce(ctx context.Context, at time.Time) (*model.DrawResult, error) {
	e.cycle.Lock()
	defer e.cycle.Unlock()
	if e.State() == StateStopped {
		return nil, ErrStopped
	}
	defer e.setState(StateIdle)

	result, err := e.drawAndNotify(ctx, at)
	e.retryPending(ctx, at)
	return result, err
}

func (e *DrawEngine) drawAndNotify(ctx context.Context, at time.Time) (*model.DrawResult, error) {
	e.setState(StateDrawing)
	numbers, err := e.generator.Draw(e.rules.RangeFrom, e.rules.RangeTo, e.rules.Count)
	if err != nil {
		return nil, fmt.Errorf("draw numbers: %w", err)
	}

	e.setState(StatePersisting)
	result, err := e.results.AddResults(ctx, at, numbers)
	if err != nil {
		return nil, fmt.Errorf("store draw: %w", err)
	}
	if result == nil {
		e.logger.WithField("bucket", e.rules.Bucket(at)).Debug("bucket already drawn, skipping")
		return nil, nil
	}
	e.logger.WithFields(logrus.Fields{
		"id":      result.ID,
		"numbers": result.Numbers,
	}).Info("new draw")

	e.setState(StateNotifying)
	if _, err := e.Reconcile(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// Reconcile matches the guesses of result's bucket, claims result for notification, then
// broadcasts it and tells every guess how it did. Only the first caller per result publishes;
// later calls return nil. Matching happens before the claim so a failed read leaves the draw
// unclaimed for a later retry. Publish failures are logged, they never undo the claim.
func (e *DrawEngine) Reconcile(ctx context.Context, result *model.DrawResult) ([]model.MatchResult, error) {
	outcomes, err := e.guesses.GetGuessResultsByDate(ctx, result.Date)
	if err != nil {
		return nil, fmt.Errorf("match guesses: %w", err)
	}

	claimed, err := e.results.ClaimNotification(ctx, result.ID)
	if err != nil {
		return nil, fmt.Errorf("claim notification: %w", err)
	}
	if !claimed {
		return nil, nil
	}

	if payload, err := messaging.NewDrawMessage(result); err != nil {
		e.logger.WithError(err).Error("encode draw message")
	} else if err := e.publisher.Publish(ctx, e.topic, payload); err != nil {
		e.logger.WithError(err).WithField("id", result.ID).Warn("publish draw failed")
	}

	winners := 0
	for _, res := range outcomes {
		if res.IsWinner {
			winners++
		}
		payload, err := messaging.NewGuessMessage(res)
		if err != nil {
			e.logger.WithError(err).Error("encode guess message")
			continue
		}
		if err := e.publisher.Publish(ctx, messaging.GuessTopic(res.GuessID), payload); err != nil {
			e.logger.WithError(err).WithField("guess", res.GuessID).Warn("publish guess result failed")
		}
	}
	if err := e.guesses.SaveGuessOutcomes(ctx, outcomes); err != nil {
		return outcomes, fmt.Errorf("save guess outcomes: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"id":      result.ID,
		"guesses": len(outcomes),
		"winners": winners,
	}).Info("draw reconciled")
	return outcomes, nil
}

// retryPending reconciles unclaimed draws of earlier buckets, left behind when a cycle failed
// after storing. Draws of the current bucket belong to whoever stored them.
func (e *DrawEngine) retryPending(ctx context.Context, at time.Time) {
	bucket := e.rules.Bucket(at)
	pending, err := e.results.ListUnnotified(ctx, bucket.Add(-pendingRetryBuckets*e.rules.Interval))
	if err != nil {
		e.logger.WithError(err).Warn("list unnotified draws")
		return
	}
	for _, result := range pending {
		if !result.Date.Before(bucket) {
			continue
		}
		e.setState(StateNotifying)
		outcomes, err := e.Reconcile(ctx, result)
		if err != nil {
			e.logger.WithError(err).WithField("id", result.ID).Warn("retry notification failed")
			continue
		}
		if outcomes != nil {
			e.logger.WithField("id", result.ID).Info("late draw notified")
		}
	}
}

// Recover notifies draws from the last window that were stored but never claimed, which
// happens when the process died between storing and notifying.
func (e *DrawEngine) Recover(ctx context.Context, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, nil
	}
	pending, err := e.results.ListUnnotified(ctx, e.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("list unnotified draws: %w", err)
	}
	recovered := 0
	for _, result := range pending {
		outcomes, err := e.Reconcile(ctx, result)
		if err != nil {
			e.logger.WithError(err).WithField("id", result.ID).Warn("recover draw failed")
			continue
		}
		if outcomes != nil {
			recovered++
		}
	}
	if recovered > 0 {
		e.logger.WithField("count", recovered).Info("recovered unnotified draws")
	}
	return recovered, nil
}

// Seed fills the count buckets before the current one with draws, skipping taken buckets.
// Seeded draws are marked notified so Recover leaves them alone.
func (e *DrawEngine) Seed(ctx context.Context, count int) (int, error) {
	current := e.rules.Bucket(e.now())
	created := 0
	for n := 1; n <= count; n++ {
		numbers, err := e.generator.Draw(e.rules.RangeFrom, e.rules.RangeTo, e.rules.Count)
		if err != nil {
			return created, fmt.Errorf("draw numbers: %w", err)
		}
		at := current.Add(-time.Duration(n) * e.rules.Interval)
		result, err := e.results.AddResults(ctx, at, numbers)
		if err != nil {
			return created, fmt.Errorf("store seeded draw: %w", err)
		}
		if result == nil {
			continue
		}
		if _, err := e.results.ClaimNotification(ctx, result.ID); err != nil {
			return created, fmt.Errorf("mark seeded draw: %w", err)
		}
		created++
	}
	return created, nil
}

// Shutdown waits for the running cycle, broadcasts SHUTDOWN and closes the publisher.
// Later RunOnce calls return ErrStopped.
func (e *DrawEngine) Shutdown(ctx context.Context) error {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopped
	e.mu.Unlock()

	if payload, err := messaging.NewShutdownMessage(e.now()); err == nil {
		if err := e.publisher.Publish(ctx, e.topic, payload); err != nil {
			e.logger.WithError(err).Warn("publish shutdown failed")
		}
	}
	if err := e.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	e.logger.Info("draw engine stopped")
	return nil
}
