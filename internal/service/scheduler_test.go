package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestNextDelay(t *testing.T) {
	logger, _ := testutil.Logger()
	s := NewScheduler(nil, time.Minute, logger)

	at := time.Date(2026, 10, 16, 12, 0, 30, 250_000_000, time.UTC)
	assert.Equal(t, 29750*time.Millisecond, s.NextDelay(at))

	boundary := time.Date(2026, 10, 16, 12, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Minute, s.NextDelay(boundary))

	five := NewScheduler(nil, 5*time.Minute, logger)
	assert.Equal(t, 2*time.Minute+30*time.Second, five.NextDelay(time.Date(2026, 10, 16, 12, 2, 30, 0, time.UTC)))
}

// scriptedCycle panics, then fails, then cancels the run
type scriptedCycle struct {
	mu     sync.Mutex
	calls  int
	cancel context.CancelFunc
}

func (c *scriptedCycle) RunOnce(ctx context.Context, at time.Time) (*model.DrawResult, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	switch n {
	case 1:
		panic("generator exploded")
	case 2:
		return nil, errors.New("store write failed")
	case 3:
		return nil, model.ErrNotReady
	default:
		c.cancel()
		return &model.DrawResult{}, nil
	}
}

func TestSchedulerAlwaysReschedules(t *testing.T) {
	logger, hook := testutil.Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cycle := &scriptedCycle{cancel: cancel}
	s := NewScheduler(cycle, time.Minute, logger)
	// always 5ms before a boundary
	s.now = func() time.Time {
		return time.Date(2026, 10, 16, 12, 0, 59, 995_000_000, time.UTC)
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	cycle.mu.Lock()
	defer cycle.mu.Unlock()
	assert.Equal(t, 4, cycle.calls)

	var sawPanic, sawError bool
	for _, e := range hook.AllEntries() {
		if e.Message == "draw cycle panic: generator exploded" {
			sawPanic = true
		}
		if e.Message == "draw cycle failed" {
			sawError = true
		}
	}
	assert.True(t, sawPanic)
	assert.True(t, sawError)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	logger, _ := testutil.Logger()
	ctx, cancel := context.WithCancel(context.Background())
	cycle := &scriptedCycle{cancel: cancel}
	s := NewScheduler(cycle, time.Minute, logger)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, cycle.calls)
}
