package service

import (
	"context"
	"time"

	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/repository"

	"github.com/sirupsen/logrus"
)

// CleanupJob prunes results past retention and guesses for buckets that are no longer kept
type CleanupJob struct {
	results   repository.ResultRepository
	guesses   repository.GuessRepository
	rules     model.Rules
	retention int
	every     time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

func NewCleanupJob(
	results repository.ResultRepository,
	guesses repository.GuessRepository,
	rules model.Rules,
	retention int,
	every time.Duration,
	logger *logrus.Logger,
) *CleanupJob {
	if every <= 0 {
		every = time.Hour
	}
	return &CleanupJob{
		results:   results,
		guesses:   guesses,
		rules:     rules,
		retention: retention,
		every:     every,
		now:       time.Now,
		logger:    logger,
	}
}

// RunOnce one pruning pass
func (j *CleanupJob) RunOnce(ctx context.Context) error {
	removed, err := j.results.Cleanup(ctx, j.retention)
	if err != nil {
		return err
	}
	cutoff := j.rules.Bucket(j.now()).Add(-time.Duration(j.retention) * j.rules.Interval)
	stale, err := j.guesses.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 || stale > 0 {
		j.logger.WithFields(logrus.Fields{
			"results": removed,
			"guesses": stale,
		}).Info("cleanup removed old rows")
	}
	return nil
}

// Run prunes once right away, then every interval until ctx is done
func (j *CleanupJob) Run(ctx context.Context) {
	j.pass(ctx)
	ticker := time.NewTicker(j.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.pass(ctx)
		}
	}
}

func (j *CleanupJob) pass(ctx context.Context) {
	if err := j.RunOnce(ctx); err != nil {
		j.logger.WithError(err).Warn("cleanup failed")
	}
}
