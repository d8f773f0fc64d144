package service

import (
	"context"
	"fmt"
	"time"

	"LuckyNumbers/internal/model"
	"LuckyNumbers/internal/repository"

	"github.com/sirupsen/logrus"
)

const maxResultsPerPage = 1000

// LotteryService the operations behind the HTTP API. Missing rows become model.ErrNotFound.
type LotteryService struct {
	results repository.ResultRepository
	guesses repository.GuessRepository
	logger  *logrus.Logger
}

func NewLotteryService(results repository.ResultRepository, guesses repository.GuessRepository, logger *logrus.Logger) *LotteryService {
	return &LotteryService{results: results, guesses: guesses, logger: logger}
}

// LastResults newest n draws, n is clamped to 1..1000
func (s *LotteryService) LastResults(ctx context.Context, n int) ([]*model.DrawResult, error) {
	if n < 1 {
		n = 1
	}
	if n > maxResultsPerPage {
		n = maxResultsPerPage
	}
	return s.results.GetLastNResults(ctx, n)
}

// ResultAt the draw for the bucket containing date
func (s *LotteryService) ResultAt(ctx context.Context, date time.Time) (*model.DrawResult, error) {
	res, err := s.results.GetResultsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("no draw for %s: %w", date.UTC().Format(time.RFC3339), model.ErrNotFound)
	}
	return res, nil
}

func (s *LotteryService) Stats(ctx context.Context) ([]*model.DrawnStat, error) {
	return s.results.GetDrawnStats(ctx)
}

func (s *LotteryService) CreateGuess(ctx context.Context, forDate *time.Time, numbers []int) (*model.Guess, error) {
	g, err := s.guesses.AddGuess(ctx, forDate, numbers)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"guess": g.ID, "for_date": g.ForDate}).Debug("guess created")
	return g, nil
}

func (s *LotteryService) GetGuess(ctx context.Context, id string) (*model.Guess, error) {
	g, err := s.guesses.GetGuessByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("guess %s: %w", id, model.ErrNotFound)
	}
	return g, nil
}

func (s *LotteryService) UpdateGuess(ctx context.Context, id string, numbers []int) (*model.Guess, error) {
	return s.guesses.UpdateGuessValues(ctx, id, numbers)
}

func (s *LotteryService) DeleteGuess(ctx context.Context, id string) error {
	ok, err := s.guesses.DeleteGuessByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("guess %s: %w", id, model.ErrNotFound)
	}
	return nil
}
