package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LuckyNumbers/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GuessRepository player guesses keyed by the bucket they play in
type GuessRepository interface {
	// AddGuess forDate nil means the next bucket
	AddGuess(ctx context.Context, forDate *time.Time, numbers []int) (*model.Guess, error)
	// GetGuessByID nil, nil when unknown. Past guesses come with their draw attached.
	GetGuessByID(ctx context.Context, id string) (*model.Guess, error)
	UpdateGuessValues(ctx context.Context, id string, numbers []int) (*model.Guess, error)
	DeleteGuessByID(ctx context.Context, id string) (bool, error)
	// GetGuessResultsByDate every guess for the draw's bucket with its matches, oldest guess first
	GetGuessResultsByDate(ctx context.Context, drawDate time.Time) ([]model.MatchResult, error)
	// SaveGuessOutcomes records matches and prize on each guess
	SaveGuessOutcomes(ctx context.Context, results []model.MatchResult) error
	// DeleteBefore removes guesses whose bucket is older than before
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type guessRepository struct {
	db    *Database
	rules model.Rules
	now   func() time.Time
}

// NewGuessRepository now may be nil
func NewGuessRepository(db *Database, rules model.Rules, now func() time.Time) GuessRepository {
	if now == nil {
		now = time.Now
	}
	return &guessRepository{db: db, rules: rules, now: now}
}

func (r *guessRepository) AddGuess(ctx context.Context, forDate *time.Time, numbers []int) (*model.Guess, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	now := r.now()
	bucket := r.rules.NextBucket(now)
	if forDate != nil {
		bucket = r.rules.Bucket(*forDate)
		if !bucket.After(r.rules.Bucket(now)) {
			return nil, fmt.Errorf("%w: date %s is not in the future", model.ErrValidation, forDate.UTC().Format(time.RFC3339))
		}
	}
	unique, err := r.rules.ValidateNumbers(numbers)
	if err != nil {
		return nil, err
	}

	guess := &model.Guess{
		ID:        uuid.NewString(),
		ForDate:   bucket,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
		Numbers:   unique,
	}
	err = r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(guess).Error; err != nil {
			return fmt.Errorf("insert guess: %w", err)
		}
		return insertGuessNumbers(tx, guess.ID, unique)
	})
	if err != nil {
		return nil, err
	}
	guess.Ref = model.GuessRef(guess.ID)
	return guess, nil
}

func (r *guessRepository) GetGuessByID(ctx context.Context, id string) (*model.Guess, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	db := r.db.Gorm().WithContext(ctx)

	var guess model.Guess
	if err := db.Where("id = ?", id).First(&guess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guess %s: %w", id, err)
	}
	numbers, err := guessNumbers(db, id)
	if err != nil {
		return nil, err
	}
	guess.Numbers = numbers
	guess.Ref = model.GuessRef(guess.ID)

	if guess.ForDate.After(r.now()) {
		return &guess, nil
	}
	result, err := loadResult(db, model.BucketID(guess.ForDate))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &guess, nil
	}
	guess.Result = result
	if guess.MatchList() == nil {
		guess.SetMatches(model.Intersect(result.Numbers, guess.Numbers))
	}
	return &guess, nil
}

func (r *guessRepository) UpdateGuessValues(ctx context.Context, id string, numbers []int) (*model.Guess, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	unique, err := r.rules.ValidateNumbers(numbers)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	var guess model.Guess
	err = r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&guess).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("guess %s: %w", id, model.ErrNotFound)
			}
			return fmt.Errorf("get guess %s: %w", id, err)
		}
		// the for_date condition keeps a concurrent draw from seeing changed numbers
		res := tx.Model(&model.Guess{}).
			Where("id = ? AND for_date > ?", id, now).
			Update("updated_at", now)
		if res.Error != nil {
			return fmt.Errorf("touch guess %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrGuessClosed
		}
		if err := tx.Where("guess_id = ?", id).Delete(&model.GuessNumber{}).Error; err != nil {
			return fmt.Errorf("clear guess numbers: %w", err)
		}
		return insertGuessNumbers(tx, id, unique)
	})
	if err != nil {
		return nil, err
	}
	guess.UpdatedAt = now
	guess.Numbers = unique
	guess.Ref = model.GuessRef(guess.ID)
	return &guess, nil
}

func (r *guessRepository) DeleteGuessByID(ctx context.Context, id string) (bool, error) {
	if err := r.db.guard(); err != nil {
		return false, err
	}
	var deleted bool
	err := r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guess_id = ?", id).Delete(&model.GuessNumber{}).Error; err != nil {
			return fmt.Errorf("delete guess numbers: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.Guess{})
		if res.Error != nil {
			return fmt.Errorf("delete guess %s: %w", id, res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

type guessMatchRow struct {
	ID     string
	Number *int
}

func (r *guessRepository) GetGuessResultsByDate(ctx context.Context, drawDate time.Time) ([]model.MatchResult, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	db := r.db.Gorm().WithContext(ctx)
	bucket := r.rules.Bucket(drawDate)
	id := model.BucketID(bucket)

	var exists int64
	if err := db.Model(&model.DrawResult{}).Where("id = ?", id).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("check result %d: %w", id, err)
	}
	if exists == 0 {
		return []model.MatchResult{}, nil
	}

	// one row per guess without matches, one per matched number otherwise
	var rows []guessMatchRow
	err := db.Raw(`SELECT g.id AS id, gn.number AS number
FROM guesses g
LEFT JOIN guess_numbers gn
  ON gn.guess_id = g.id
 AND gn.number IN (SELECT dn.number FROM draw_numbers dn WHERE dn.result_id = ?)
WHERE g.for_date = ?
ORDER BY g.created_at ASC, g.id ASC, gn.number ASC`, id, bucket).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match guesses for %d: %w", id, err)
	}

	out := make([]model.MatchResult, 0)
	var (
		current string
		matches []int
	)
	flush := func() {
		if current != "" {
			out = append(out, r.rules.Resolve(current, bucket, matches))
		}
	}
	for _, row := range rows {
		if row.ID != current {
			flush()
			current = row.ID
			matches = []int{}
		}
		if row.Number != nil {
			matches = append(matches, *row.Number)
		}
	}
	flush()
	return out, nil
}

func (r *guessRepository) SaveGuessOutcomes(ctx context.Context, results []model.MatchResult) error {
	if err := r.db.guard(); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	now := r.now().UTC()
	return r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, res := range results {
			var g model.Guess
			g.SetMatches(res.Matches)
			err := tx.Model(&model.Guess{}).Where("id = ?", res.GuessID).Updates(map[string]interface{}{
				"matches":     datatypes.JSON(g.Matches),
				"prize":       res.Prize,
				"resolved_at": now,
			}).Error
			if err != nil {
				return fmt.Errorf("save outcome of guess %s: %w", res.GuessID, err)
			}
		}
		return nil
	})
}

func (r *guessRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := r.db.guard(); err != nil {
		return 0, err
	}
	var removed int64
	err := r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&model.Guess{}).Select("id").Where("for_date < ?", before.UTC())
		if err := tx.Where("guess_id IN (?)", old).Delete(&model.GuessNumber{}).Error; err != nil {
			return fmt.Errorf("delete old guess numbers: %w", err)
		}
		res := tx.Where("for_date < ?", before.UTC()).Delete(&model.Guess{})
		if res.Error != nil {
			return fmt.Errorf("delete old guesses: %w", res.Error)
		}
		removed = res.RowsAffected
		return nil
	})
	return removed, err
}

func insertGuessNumbers(tx *gorm.DB, guessID string, numbers []int) error {
	rows := make([]model.GuessNumber, 0, len(numbers))
	for _, n := range numbers {
		rows = append(rows, model.GuessNumber{GuessID: guessID, Number: n})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert guess numbers: %w", err)
	}
	return nil
}

func guessNumbers(db *gorm.DB, guessID string) ([]int, error) {
	var numbers []int
	if err := db.Model(&model.GuessNumber{}).Where("guess_id = ?", guessID).
		Order("number ASC").Pluck("number", &numbers).Error; err != nil {
		return nil, fmt.Errorf("load guess numbers: %w", err)
	}
	if numbers == nil {
		numbers = []int{}
	}
	return numbers, nil
}
