package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"LuckyNumbers/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResultRepository draw results, one per bucket
type ResultRepository interface {
	// AddResults stores a draw for the bucket containing date. Returns nil, nil when the bucket
	// already has a result.
	AddResults(ctx context.Context, date time.Time, numbers []int) (*model.DrawResult, error)
	// GetResultsByDate the result for the bucket containing date, nil when there is none
	GetResultsByDate(ctx context.Context, date time.Time) (*model.DrawResult, error)
	// GetResultByID lookup by bucket key
	GetResultByID(ctx context.Context, id int64) (*model.DrawResult, error)
	// GetLastNResults newest first
	GetLastNResults(ctx context.Context, n int) ([]*model.DrawResult, error)
	// GetDrawnStats how often each number was drawn
	GetDrawnStats(ctx context.Context) ([]*model.DrawnStat, error)
	// ClaimNotification true for exactly one caller per result
	ClaimNotification(ctx context.Context, id int64) (bool, error)
	// ListUnnotified results since the given time that nobody claimed, oldest first
	ListUnnotified(ctx context.Context, since time.Time) ([]*model.DrawResult, error)
	// Cleanup keeps the newest keep results and removes the rest with their numbers
	Cleanup(ctx context.Context, keep int) (int64, error)
}

type resultRepository struct {
	db    *Database
	rules model.Rules
	host  string
	now   func() time.Time
}

// NewResultRepository now may be nil
func NewResultRepository(db *Database, rules model.Rules, now func() time.Time) ResultRepository {
	if now == nil {
		now = time.Now
	}
	host, _ := os.Hostname()
	return &resultRepository{db: db, rules: rules, host: host, now: now}
}

// AddResults the insert-if-absent on the primary key decides which caller owns the bucket; the
// numbers and stats are written in the same transaction so no reader sees a half-written draw.
func (r *resultRepository) AddResults(ctx context.Context, date time.Time, numbers []int) (*model.DrawResult, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: a draw needs numbers", model.ErrValidation)
	}

	bucket := r.rules.Bucket(date)
	result := &model.DrawResult{
		ID:      model.BucketID(bucket),
		Date:    bucket,
		Host:    r.host,
		Numbers: append([]int(nil), numbers...),
	}

	created := false
	err := r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(result)
		if res.Error != nil {
			return fmt.Errorf("insert result %d: %w", result.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		rows := make([]model.DrawNumber, 0, len(numbers))
		for i, n := range numbers {
			rows = append(rows, model.DrawNumber{ResultID: result.ID, Number: n, Position: i})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert numbers for %d: %w", result.ID, err)
		}

		for _, n := range numbers {
			stat := model.DrawnStat{Number: n, TimesDrawn: 1}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "number"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"times_drawn": gorm.Expr("drawn_stats.times_drawn + 1")}),
			}).Create(&stat).Error; err != nil {
				return fmt.Errorf("update drawn stats: %w", err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}
	return result, nil
}

func (r *resultRepository) GetResultsByDate(ctx context.Context, date time.Time) (*model.DrawResult, error) {
	return r.GetResultByID(ctx, model.BucketID(r.rules.Bucket(date)))
}

func (r *resultRepository) GetResultByID(ctx context.Context, id int64) (*model.DrawResult, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	return loadResult(r.db.Gorm().WithContext(ctx), id)
}

func (r *resultRepository) GetLastNResults(ctx context.Context, n int) ([]*model.DrawResult, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}
	db := r.db.Gorm().WithContext(ctx)

	var results []*model.DrawResult
	if err := db.Order("draw_date DESC").Limit(n).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list last %d results: %w", n, err)
	}
	if err := attachNumbers(db, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) GetDrawnStats(ctx context.Context) ([]*model.DrawnStat, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	var stats []*model.DrawnStat
	if err := r.db.Gorm().WithContext(ctx).Order("number ASC").Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list drawn stats: %w", err)
	}
	return stats, nil
}

func (r *resultRepository) ClaimNotification(ctx context.Context, id int64) (bool, error) {
	if err := r.db.guard(); err != nil {
		return false, err
	}
	now := r.now().UTC()
	res := r.db.Gorm().WithContext(ctx).Model(&model.DrawResult{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", now)
	if res.Error != nil {
		return false, fmt.Errorf("claim notification for %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *resultRepository) ListUnnotified(ctx context.Context, since time.Time) ([]*model.DrawResult, error) {
	if err := r.db.guard(); err != nil {
		return nil, err
	}
	db := r.db.Gorm().WithContext(ctx)
	var results []*model.DrawResult
	if err := db.Where("notified_at IS NULL AND draw_date >= ?", since.UTC()).
		Order("draw_date ASC").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("list unnotified results: %w", err)
	}
	if err := attachNumbers(db, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resultRepository) Cleanup(ctx context.Context, keep int) (int64, error) {
	if err := r.db.guard(); err != nil {
		return 0, err
	}
	if keep < 1 {
		return 0, fmt.Errorf("%w: retention must keep at least one result", model.ErrValidation)
	}

	var removed int64
	err := r.db.Gorm().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newest := tx.Model(&model.DrawResult{}).Select("id").Order("draw_date DESC").Limit(keep)
		res := tx.Where("id NOT IN (?)", newest).Delete(&model.DrawResult{})
		if res.Error != nil {
			return fmt.Errorf("trim results: %w", res.Error)
		}
		removed = res.RowsAffected

		orphans := tx.Model(&model.DrawResult{}).Select("id")
		if err := tx.Where("result_id NOT IN (?)", orphans).Delete(&model.DrawNumber{}).Error; err != nil {
			return fmt.Errorf("remove orphaned numbers: %w", err)
		}
		return nil
	})
	return removed, err
}

// loadResult nil, nil when the bucket has no result
func loadResult(db *gorm.DB, id int64) (*model.DrawResult, error) {
	var result model.DrawResult
	if err := db.Where("id = ?", id).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get result %d: %w", id, err)
	}
	if err := attachNumbers(db, []*model.DrawResult{&result}); err != nil {
		return nil, err
	}
	return &result, nil
}

// attachNumbers fetches the numbers of every result in one query
func attachNumbers(db *gorm.DB, results []*model.DrawResult) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(results))
	byID := make(map[int64]*model.DrawResult, len(results))
	for _, res := range results {
		ids = append(ids, res.ID)
		byID[res.ID] = res
		res.Numbers = []int{}
	}

	var rows []model.DrawNumber
	if err := db.Where("result_id IN ?", ids).Order("result_id ASC, position ASC").Find(&rows).Error; err != nil {
		return fmt.Errorf("load result numbers: %w", err)
	}
	for _, row := range rows {
		if res, ok := byID[row.ResultID]; ok {
			res.Numbers = append(res.Numbers, row.Number)
		}
	}
	return nil
}
