package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dental-captcha/internal/model"
)

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// IncrementAnnotations creates the row with total_annotations = 1 or adds one
// to the existing counter. accuracy_rate and daily_streak are left as they are.
func (r *StatsRepository) IncrementAnnotations(ctx context.Context, userID uint, at time.Time) error {
	stats := model.UserStats{
		UserID:           userID,
		TotalAnnotations: 1,
		LastActive:       at,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_annotations": gorm.Expr("total_annotations + ?", 1),
			"last_active":       at,
		}),
	}).Create(&stats).Error
	if err != nil {
		return fmt.Errorf("increment user stats failed: %w", err)
	}
	return nil
}

// SubtractAnnotations lowers the counter when annotations are removed by a
// session delete. It never goes below zero.
func (r *StatsRepository) SubtractAnnotations(ctx context.Context, userID uint, n int64) error {
	if n <= 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Update("total_annotations", gorm.Expr("CASE WHEN total_annotations > ? THEN total_annotations - ? ELSE 0 END", n, n)).Error
	if err != nil {
		return fmt.Errorf("subtract user stats failed: %w", err)
	}
	return nil
}

// SetTotalAnnotations overwrites the counter with a recount from the ledger.
// last_active is only set when the row is created.
func (r *StatsRepository) SetTotalAnnotations(ctx context.Context, userID uint, total int64, at time.Time) error {
	stats := model.UserStats{
		UserID:           userID,
		TotalAnnotations: int(total),
		LastActive:       at,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"total_annotations": total}),
	}).Create(&stats).Error
	if err != nil {
		return fmt.Errorf("set user stats total failed: %w", err)
	}
	return nil
}

func (r *StatsRepository) GetByUserID(ctx context.Context, userID uint) (*model.UserStats, error) {
	var stats model.UserStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user stats failed: %w", err)
	}
	return &stats, nil
}

func (r *StatsRepository) Top(ctx context.Context, limit int) ([]model.UserStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var stats []model.UserStats
	if err := r.db.WithContext(ctx).
		Where("total_annotations > ?", 0).
		Order("total_annotations DESC, user_id ASC").
		Limit(limit).
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("list top user stats failed: %w", err)
	}
	return stats, nil
}
