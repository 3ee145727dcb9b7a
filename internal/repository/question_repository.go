package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dental-captcha/internal/model"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&questions).Error; err != nil {
		return fmt.Errorf("create questions batch failed: %w", err)
	}
	return nil
}

// ListActiveIDs returns the ids of every question that can be drawn into a session.
func (r *QuestionRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Question{}).
		Where("active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list active question ids failed: %w", err)
	}
	return ids, nil
}

func (r *QuestionRepository) ListActive(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list active questions failed: %w", err)
	}
	return questions, nil
}

// GetByIDs returns questions keyed by id; inactive questions are included.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]model.Question, error) {
	out := make(map[uint]model.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var questions []model.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("get questions by ids failed: %w", err)
	}
	for _, q := range questions {
		out[q.ID] = q
	}
	return out, nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question failed: %w", err)
	}
	return &question, nil
}

func (r *QuestionRepository) Deactivate(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Question{}).
		Where("id = ?", id).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("deactivate question failed: %w", err)
	}
	return nil
}

func (r *QuestionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Question{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count questions failed: %w", err)
	}
	return count, nil
}
