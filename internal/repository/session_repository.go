package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dental-captcha/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithBindings inserts the session row and then its bindings. Callers
// run it inside Store.Transaction so the set materializes as one unit.
func (r *SessionRepository) CreateWithBindings(
	ctx context.Context,
	session *model.Session,
	images []model.SessionImage,
	questions []model.SessionQuestion,
) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	for i := range images {
		images[i].SessionID = session.ID
	}
	for i := range questions {
		questions[i].SessionID = session.ID
	}
	if len(images) > 0 {
		if err := db.Create(&images).Error; err != nil {
			return fmt.Errorf("create session images failed: %w", err)
		}
	}
	if len(questions) > 0 {
		if err := db.Create(&questions).Error; err != nil {
			return fmt.Errorf("create session questions failed: %w", err)
		}
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uint) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

// Lock bumps lock_version on the session row, which holds the row write lock
// until the surrounding transaction ends. It reports false when no row matched.
func (r *SessionRepository) Lock(ctx context.Context, sessionID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", sessionID).
		UpdateColumn("lock_version", gorm.Expr("lock_version + ?", 1))
	if result.Error != nil {
		return false, fmt.Errorf("lock session failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted flips an open session to completed. The is_completed guard
// makes the transition happen at most once.
func (r *SessionRepository) MarkCompleted(ctx context.Context, sessionID uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND is_completed = ?", sessionID, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark session completed failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Session, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) ListImageBindings(ctx context.Context, sessionID uint) ([]model.SessionImage, error) {
	var bindings []model.SessionImage
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("image_order ASC").
		Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("list session images failed: %w", err)
	}
	return bindings, nil
}

func (r *SessionRepository) ListQuestionBindings(ctx context.Context, sessionID uint) ([]model.SessionQuestion, error) {
	var bindings []model.SessionQuestion
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_order ASC").
		Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("list session questions failed: %w", err)
	}
	return bindings, nil
}

func (r *SessionRepository) HasQuestion(ctx context.Context, sessionID, questionID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.SessionQuestion{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check session question failed: %w", err)
	}
	return count > 0, nil
}

func (r *SessionRepository) CountQuestions(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.SessionQuestion{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count session questions failed: %w", err)
	}
	return count, nil
}

// BoundImageIDs returns the set of image ids bound to the session.
func (r *SessionRepository) BoundImageIDs(ctx context.Context, sessionID uint) (map[uint]struct{}, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.SessionImage{}).
		Where("session_id = ?", sessionID).
		Pluck("image_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list bound image ids failed: %w", err)
	}
	out := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// DeleteCascade removes the session and everything it owns, leaf rows first.
func (r *SessionRepository) DeleteCascade(ctx context.Context, sessionID uint) error {
	db := r.db.WithContext(ctx)

	annotationIDs := db.Model(&model.Annotation{}).Select("id").Where("session_id = ?", sessionID)
	if err := db.Where("annotation_id IN (?)", annotationIDs).Delete(&model.AnnotationImage{}).Error; err != nil {
		return fmt.Errorf("delete annotation images failed: %w", err)
	}
	if err := db.Where("session_id = ?", sessionID).Delete(&model.Annotation{}).Error; err != nil {
		return fmt.Errorf("delete annotations failed: %w", err)
	}
	if err := db.Where("session_id = ?", sessionID).Delete(&model.SessionImage{}).Error; err != nil {
		return fmt.Errorf("delete session images failed: %w", err)
	}
	if err := db.Where("session_id = ?", sessionID).Delete(&model.SessionQuestion{}).Error; err != nil {
		return fmt.Errorf("delete session questions failed: %w", err)
	}
	if err := db.Delete(&model.Session{}, sessionID).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
