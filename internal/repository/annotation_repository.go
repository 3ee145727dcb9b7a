package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"dental-captcha/internal/model"
)

type AnnotationRepository struct {
	db *gorm.DB
}

func NewAnnotationRepository(db *gorm.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// CreateWithImages inserts the annotation and one annotation_images row per
// selected id, in the order given.
func (r *AnnotationRepository) CreateWithImages(ctx context.Context, annotation *model.Annotation, imageIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(annotation).Error; err != nil {
		return fmt.Errorf("create annotation failed: %w", err)
	}
	if len(imageIDs) == 0 {
		return nil
	}
	rows := make([]model.AnnotationImage, len(imageIDs))
	for i, imageID := range imageIDs {
		rows[i] = model.AnnotationImage{
			AnnotationID: annotation.ID,
			ImageID:      imageID,
		}
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("create annotation images failed: %w", err)
	}
	return nil
}

func (r *AnnotationRepository) Exists(ctx context.Context, sessionID, questionID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Annotation{}).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check annotation failed: %w", err)
	}
	return count > 0, nil
}

func (r *AnnotationRepository) CountBySessionID(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Annotation{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count annotations failed: %w", err)
	}
	return count, nil
}

// CountByUserID counts annotations across every session the user owns.
func (r *AnnotationRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Annotation{}).
		Joins("JOIN sessions ON sessions.id = annotations.session_id").
		Where("sessions.user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count user annotations failed: %w", err)
	}
	return count, nil
}

// ReportByUser aggregates answers per consenting user. Users without any
// answer are not listed.
func (r *AnnotationRepository) ReportByUser(ctx context.Context) ([]model.UserAnnotationReport, error) {
	var rows []model.UserAnnotationReport
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.username, users.email, "+
			"COUNT(annotations.id) AS total_attempts, "+
			"COALESCE(SUM(CASE WHEN annotations.is_correct = ? THEN 1 ELSE 0 END), 0) AS correct_answers, "+
			"COALESCE(SUM(CASE WHEN annotations.is_correct = ? THEN 1 ELSE 0 END), 0) AS incorrect_answers, "+
			"COALESCE(AVG(annotations.time_spent), 0) AS avg_time_spent", true, false).
		Joins("JOIN sessions ON sessions.user_id = users.id").
		Joins("JOIN annotations ON annotations.session_id = sessions.id").
		Where("users.data_consent = ?", true).
		Group("users.id, users.username, users.email").
		Order("users.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("report annotations by user failed: %w", err)
	}
	return rows, nil
}

func (r *AnnotationRepository) ListBySessionID(ctx context.Context, sessionID uint) ([]model.Annotation, error) {
	var annotations []model.Annotation
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&annotations).Error; err != nil {
		return nil, fmt.Errorf("list session annotations failed: %w", err)
	}
	return annotations, nil
}

// ListByUserID returns every annotation in the user's sessions, newest first.
func (r *AnnotationRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Annotation, error) {
	var annotations []model.Annotation
	if err := r.db.WithContext(ctx).
		Joins("JOIN sessions ON sessions.id = annotations.session_id").
		Where("sessions.user_id = ?", userID).
		Order("annotations.created_at DESC, annotations.id DESC").
		Find(&annotations).Error; err != nil {
		return nil, fmt.Errorf("list user annotations failed: %w", err)
	}
	return annotations, nil
}

// ImageIDsByAnnotationIDs groups selected image ids per annotation in
// insertion order.
func (r *AnnotationRepository) ImageIDsByAnnotationIDs(ctx context.Context, annotationIDs []uint) (map[uint][]uint, error) {
	out := make(map[uint][]uint, len(annotationIDs))
	if len(annotationIDs) == 0 {
		return out, nil
	}
	var rows []model.AnnotationImage
	if err := r.db.WithContext(ctx).
		Where("annotation_id IN ?", annotationIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list annotation images failed: %w", err)
	}
	for _, row := range rows {
		out[row.AnnotationID] = append(out[row.AnnotationID], row.ImageID)
	}
	return out, nil
}

// SetGrade records the grading result. It reports false when the annotation
// does not exist.
func (r *AnnotationRepository) SetGrade(ctx context.Context, annotationID uint, isCorrect bool) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Annotation{}).
		Where("id = ?", annotationID).
		Update("is_correct", isCorrect)
	if result.Error != nil {
		return false, fmt.Errorf("set annotation grade failed: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	// MySQL reports zero affected rows when the value is unchanged.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Annotation{}).Where("id = ?", annotationID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check annotation failed: %w", err)
	}
	return count > 0, nil
}
