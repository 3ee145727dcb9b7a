package model

import "time"

type Annotation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;uniqueIndex:idx_annotation_session_question" json:"session_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_annotation_session_question;index" json:"question_id"`
	IsCorrect  *bool     `json:"is_correct"`
	TimeSpent  *float64  `json:"time_spent"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

type AnnotationImage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AnnotationID uint      `gorm:"not null;uniqueIndex:idx_annotation_image" json:"annotation_id"`
	ImageID      uint      `gorm:"not null;uniqueIndex:idx_annotation_image" json:"image_id"`
	CreatedAt    time.Time `json:"created_at"`
}
