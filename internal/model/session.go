package model

import "time"

type Session struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	// LockVersion is bumped at the start of every submission transaction to
	// take the row write lock.
	LockVersion uint `gorm:"not null;default:0" json:"-"`
}

type SessionImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;uniqueIndex:idx_session_image_order;uniqueIndex:idx_session_image" json:"session_id"`
	ImageID    uint      `gorm:"not null;uniqueIndex:idx_session_image;index" json:"image_id"`
	ImageOrder int       `gorm:"not null;uniqueIndex:idx_session_image_order" json:"image_order"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionQuestion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     uint      `gorm:"not null;uniqueIndex:idx_session_question_order;uniqueIndex:idx_session_question" json:"session_id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_session_question;index" json:"question_id"`
	QuestionOrder int       `gorm:"not null;uniqueIndex:idx_session_question_order" json:"question_order"`
	CreatedAt     time.Time `json:"created_at"`
}
