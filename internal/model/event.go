package model

import "time"

const (
	EventSessionCompleted = "session.completed"
)

// SessionEvent is published to the broker once a session transaction commits.
type SessionEvent struct {
	Type        string    `json:"type"`
	SessionID   uint      `json:"session_id"`
	UserID      uint      `json:"user_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Annotations []uint    `json:"annotation_ids,omitempty"`
}

// GradeResult is consumed from the grading subsystem.
type GradeResult struct {
	AnnotationID uint `json:"annotation_id"`
	IsCorrect    bool `json:"is_correct"`
}

// AllTables lists every table in migration order.
func AllTables() []interface{} {
	return []interface{}{
		&User{},
		&Question{},
		&Image{},
		&Session{},
		&SessionImage{},
		&SessionQuestion{},
		&Annotation{},
		&AnnotationImage{},
		&UserStats{},
	}
}
