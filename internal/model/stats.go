package model

import "time"

// UserStats is one-to-one with User. AccuracyRate and DailyStreak belong to
// the grading subsystem; the annotation path only touches TotalAnnotations
// and LastActive.
type UserStats struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	UserID           uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalPoints      int       `gorm:"not null;default:0" json:"total_points"`
	TotalAnnotations int       `gorm:"not null;default:0" json:"total_annotations"`
	AccuracyRate     float64   `gorm:"not null;default:0" json:"accuracy_rate"`
	DailyStreak      int       `gorm:"not null;default:0" json:"daily_streak"`
	LastActive       time.Time `json:"last_active"`
}

func (UserStats) TableName() string {
	return "user_stats"
}

// LeaderboardEntry is a read model joined from user_stats and users.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	UserID           uint      `json:"user_id"`
	Username         string    `json:"username"`
	TotalAnnotations int       `json:"total_annotations"`
	TotalPoints      int       `json:"total_points"`
	LastActive       time.Time `json:"last_active"`
}

// UserAnnotationReport aggregates one consenting user's graded answers.
// Ungraded answers count as attempts but as neither correct nor incorrect.
type UserAnnotationReport struct {
	UserID             uint    `json:"user_id"`
	Username           string  `json:"username"`
	Email              string  `json:"email"`
	TotalAttempts      int64   `json:"total_attempts"`
	CorrectAnswers     int64   `json:"correct_answers"`
	IncorrectAnswers   int64   `json:"incorrect_answers"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
	AvgTimeSpent       float64 `json:"avg_time_spent"`
}
