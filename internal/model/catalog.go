package model

import "time"

// Question is soft-deleted through Active so that sessions keep pointing at it.
type Question struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"column:question_text;type:text;not null" json:"question_text"`
	Type      string    `gorm:"column:question_type;size:64;not null" json:"question_type"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	URL       string    `gorm:"column:image_url;size:1024;not null" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}
