package model

import "time"

// User is an annotator account. IsAdmin gates the catalog import routes.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	FirstName    string    `gorm:"size:50" json:"first_name,omitempty"`
	LastName     string    `gorm:"size:50" json:"last_name,omitempty"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// DataConsent opts the user into the admin annotation report.
	DataConsent      bool       `gorm:"not null;default:false" json:"data_consent"`
	ConsentUpdatedAt *time.Time `json:"consent_updated_at,omitempty"`
}
