package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account owner.
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	FirstName    *string    `json:"first_name,omitempty" gorm:"size:50"`
	LastName     string     `json:"last_name" gorm:"size:50;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime:false"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`

	// Relations
	Tasks      []Task     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Categories []Category `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
