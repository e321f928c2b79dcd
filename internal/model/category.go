package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultCategoryNames are provisioned for every new account.
var DefaultCategoryNames = []string{"financial", "health", "home", "personal", "work"}

// Category groups tasks for a single user. Names are unique per owner.
type Category struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_category_owner_name"`
	Name      string     `json:"name" gorm:"size:20;not null;uniqueIndex:idx_category_owner_name"`
	Color     *string    `json:"color,omitempty" gorm:"size:7"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`

	// Relations
	Tasks []Task `json:"tasks,omitempty" gorm:"many2many:task_categories;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// OwnerID returns the id of the owning user.
func (c *Category) OwnerID() uuid.UUID { return c.UserID }

// AssignOwner sets the owning user.
func (c *Category) AssignOwner(id uuid.UUID) { c.UserID = id }

// MarkCreated stamps the creation time.
func (c *Category) MarkCreated(now time.Time) {
	c.CreatedAt = now
	c.UpdatedAt = nil
}

// MarkUpdated stamps the last-updated time.
func (c *Category) MarkUpdated(now time.Time) { c.UpdatedAt = &now }
