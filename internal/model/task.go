package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus represents the progress of a task.
type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work owned by a single user.
type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:char(36);not null;index"`
	Name        string     `json:"name" gorm:"size:50;not null"`
	Description *string    `json:"description,omitempty" gorm:"size:500"`
	DueDate     *time.Time `json:"due_date,omitempty" gorm:"type:date"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:'not_started';index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime:false;index"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`

	// Relations
	Categories []Category `json:"categories" gorm:"many2many:task_categories;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// OwnerID returns the id of the owning user.
func (t *Task) OwnerID() uuid.UUID { return t.UserID }

// AssignOwner sets the owning user.
func (t *Task) AssignOwner(id uuid.UUID) { t.UserID = id }

// MarkCreated stamps the creation time and applies defaults.
func (t *Task) MarkCreated(now time.Time) {
	t.CreatedAt = now
	t.UpdatedAt = nil
	if t.Status == "" {
		t.Status = TaskStatusNotStarted
	}
}

// MarkUpdated stamps the last-updated time.
func (t *Task) MarkUpdated(now time.Time) { t.UpdatedAt = &now }

// CategoryIDs returns the ids of the attached categories.
func (t *Task) CategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Categories))
	for _, c := range t.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

// TaskCategory links a task to a category.
type TaskCategory struct {
	TaskID     uuid.UUID `gorm:"type:char(36);primaryKey"`
	CategoryID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
}

// TableName pins the join table name shared with the many2many tags.
func (TaskCategory) TableName() string { return "task_categories" }
