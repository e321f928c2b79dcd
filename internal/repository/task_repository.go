package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskapi/internal/model"
)

// TaskRepository defines task persistence operations.
// Writes persist the task's category set through the task_categories link table.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create inserts the task and links its categories.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Create(task).Error; err != nil {
			return translate(err)
		}
		return replaceTaskLinks(tx, task)
	})
}

// Update saves scalar fields and replaces the category links with task.Categories.
func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Save(task).Error; err != nil {
			return translate(err)
		}
		return replaceTaskLinks(tx, task)
	})
}

// Delete removes the task and its category links.
func (r *taskRepository) Delete(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&model.TaskCategory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", task.ID).Delete(&model.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindByID finds a task by ID with its categories.
func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// ListByOwner lists the owner's tasks, oldest first.
func (r *taskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Where("user_id = ?", ownerID).
		Order("created_at, id").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func replaceTaskLinks(tx *gorm.DB, task *model.Task) error {
	if err := tx.Where("task_id = ?", task.ID).Delete(&model.TaskCategory{}).Error; err != nil {
		return err
	}
	if len(task.Categories) == 0 {
		return nil
	}
	links := make([]model.TaskCategory, 0, len(task.Categories))
	for _, c := range task.Categories {
		links = append(links, model.TaskCategory{TaskID: task.ID, CategoryID: c.ID})
	}
	return tx.Create(&links).Error
}
