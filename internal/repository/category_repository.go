package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskapi/internal/model"
)

// CategoryRepository defines category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*model.Category, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Category, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return translate(r.db.WithContext(ctx).Omit("Tasks").Create(category).Error)
}

func (r *categoryRepository) Update(ctx context.Context, category *model.Category) error {
	return translate(r.db.WithContext(ctx).Omit("Tasks").Save(category).Error)
}

// Delete removes the category and detaches it from every task.
func (r *categoryRepository) Delete(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", category.ID).Delete(&model.TaskCategory{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", category.ID).Delete(&model.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindByID finds a category by ID with its tasks.
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("id = ?", id).
		First(&category).Error
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepository) FindByOwnerAndName(ctx context.Context, ownerID uuid.UUID, name string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", ownerID, name).
		First(&category).Error
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// ListByOwner lists the owner's categories ordered by name.
func (r *categoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Category, error) {
	categories := []model.Category{}
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("user_id = ?", ownerID).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
