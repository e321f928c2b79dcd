package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskapi/internal/auth"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
	"taskapi/internal/repository"
)

// CategoryInput holds the fields of a new category.
type CategoryInput struct {
	Name  string
	Color *string
}

// CategoryPatch carries the category fields to change. Nil fields are left as they are.
type CategoryPatch struct {
	Name  *string
	Color *string
}

// CategoryService manages the caller's categories.
type CategoryService interface {
	Create(ctx context.Context, principal auth.Principal, input CategoryInput) (*model.Category, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.Category, error)
	List(ctx context.Context, principal auth.Principal) ([]model.Category, error)
	Update(ctx context.Context, principal auth.Principal, id uuid.UUID, patch CategoryPatch) (*model.Category, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error
	// ProvisionDefaults creates the default categories the owner is missing and returns how many it created.
	ProvisionDefaults(ctx context.Context, ownerID uuid.UUID) (int, error)
	RestoreDefaults(ctx context.Context, principal auth.Principal) (int, error)
	// Scope exposes the ownership scope so other services can resolve categories by the same rules.
	Scope() *Scope[model.Category, *model.Category]
}

type categoryService struct {
	repo  repository.CategoryRepository
	scope *Scope[model.Category, *model.Category]
}

// NewCategoryService creates a new category service.
func NewCategoryService(repo repository.CategoryRepository, clock Clock) CategoryService {
	return &categoryService{
		repo:  repo,
		scope: NewScope[model.Category, *model.Category](repo, apperrors.ErrCategoryNotFound, clock),
	}
}

func (s *categoryService) Scope() *Scope[model.Category, *model.Category] {
	return s.scope
}

func (s *categoryService) Create(ctx context.Context, principal auth.Principal, input CategoryInput) (*model.Category, error) {
	if err := s.ensureNameFree(ctx, principal.UserID, input.Name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: input.Name, Color: input.Color}
	created, err := s.scope.Create(ctx, category, principal)
	if err != nil {
		return nil, s.translate(err, "create category")
	}
	return created, nil
}

func (s *categoryService) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.Category, error) {
	return s.scope.Resolve(ctx, id, principal)
}

func (s *categoryService) List(ctx context.Context, principal auth.Principal) ([]model.Category, error) {
	categories, err := s.scope.List(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, patch CategoryPatch) (*model.Category, error) {
	updated, err := s.scope.Update(ctx, id, principal, func(category *model.Category) error {
		if patch.Name != nil && *patch.Name != category.Name {
			if err := s.ensureNameFree(ctx, principal.UserID, *patch.Name, category.ID); err != nil {
				return err
			}
			category.Name = *patch.Name
		}
		if patch.Color != nil {
			category.Color = patch.Color
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "update category")
	}
	return updated, nil
}

// Delete removes the category and detaches it from the owner's tasks.
func (s *categoryService) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	if err := s.scope.Delete(ctx, id, principal); err != nil {
		return s.translate(err, "delete category")
	}
	return nil
}

func (s *categoryService) ProvisionDefaults(ctx context.Context, ownerID uuid.UUID) (int, error) {
	owner := auth.Principal{UserID: ownerID}
	created := 0
	for _, name := range model.DefaultCategoryNames {
		_, err := s.repo.FindByOwnerAndName(ctx, ownerID, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("find category %q: %w", name, err)
		}
		if _, err := s.scope.Create(ctx, &model.Category{Name: name}, owner); err != nil {
			// Lost a race with a concurrent provisioning run.
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("create category %q: %w", name, err)
		}
		created++
	}
	return created, nil
}

func (s *categoryService) RestoreDefaults(ctx context.Context, principal auth.Principal) (int, error) {
	return s.ProvisionDefaults(ctx, principal.UserID)
}

func (s *categoryService) ensureNameFree(ctx context.Context, ownerID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.repo.FindByOwnerAndName(ctx, ownerID, name)
	if err == nil && existing.ID != self {
		return apperrors.ErrCategoryNameTaken
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check category name: %w", err)
	}
	return nil
}

func (s *categoryService) translate(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.ErrCategoryNameTaken
	case errors.Is(err, apperrors.ErrCategoryNotFound),
		errors.Is(err, apperrors.ErrCategoryNameTaken):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
