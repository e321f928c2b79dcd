package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskapi/internal/auth"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
)

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Name        string
	Description *string
	DueDate     *time.Time
	Status      model.TaskStatus
	CategoryIDs []uuid.UUID
}

// TaskPatch carries the task fields to change. Nil fields are left as they are.
// A non-nil CategoryIDs, even an empty one, replaces the task's categories.
type TaskPatch struct {
	Name        *string
	Description *string
	DueDate     *time.Time
	Status      *model.TaskStatus
	CategoryIDs []uuid.UUID
}

// TaskService manages the caller's tasks.
type TaskService interface {
	Create(ctx context.Context, principal auth.Principal, input TaskInput) (*model.Task, error)
	Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, principal auth.Principal) ([]model.Task, error)
	Update(ctx context.Context, principal auth.Principal, id uuid.UUID, patch TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error
}

type taskService struct {
	scope      *Scope[model.Task, *model.Task]
	categories *Scope[model.Category, *model.Category]
}

// NewTaskService creates a task service. Category references are resolved through categories.
func NewTaskService(store OwnedStore[model.Task], categories *Scope[model.Category, *model.Category], clock Clock) TaskService {
	return &taskService{
		scope:      NewScope[model.Task, *model.Task](store, apperrors.ErrTaskNotFound, clock),
		categories: categories,
	}
}

func (s *taskService) Create(ctx context.Context, principal auth.Principal, input TaskInput) (*model.Task, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, input.Status)
	}
	categories, err := s.resolveCategories(ctx, principal, input.CategoryIDs)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Name:        input.Name,
		Description: input.Description,
		DueDate:     input.DueDate,
		Status:      input.Status,
		Categories:  categories,
	}
	created, err := s.scope.Create(ctx, task, principal)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

func (s *taskService) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*model.Task, error) {
	return s.scope.Resolve(ctx, id, principal)
}

func (s *taskService) List(ctx context.Context, principal auth.Principal) ([]model.Task, error) {
	tasks, err := s.scope.List(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *taskService) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, patch TaskPatch) (*model.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *patch.Status)
	}

	updated, err := s.scope.Update(ctx, id, principal, func(task *model.Task) error {
		if patch.CategoryIDs != nil {
			categories, err := s.resolveCategories(ctx, principal, patch.CategoryIDs)
			if err != nil {
				return err
			}
			task.Categories = categories
		}
		if patch.Name != nil {
			task.Name = *patch.Name
		}
		if patch.Description != nil {
			task.Description = patch.Description
		}
		if patch.DueDate != nil {
			task.DueDate = patch.DueDate
		}
		if patch.Status != nil {
			task.Status = *patch.Status
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTaskNotFound) || errors.Is(err, apperrors.ErrUnknownCategory) {
			return nil, err
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (s *taskService) Delete(ctx context.Context, principal auth.Principal, id uuid.UUID) error {
	return s.scope.Delete(ctx, id, principal)
}

// resolveCategories resolves every id against the caller's own categories.
// Absent and foreign ids fail the whole operation; repeated ids are collapsed.
func (s *taskService) resolveCategories(ctx context.Context, principal auth.Principal, ids []uuid.UUID) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		category, err := s.categories.Resolve(ctx, id, principal)
		if err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownCategory, id)
			}
			return nil, err
		}
		category.Tasks = nil
		categories = append(categories, *category)
	}
	return categories, nil
}
