package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskapi/internal/model"
	"taskapi/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	svc service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(svc service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// CreateTaskRequest represents a new task.
type CreateTaskRequest struct {
	Name        string           `json:"name" validate:"required,min=3,max=50"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	DueDate     *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02" example:"2024-03-10"`
	Status      model.TaskStatus `json:"status" validate:"omitempty,oneof=not_started in_progress done"`
	CategoryIDs []uuid.UUID      `json:"category_ids"`
}

// UpdateTaskRequest carries the task fields to change.
// Sending category_ids, even as an empty list, replaces the task's categories.
type UpdateTaskRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=3,max=50"`
	Description *string           `json:"description" validate:"omitempty,max=500"`
	DueDate     *string           `json:"due_date" validate:"omitempty,datetime=2006-01-02" example:"2024-03-10"`
	Status      *model.TaskStatus `json:"status" validate:"omitempty,oneof=not_started in_progress done"`
	CategoryIDs []uuid.UUID       `json:"category_ids"`
}

// TaskDeletedResponse confirms a task removal.
type TaskDeletedResponse struct {
	Message string    `json:"message"`
	TaskID  uuid.UUID `json:"task_id"`
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return validationError(err.Error())
	}

	task, err := h.svc.Create(c.Request().Context(), p, service.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     dueDate,
		Status:      req.Status,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, newTaskResponse(task))
}

// List godoc
// @Summary List the caller's tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	tasks, err := h.svc.List(c.Request().Context(), p)
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get godoc
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	task, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

// Update godoc
// @Summary Update a task
// @Description Only the fields present in the body change.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to change"
// @Success 200 {object} TaskResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return validationError(err.Error())
	}

	task, err := h.svc.Update(c.Request().Context(), p, id, service.TaskPatch{
		Name:        req.Name,
		Description: req.Description,
		DueDate:     dueDate,
		Status:      req.Status,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} TaskDeletedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, TaskDeletedResponse{Message: "task deleted", TaskID: id})
}
