package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskapi/internal/service"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	svc service.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(svc service.CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// CreateCategoryRequest represents a new category.
type CreateCategoryRequest struct {
	Name  string  `json:"name" validate:"required,min=3,max=20"`
	Color *string `json:"color" validate:"omitempty,len=7,hexcolor" example:"#ff8800"`
}

// UpdateCategoryRequest carries the category fields to change.
type UpdateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=3,max=20"`
	Color *string `json:"color" validate:"omitempty,len=7,hexcolor" example:"#ff8800"`
}

// CategoryDeletedResponse confirms a category removal.
type CategoryDeletedResponse struct {
	Message    string    `json:"message"`
	CategoryID uuid.UUID `json:"category_id"`
}

// DefaultsRestoredResponse reports how many default categories were recreated.
type DefaultsRestoredResponse struct {
	Created int `json:"created"`
}

// Create godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCategoryRequest true "Category"
// @Success 201 {object} CategoryResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /categories [post]
func (h *CategoryHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req CreateCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := h.svc.Create(c.Request().Context(), p, service.CategoryInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, newCategoryResponse(category))
}

// List godoc
// @Summary List the caller's categories
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Success 200 {array} CategoryResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /categories [get]
func (h *CategoryHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	categories, err := h.svc.List(c.Request().Context(), p)
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, newCategoryResponse(&categories[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get godoc
// @Summary Get a category with its tasks
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} CategoryResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	category, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newCategoryResponse(category))
}

// Update godoc
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param request body UpdateCategoryRequest true "Fields to change"
// @Success 200 {object} CategoryResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /categories/{id} [patch]
func (h *CategoryHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := h.svc.Update(c.Request().Context(), p, id, service.CategoryPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newCategoryResponse(category))
}

// Delete godoc
// @Summary Delete a category
// @Description The category is detached from every task; the tasks remain.
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} CategoryDeletedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c echo.Context) error {
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
	return c.JSON(http.StatusOK, CategoryDeletedResponse{Message: "category deleted", CategoryID: id})
}

// RestoreDefaults godoc
// @Summary Recreate missing default categories
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DefaultsRestoredResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /categories/defaults [post]
func (h *CategoryHandler) RestoreDefaults(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	created, err := h.svc.RestoreDefaults(c.Request().Context(), p)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, DefaultsRestoredResponse{Created: created})
}
