package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskapi/internal/service"
)

// UserHandler serves the current user's profile.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler wires a UserHandler.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateUserRequest carries the profile fields to change.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,min=2,max=50"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=50"`
}

// UserDeletedResponse confirms an account removal.
type UserDeletedResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"user_id"`
}

// GetMe godoc
// @Summary Get the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Profile(c.Request().Context(), p)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateMe godoc
// @Summary Update the current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), p, service.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// DeleteMe godoc
// @Summary Delete the current user with all tasks and categories
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDeletedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, UserDeletedResponse{
		Message: "user deleted",
		UserID:  p.UserID,
	})
}
