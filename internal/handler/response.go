package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskapi/internal/auth"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
)

// PrincipalContextKey is where the auth middleware stores the authenticated auth.Principal.
const PrincipalContextKey = "principal"

// dateLayout is the wire format of due dates.
const dateLayout = time.DateOnly

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   *string    `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// TokenResponse is returned by login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CategorySummary is a category as embedded in a task.
type CategorySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color *string   `json:"color"`
}

// TaskSummary is a task as embedded in a category.
type TaskSummary struct {
	ID      uuid.UUID        `json:"id"`
	Name    string           `json:"name"`
	Status  model.TaskStatus `json:"status"`
	DueDate *string          `json:"due_date"`
}

// TaskResponse is the public view of a task with its categories.
type TaskResponse struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	DueDate     *string           `json:"due_date"`
	Status      model.TaskStatus  `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at"`
	Categories  []CategorySummary `json:"categories"`
}

// CategoryResponse is the public view of a category with its tasks.
type CategoryResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Color     *string       `json:"color"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at"`
	Tasks     []TaskSummary `json:"tasks"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func newTaskResponse(t *model.Task) TaskResponse {
	categories := make([]CategorySummary, 0, len(t.Categories))
	for _, c := range t.Categories {
		categories = append(categories, CategorySummary{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Name:        t.Name,
		Description: t.Description,
		DueDate:     formatDate(t.DueDate),
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Categories:  categories,
	}
}

func newCategoryResponse(c *model.Category) CategoryResponse {
	tasks := make([]TaskSummary, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		tasks = append(tasks, TaskSummary{ID: t.ID, Name: t.Name, Status: t.Status, DueDate: formatDate(t.DueDate)})
	}
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Tasks:     tasks,
	}
}

// errorResponse maps a service error onto an *echo.HTTPError carrying errors.ErrorResponse.
func errorResponse(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	switch {
	case httpErr.StatusCode >= http.StatusInternalServerError:
		slog.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	case httpErr.StatusCode == http.StatusUnauthorized:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func validationError(message string) error {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, apperrors.ErrorResponse{
		Error: message,
		Code:  "VALIDATION_ERROR",
	})
}

// bindAndValidate decodes the request into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return validationError("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return validationError(err.Error())
	}
	return nil
}

// principal returns the caller set by the auth middleware.
func principal(c echo.Context) (auth.Principal, error) {
	p, ok := c.Get(PrincipalContextKey).(auth.Principal)
	if !ok {
		return auth.Principal{}, errorResponse(c, apperrors.ErrInvalidToken)
	}
	return p, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, validationError("invalid id")
	}
	return id, nil
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, errors.New("due_date must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}
