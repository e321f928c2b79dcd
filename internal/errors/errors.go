package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// Unknown emails and wrong passwords share this value.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for malformed, tampered or expired access tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrPrincipalNotFound is returned when a valid token names a user that no longer exists.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when a task is absent or owned by another user.
	ErrTaskNotFound = errors.New("task not found")
	// ErrCategoryNotFound is returned when a category is absent or owned by another user.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already in use")
	// ErrCategoryNameTaken is returned when the owner already has a category with that name.
	ErrCategoryNameTaken = errors.New("category name already in use")

	// ErrUnknownCategory is returned when a task references a category the caller does not own.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrValidation is returned when input fails field constraints.
	ErrValidation = errors.New("validation failed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// UnauthorizedMessage is the body returned for every authentication failure.
const UnauthorizedMessage = "could not validate credentials"

// IsUnauthorized reports whether err is one of the authentication failures.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrPrincipalNotFound)
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "incorrect username or password", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrPrincipalNotFound):
		return NewHTTPError(http.StatusUnauthorized, UnauthorizedMessage, "UNAUTHORIZED")
	case errors.Is(err, ErrTaskNotFound):
		return NewHTTPError(http.StatusNotFound, ErrTaskNotFound.Error(), "TASK_NOT_FOUND")
	case errors.Is(err, ErrCategoryNotFound):
		return NewHTTPError(http.StatusNotFound, ErrCategoryNotFound.Error(), "CATEGORY_NOT_FOUND")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrEmailTaken):
		return NewHTTPError(http.StatusConflict, ErrEmailTaken.Error(), "EMAIL_TAKEN")
	case errors.Is(err, ErrCategoryNameTaken):
		return NewHTTPError(http.StatusConflict, ErrCategoryNameTaken.Error(), "CATEGORY_NAME_TAKEN")
	case errors.Is(err, ErrUnknownCategory):
		return NewHTTPError(http.StatusUnprocessableEntity, ErrUnknownCategory.Error(), "UNKNOWN_CATEGORY")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
