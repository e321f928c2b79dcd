package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskapi/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest follows the OAuth2 password flow: username carries the email.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  string  `json:"last_name" validate:"required,min=2,max=50"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=50"`
}

// RegisterResponse is the created user together with a ready-to-use access token.
type RegisterResponse struct {
	UserResponse
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login godoc
// @Summary Exchange credentials for an access token
// @Tags auth
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param username formData string true "Email address"
// @Param password formData string true "Password"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
	})
}

// Register godoc
// @Summary Register a new user
// @Description Creates the account, provisions the default categories and returns an access token.
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} RegisterResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.authService.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, RegisterResponse{
		UserResponse: newUserResponse(user),
		AccessToken:  token.Token,
		TokenType:    token.TokenType,
	})
}
