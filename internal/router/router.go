package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskapi/docs"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/handler"
	"taskapi/internal/service"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Tasks      *handler.TaskHandler
	Categories *handler.CategoryHandler
}

// Options configures the non-handler parts of the router.
type Options struct {
	SwaggerHost string
	// Health reports storage reachability for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

// Register wires routes and middleware.
func Register(e *echo.Echo, authService service.AuthService, h Handlers, opts Options) {
	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	if opts.SwaggerHost != "" {
		docs.SwaggerInfo.Host = opts.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		if opts.Health != nil {
			if err := opts.Health(c.Request().Context()); err != nil {
				slog.ErrorContext(c.Request().Context(), "health check failed", "error", err)
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/users", h.Auth.Register)

	// Secured routes (require a bearer token naming an existing user)
	secured := api.Group("", BearerAuth(authService))

	secured.GET("/users/me", h.Users.GetMe)
	secured.PATCH("/users/me", h.Users.UpdateMe)
	secured.DELETE("/users/me", h.Users.DeleteMe)

	secured.POST("/tasks", h.Tasks.Create)
	secured.GET("/tasks", h.Tasks.List)
	secured.GET("/tasks/:id", h.Tasks.Get)
	secured.PATCH("/tasks/:id", h.Tasks.Update)
	secured.DELETE("/tasks/:id", h.Tasks.Delete)

	secured.POST("/categories", h.Categories.Create)
	secured.GET("/categories", h.Categories.List)
	secured.POST("/categories/defaults", h.Categories.RestoreDefaults)
	secured.GET("/categories/:id", h.Categories.Get)
	secured.PATCH("/categories/:id", h.Categories.Update)
	secured.DELETE("/categories/:id", h.Categories.Delete)
}

// errPrincipalLookup marks storage failures while resolving a token, which are not the caller's fault.
var errPrincipalLookup = errors.New("principal lookup failed")

// BearerAuth validates the Authorization header and stores the auth.Principal
// under handler.PrincipalContextKey. Authentication failures all yield the same 401 body.
func BearerAuth(authService service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.PrincipalContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			p, err := authService.ResolvePrincipal(c.Request().Context(), token)
			if err != nil && !apperrors.IsUnauthorized(err) {
				return nil, fmt.Errorf("%w: %w", errPrincipalLookup, err)
			}
			return p, err
		},
		ErrorHandler: func(c echo.Context, err error) error {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			if errors.Is(err, errPrincipalLookup) {
				slog.ErrorContext(c.Request().Context(), "resolve principal", "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, apperrors.ErrorResponse{
					Error: "internal server error",
					Code:  "INTERNAL_ERROR",
				})
			}
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: apperrors.UnauthorizedMessage,
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// RequestLogger writes one structured record per request to the default slog logger.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator used for request bodies.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
