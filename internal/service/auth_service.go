package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskapi/internal/auth"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
	"taskapi/internal/repository"
)

// dummyHash is compared against when the email is unknown so both failure paths cost one bcrypt run.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("unknown-account")
	return hash
})

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	FirstName *string
	LastName  string
	Email     string
	Password  string
}

// AccessToken is a signed bearer token and its expiry.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// DefaultsProvisioner creates the starter categories of a new account.
type DefaultsProvisioner interface {
	ProvisionDefaults(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (AccessToken, error)
	IssueToken(user *model.User) (AccessToken, error)
	// ResolvePrincipal validates a bearer token and loads the user it names.
	ResolvePrincipal(ctx context.Context, token string) (auth.Principal, error)
}

type authService struct {
	users    repository.UserRepository
	lookup   UserService
	defaults DefaultsProvisioner
	tokens   *auth.TokenService
	now      Clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, lookup UserService, defaults DefaultsProvisioner, tokens *auth.TokenService, clock Clock) AuthService {
	if clock == nil {
		clock = systemClock
	}
	return &authService{
		users:    users,
		lookup:   lookup,
		defaults: defaults,
		tokens:   tokens,
		now:      clock,
	}
}

// Register creates a new account with hashed password and its default categories.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := NormalizeEmail(input.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if _, err := s.defaults.ProvisionDefaults(ctx, user.ID); err != nil {
		err = fmt.Errorf("provision default categories: %w", err)
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			return nil, errors.Join(err, fmt.Errorf("remove partially registered user %s: %w", user.ID, delErr))
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks the password of the user registered under email.
// Unknown emails and wrong passwords fail with the same error.
func (s *authService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		auth.VerifyPassword(password, dummyHash())
		return nil, apperrors.ErrInvalidCredentials
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the user, records the login time and issues an access token.
func (s *authService) Login(ctx context.Context, email, password string) (AccessToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return AccessToken{}, err
	}
	if err := s.lookup.RecordLogin(ctx, user.ID, s.now()); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return AccessToken{}, apperrors.ErrInvalidCredentials
		}
		return AccessToken{}, err
	}
	return s.IssueToken(user)
}

func (s *authService) IssueToken(user *model.User) (AccessToken, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return AccessToken{Token: token, TokenType: auth.TokenType, ExpiresAt: expiresAt}, nil
}

func (s *authService) ResolvePrincipal(ctx context.Context, token string) (auth.Principal, error) {
	userID, err := s.tokens.Validate(token, s.now())
	if err != nil {
		return auth.Principal{}, err
	}
	principal, err := s.lookup.Lookup(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return auth.Principal{}, apperrors.ErrPrincipalNotFound
		}
		return auth.Principal{}, err
	}
	return principal, nil
}
