package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskapi/internal/auth"
	"taskapi/internal/cache"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
	"taskapi/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// ProfilePatch carries the profile fields to change. Nil fields are left as they are.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

// UserService exposes account operations for the authenticated user.
type UserService interface {
	// Lookup resolves a token subject to a principal. It always reads the store.
	Lookup(ctx context.Context, id uuid.UUID) (auth.Principal, error)
	// Profile returns the caller's account, served from cache when possible.
	// The cached copy carries no password hash.
	Profile(ctx context.Context, principal auth.Principal) (*model.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateProfile(ctx context.Context, principal auth.Principal, patch ProfilePatch) (*model.User, error)
	Delete(ctx context.Context, principal auth.Principal) error
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	now   Clock
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, clock Clock) UserService {
	if clock == nil {
		clock = systemClock
	}
	return &userService{repo: repo, cache: cache, now: clock}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func (s *userService) Lookup(ctx context.Context, id uuid.UUID) (auth.Principal, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{UserID: user.ID, Email: user.Email}, nil
}

func (s *userService) Profile(ctx context.Context, principal auth.Principal) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(principal.UserID), &cached) && cached.ID == principal.UserID {
		return &cached, nil
	}

	user, err := s.load(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, s.cacheKey(user.ID), user, userCacheTTL)
	return user, nil
}

// RecordLogin stamps last_login_at and drops the cached profile.
func (s *userService) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := s.repo.TouchLastLogin(ctx, id, at); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("record login: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return nil
}

func (s *userService) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies patch. A new password is re-hashed and a new email must be free.
func (s *userService) UpdateProfile(ctx context.Context, principal auth.Principal, patch ProfilePatch) (*model.User, error) {
	user, err := s.load(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		user.FirstName = patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email != user.Email {
			existing, err := s.repo.FindByEmail(ctx, email)
			if err == nil && existing.ID != user.ID {
				return nil, apperrors.ErrEmailTaken
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("check email: %w", err)
			}
			user.Email = email
		}
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(user.ID))
	return user, nil
}

// Delete removes the account with all of its tasks and categories.
func (s *userService) Delete(ctx context.Context, principal auth.Principal) error {
	if err := s.repo.Delete(ctx, principal.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(principal.UserID))
	return nil
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
