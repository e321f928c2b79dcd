package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskapi/internal/auth"
	"taskapi/internal/repository"
)

// Clock returns the current time. Services stamp timestamps through it so tests can pin time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// OwnedResource is implemented by pointers to models that belong to exactly one user.
type OwnedResource[T any] interface {
	*T
	OwnerID() uuid.UUID
	AssignOwner(id uuid.UUID)
	MarkCreated(now time.Time)
	MarkUpdated(now time.Time)
}

// OwnedStore is the persistence surface a Scope needs. Task and category repositories satisfy it.
type OwnedStore[T any] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, item *T) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]T, error)
}

// Scope restricts every read and write of one resource kind to the calling principal.
// A resource owned by someone else is reported with the same error as a missing one.
type Scope[T any, P OwnedResource[T]] struct {
	store    OwnedStore[T]
	notFound error
	now      Clock
}

// NewScope builds a scope over store. notFound is returned for absent and foreign resources.
func NewScope[T any, P OwnedResource[T]](store OwnedStore[T], notFound error, clock Clock) *Scope[T, P] {
	if clock == nil {
		clock = systemClock
	}
	return &Scope[T, P]{store: store, notFound: notFound, now: clock}
}

// Resolve fetches the resource with id if principal owns it.
func (s *Scope[T, P]) Resolve(ctx context.Context, id uuid.UUID, principal auth.Principal) (*T, error) {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound
		}
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}
	if P(item).OwnerID() != principal.UserID {
		return nil, s.notFound
	}
	return item, nil
}

// Create persists item as owned by principal, whatever owner the caller supplied.
func (s *Scope[T, P]) Create(ctx context.Context, item *T, principal auth.Principal) (*T, error) {
	P(item).AssignOwner(principal.UserID)
	P(item).MarkCreated(s.now())
	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update resolves the resource, lets apply change the fields present in the patch and saves it.
func (s *Scope[T, P]) Update(ctx context.Context, id uuid.UUID, principal auth.Principal, apply func(item *T) error) (*T, error) {
	item, err := s.Resolve(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	if err := apply(item); err != nil {
		return nil, err
	}
	P(item).AssignOwner(principal.UserID)
	P(item).MarkUpdated(s.now())
	if err := s.store.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.notFound
		}
		return nil, err
	}
	return item, nil
}

// Delete resolves the resource and removes it.
func (s *Scope[T, P]) Delete(ctx context.Context, id uuid.UUID, principal auth.Principal) error {
	item, err := s.Resolve(ctx, id, principal)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.notFound
		}
		return err
	}
	return nil
}

// List returns every resource owned by principal in storage order.
func (s *Scope[T, P]) List(ctx context.Context, principal auth.Principal) ([]T, error) {
	return s.store.ListByOwner(ctx, principal.UserID)
}
