package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskapi/internal/auth"
	"taskapi/internal/db/dbtest"
	"taskapi/internal/model"
	"taskapi/internal/repository"
	"taskapi/internal/service"
)

func TestRestoreDefaults(t *testing.T) {
	gdb := dbtest.Open(t)
	ctx := context.Background()
	users := repository.NewUserRepository(gdb)
	categoryRepo := repository.NewCategoryRepository(gdb)
	categories := service.NewCategoryService(categoryRepo, nil)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fresh := &model.User{LastName: "Fresh", Email: "fresh@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	partial := &model.User{LastName: "Partial", Email: "partial@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, users.Create(ctx, fresh))
	require.NoError(t, users.Create(ctx, partial))

	_, err := categories.Create(ctx, auth.Principal{UserID: partial.ID}, service.CategoryInput{Name: "work"})
	require.NoError(t, err)

	n, created, err := restoreDefaults(ctx, users, categories)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2*len(model.DefaultCategoryNames)-1, created)

	_, created, err = restoreDefaults(ctx, users, categories)
	require.NoError(t, err)
	assert.Zero(t, created)

	list, err := categoryRepo.ListByOwner(ctx, partial.ID)
	require.NoError(t, err)
	assert.Len(t, list, len(model.DefaultCategoryNames))
}
