package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskapi/internal/auth"
	"taskapi/internal/cache"
	"taskapi/internal/db/dbtest"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
	"taskapi/internal/repository"
)

type harness struct {
	auth       AuthService
	users      UserService
	categories CategoryService
	tasks      TaskService
	userRepo   repository.UserRepository
	cache      *cache.Client
	redis      *miniredis.Miniredis
}

// tickingClock advances one second per call so creation order is observable.
func tickingClock() Clock {
	now := testNow
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := dbtest.Open(t)
	clock := tickingClock()

	srv := miniredis.RunT(t)
	cacheClient := cache.New(srv.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	userRepo := repository.NewUserRepository(gdb)
	categories := NewCategoryService(repository.NewCategoryRepository(gdb), clock)
	users := NewUserService(userRepo, cacheClient, clock)
	tasks := NewTaskService(repository.NewTaskRepository(gdb), categories.Scope(), clock)

	tokens, err := auth.NewTokenService("scenario-secret", 0)
	require.NoError(t, err)

	return &harness{
		auth:       NewAuthService(userRepo, users, categories, tokens, clock),
		users:      users,
		categories: categories,
		tasks:      tasks,
		userRepo:   userRepo,
		cache:      cacheClient,
		redis:      srv,
	}
}

func (h *harness) register(t *testing.T, email string) auth.Principal {
	t.Helper()
	user, err := h.auth.Register(context.Background(), RegisterInput{LastName: "Doe", Email: email, Password: "password123"})
	require.NoError(t, err)
	return auth.Principal{UserID: user.ID, Email: user.Email}
}

func (h *harness) categoryID(t *testing.T, p auth.Principal, name string) uuid.UUID {
	t.Helper()
	list, err := h.categories.List(context.Background(), p)
	require.NoError(t, err)
	for _, c := range list {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("category %q not found", name)
	return uuid.Nil
}

func TestScope_ListIsolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.register(t, "u1@example.com")
	u2 := h.register(t, "u2@example.com")

	_, err := h.tasks.Create(ctx, u1, TaskInput{Name: "T1"})
	require.NoError(t, err)
	_, err = h.tasks.Create(ctx, u2, TaskInput{Name: "T2"})
	require.NoError(t, err)

	list, err := h.tasks.List(ctx, u1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].Name)
	assert.Equal(t, u1.UserID, list[0].UserID)
}

func TestScope_CreateOverridesOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.register(t, "u1@example.com")
	u2 := h.register(t, "u2@example.com")

	category := &model.Category{UserID: u2.UserID, Name: "spoofed"}
	created, err := h.categories.Scope().Create(ctx, category, u1)
	require.NoError(t, err)
	assert.Equal(t, u1.UserID, created.UserID)

	_, err = h.categories.Get(ctx, u2, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrCategoryNotFound)
}

func TestScope_ForeignResourceIsNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.register(t, "a@example.com")
	b := h.register(t, "b@example.com")

	task, err := h.tasks.Create(ctx, a, TaskInput{Name: "private"})
	require.NoError(t, err)

	_, err = h.tasks.Get(ctx, b, task.ID)
	assert.Same(t, apperrors.ErrTaskNotFound, err)

	_, err = h.tasks.Get(ctx, b, uuid.New())
	assert.Same(t, apperrors.ErrTaskNotFound, err)

	name := "hijacked"
	_, err = h.tasks.Update(ctx, b, task.ID, TaskPatch{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)

	assert.ErrorIs(t, h.tasks.Delete(ctx, b, task.ID), apperrors.ErrTaskNotFound)

	got, err := h.tasks.Get(ctx, a, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Name)

	workB := h.categoryID(t, b, "work")
	_, err = h.categories.Get(ctx, a, workB)
	assert.ErrorIs(t, err, apperrors.ErrCategoryNotFound)
	assert.ErrorIs(t, h.categories.Delete(ctx, a, workB), apperrors.ErrCategoryNotFound)
}

func TestScope_PartialUpdateKeepsOmittedFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	desc := "buy oat milk"
	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	work := h.categoryID(t, u, "work")
	task, err := h.tasks.Create(ctx, u, TaskInput{
		Name:        "groceries",
		Description: &desc,
		DueDate:     &due,
		CategoryIDs: []uuid.UUID{work},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusNotStarted, task.Status)
	assert.Nil(t, task.UpdatedAt)

	status := model.TaskStatusDone
	updated, err := h.tasks.Update(ctx, u, task.ID, TaskPatch{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)

	got, err := h.tasks.Get(ctx, u, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, due.Format(time.DateOnly), got.DueDate.Format(time.DateOnly))
	assert.Equal(t, model.TaskStatusDone, got.Status)
	assert.Equal(t, []uuid.UUID{work}, got.CategoryIDs())
}

func TestTaskService_CategoryAssignment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.register(t, "u1@example.com")
	u2 := h.register(t, "u2@example.com")

	c1 := h.categoryID(t, u1, "work")
	home := h.categoryID(t, u1, "home")
	foreign := h.categoryID(t, u2, "work")

	task, err := h.tasks.Create(ctx, u1, TaskInput{Name: "ship", CategoryIDs: []uuid.UUID{c1, c1}})
	require.NoError(t, err)

	got, err := h.tasks.Get(ctx, u1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c1}, got.CategoryIDs())

	category, err := h.categories.Get(ctx, u1, c1)
	require.NoError(t, err)
	require.Len(t, category.Tasks, 1)
	assert.Equal(t, task.ID, category.Tasks[0].ID)

	_, err = h.tasks.Create(ctx, u1, TaskInput{Name: "sneaky", CategoryIDs: []uuid.UUID{foreign}})
	assert.ErrorIs(t, err, apperrors.ErrUnknownCategory)

	_, err = h.tasks.Update(ctx, u1, task.ID, TaskPatch{CategoryIDs: []uuid.UUID{home, uuid.New()}})
	assert.ErrorIs(t, err, apperrors.ErrUnknownCategory)

	got, err = h.tasks.Get(ctx, u1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c1}, got.CategoryIDs())

	_, err = h.tasks.Update(ctx, u1, task.ID, TaskPatch{CategoryIDs: []uuid.UUID{}})
	require.NoError(t, err)
	got, err = h.tasks.Get(ctx, u1, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
}

func TestTaskService_RejectsUnknownStatus(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "u@example.com")

	_, err := h.tasks.Create(context.Background(), u, TaskInput{Name: "x", Status: "paused"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTaskService_ListOrderedByCreation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	for _, name := range []string{"first", "second", "third"} {
		_, err := h.tasks.Create(ctx, u, TaskInput{Name: name})
		require.NoError(t, err)
	}

	list, err := h.tasks.List(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, "third", list[2].Name)
}

func TestCategoryService_DefaultsProvisionedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	list, err := h.categories.List(ctx, u)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	assert.Equal(t, model.DefaultCategoryNames, names)

	created, err := h.categories.RestoreDefaults(ctx, u)
	require.NoError(t, err)
	assert.Zero(t, created)

	require.NoError(t, h.categories.Delete(ctx, u, h.categoryID(t, u, "health")))
	created, err = h.categories.RestoreDefaults(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	list, err = h.categories.List(ctx, u)
	require.NoError(t, err)
	assert.Len(t, list, len(model.DefaultCategoryNames))
}

func TestCategoryService_NameConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.register(t, "u1@example.com")
	u2 := h.register(t, "u2@example.com")

	_, err := h.categories.Create(ctx, u1, CategoryInput{Name: "work"})
	assert.ErrorIs(t, err, apperrors.ErrCategoryNameTaken)

	color := "#ff8800"
	garden, err := h.categories.Create(ctx, u1, CategoryInput{Name: "garden", Color: &color})
	require.NoError(t, err)
	_, err = h.categories.Create(ctx, u2, CategoryInput{Name: "garden"})
	require.NoError(t, err)

	rename := "home"
	_, err = h.categories.Update(ctx, u1, garden.ID, CategoryPatch{Name: &rename})
	assert.ErrorIs(t, err, apperrors.ErrCategoryNameTaken)

	same := "garden"
	updated, err := h.categories.Update(ctx, u1, garden.ID, CategoryPatch{Name: &same})
	require.NoError(t, err)
	require.NotNil(t, updated.Color)
	assert.Equal(t, color, *updated.Color)
}

func TestCategoryService_DeleteDetachesFromTasks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")
	work := h.categoryID(t, u, "work")

	task, err := h.tasks.Create(ctx, u, TaskInput{Name: "ship", CategoryIDs: []uuid.UUID{work}})
	require.NoError(t, err)

	require.NoError(t, h.categories.Delete(ctx, u, work))

	got, err := h.tasks.Get(ctx, u, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	h := newHarness(t)
	h.register(t, "dup@example.com")

	_, err := h.auth.Register(context.Background(), RegisterInput{LastName: "Doe", Email: "DUP@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestAuthService_LoginThenValidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	token, err := h.auth.Login(ctx, "u@example.com", "password123")
	require.NoError(t, err)

	principal, err := h.auth.ResolvePrincipal(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, principal.UserID)

	user, err := h.users.Profile(ctx, principal)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	_, err = h.auth.Login(ctx, "u@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserService_DeleteInvalidatesPrincipal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	_, err := h.tasks.Create(ctx, u, TaskInput{Name: "orphan"})
	require.NoError(t, err)

	token, err := h.auth.Login(ctx, "u@example.com", "password123")
	require.NoError(t, err)
	_, err = h.auth.ResolvePrincipal(ctx, token.Token)
	require.NoError(t, err)

	require.NoError(t, h.users.Delete(ctx, u))

	_, err = h.auth.ResolvePrincipal(ctx, token.Token)
	assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound)

	list, err := h.tasks.List(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAuthService_DeletedUserRejectedWhileCacheUnavailable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")

	token := mustToken(t, h, "u@example.com")
	_, err := h.auth.ResolvePrincipal(ctx, token)
	require.NoError(t, err)
	_, err = h.users.Profile(ctx, u)
	require.NoError(t, err)

	h.redis.SetError("LOADING transient")
	require.NoError(t, h.users.Delete(ctx, u))
	h.redis.SetError("")

	_, err = h.auth.ResolvePrincipal(ctx, token)
	assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound)
}

func TestUserService_ProfileCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")
	key := "user:" + u.UserID.String()

	user, err := h.users.Profile(ctx, u)
	require.NoError(t, err)
	assert.Nil(t, user.LastLoginAt)
	cached, err := h.redis.Get(key)
	require.NoError(t, err)
	assert.Contains(t, cached, "u@example.com")
	assert.NotContains(t, cached, "$2a$")

	mustToken(t, h, "u@example.com")
	assert.False(t, h.redis.Exists(key))

	user, err = h.users.Profile(ctx, u)
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	last := "Smith"
	_, err = h.users.UpdateProfile(ctx, u, ProfilePatch{LastName: &last})
	require.NoError(t, err)

	h.redis.SetError("LOADING transient")
	user, err = h.users.Profile(ctx, u)
	h.redis.SetError("")
	require.NoError(t, err)
	assert.Equal(t, "Smith", user.LastName)

	_, err = h.auth.Authenticate(ctx, "u@example.com", "password123")
	assert.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "u@example.com")
	h.register(t, "taken@example.com")

	_, err := h.auth.ResolvePrincipal(ctx, mustToken(t, h, "u@example.com"))
	require.NoError(t, err)

	taken := "Taken@example.com"
	_, err = h.users.UpdateProfile(ctx, u, ProfilePatch{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrEmailTaken)

	first := "Jane"
	email := "NEW@example.com"
	password := "new-password"
	user, err := h.users.UpdateProfile(ctx, u, ProfilePatch{FirstName: &first, Email: &email, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	require.NotNil(t, user.FirstName)
	assert.Equal(t, "Jane", *user.FirstName)
	assert.Equal(t, "Doe", user.LastName)

	_, err = h.auth.Authenticate(ctx, "new@example.com", "password123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = h.auth.Authenticate(ctx, "new@example.com", "new-password")
	require.NoError(t, err)

	principal, err := h.users.Lookup(ctx, u.UserID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", principal.Email)
}

func mustToken(t *testing.T, h *harness, email string) string {
	t.Helper()
	token, err := h.auth.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	return token.Token
}
