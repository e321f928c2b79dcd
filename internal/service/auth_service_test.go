package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskapi/internal/auth"
	apperrors "taskapi/internal/errors"
	"taskapi/internal/model"
	"taskapi/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProvisioner is a mock implementation of DefaultsProvisioner.
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) ProvisionDefaults(ctx context.Context, ownerID uuid.UUID) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestAuthService(t *testing.T, repo *MockUserRepository, prov *MockProvisioner, clock Clock) AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret", auth.AccessTokenTTL)
	require.NoError(t, err)
	return NewAuthService(repo, NewUserService(repo, nil, clock), prov, tokens, clock)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		setupMock     func(*MockUserRepository, *MockProvisioner)
		expectedError error
	}{
		{
			name:  "successful registration",
			email: "  Jane@Example.COM ",
			setupMock: func(m *MockUserRepository, p *MockProvisioner) {
				m.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = uuid.New()
				}).Return(nil)
				p.On("ProvisionDefaults", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(len(model.DefaultCategoryNames), nil)
			},
		},
		{
			name:  "email already registered",
			email: "existing@example.com",
			setupMock: func(m *MockUserRepository, p *MockProvisioner) {
				m.On("FindByEmail", mock.Anything, "existing@example.com").Return(&model.User{Email: "existing@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "unique index race",
			email: "race@example.com",
			setupMock: func(m *MockUserRepository, p *MockProvisioner) {
				m.On("FindByEmail", mock.Anything, "race@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrDuplicate)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "provisioning failure removes the account",
			email: "broken@example.com",
			setupMock: func(m *MockUserRepository, p *MockProvisioner) {
				m.On("FindByEmail", mock.Anything, "broken@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				p.On("ProvisionDefaults", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
				m.On("Delete", mock.Anything, mock.Anything).Return(nil)
			},
			expectedError: errors.New("provision default categories: db down"),
		},
		{
			name:  "failed rollback is reported",
			email: "stuck@example.com",
			setupMock: func(m *MockUserRepository, p *MockProvisioner) {
				m.On("FindByEmail", mock.Anything, "stuck@example.com").Return(nil, repository.ErrNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Run(func(args mock.Arguments) {
					args.Get(1).(*model.User).ID = uuid.MustParse("6f1c1f0e-6a55-4f44-9a51-8a3c2f0b9d11")
				}).Return(nil)
				p.On("ProvisionDefaults", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
				m.On("Delete", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			expectedError: errors.New("provision default categories: db down\n" +
				"remove partially registered user 6f1c1f0e-6a55-4f44-9a51-8a3c2f0b9d11: connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockProv := new(MockProvisioner)
			tt.setupMock(mockRepo, mockProv)

			service := newTestAuthService(t, mockRepo, mockProv, fixedClock(testNow))
			user, err := service.Register(context.Background(), RegisterInput{
				LastName: "Doe",
				Email:    tt.email,
				Password: "password123",
			})

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.EqualError(t, err, tt.expectedError.Error())
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "jane@example.com", user.Email)
				assert.NotEqual(t, "password123", user.PasswordHash)
				assert.True(t, auth.VerifyPassword("password123", user.PasswordHash))
				assert.True(t, testNow.Equal(user.CreatedAt))
			}

			mockRepo.AssertExpectations(t)
			mockProv.AssertExpectations(t)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	stored := &model.User{ID: uuid.New(), Email: "jane@example.com", PasswordHash: hash}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:     "correct password",
			email:    "jane@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "jane@example.com").Return(stored, nil)
			},
		},
		{
			name:     "email is matched case-insensitively",
			email:    "JANE@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "jane@example.com").Return(stored, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "jane@example.com",
			password: "wrong",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "jane@example.com").Return(stored, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			service := newTestAuthService(t, mockRepo, new(MockProvisioner), fixedClock(testNow))
			user, err := service.Authenticate(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Same(t, tt.expectedError, err)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, stored.ID, user.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginAndResolve(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{ID: uuid.New(), Email: "jane@example.com", PasswordHash: hash}

	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByEmail", mock.Anything, "jane@example.com").Return(user, nil)
	mockRepo.On("TouchLastLogin", mock.Anything, user.ID, testNow).Return(nil)
	mockRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	now := testNow
	clock := func() time.Time { return now }
	service := newTestAuthService(t, mockRepo, new(MockProvisioner), clock)

	token, err := service.Login(context.Background(), "jane@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.True(t, testNow.Add(30*time.Minute).Equal(token.ExpiresAt))

	now = testNow.Add(29 * time.Minute)
	principal, err := service.ResolvePrincipal(context.Background(), token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "jane@example.com", principal.Email)

	now = testNow.Add(30 * time.Minute)
	_, err = service.ResolvePrincipal(context.Background(), token.Token)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)

	mockRepo.AssertExpectations(t)
}

func TestAuthService_ResolvePrincipal_DeletedUser(t *testing.T) {
	userID := uuid.New()
	mockRepo := new(MockUserRepository)
	mockRepo.On("FindByID", mock.Anything, userID).Return(nil, repository.ErrNotFound)

	service := newTestAuthService(t, mockRepo, new(MockProvisioner), fixedClock(testNow))
	token, err := service.IssueToken(&model.User{ID: userID})
	require.NoError(t, err)

	_, err = service.ResolvePrincipal(context.Background(), token.Token)
	assert.ErrorIs(t, err, apperrors.ErrPrincipalNotFound)
}

func TestAuthService_ResolvePrincipal_Garbage(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := newTestAuthService(t, mockRepo, new(MockProvisioner), fixedClock(testNow))

	_, err := service.ResolvePrincipal(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
