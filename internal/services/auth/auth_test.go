package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/lib/jwt"
	"github.com/magabrotheeeer/device-rental/internal/lib/password"
	"github.com/magabrotheeeer/device-rental/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) UpdateUserStatus(ctx context.Context, userUID string, status models.UserStatus) (int, error) {
	args := m.Called(ctx, userUID, status)
	return args.Int(0), args.Error(1)
}

func newTestMaker() jwt.Maker {
	return jwt.NewMaker("test_secret_key_1234567890", 15*time.Minute)
}

func storedUser(t *testing.T, rawPassword string, status models.UserStatus) *models.User {
	t.Helper()
	hash, err := password.GetHash(rawPassword)
	require.NoError(t, err)
	return &models.User{
		UID:          "7bca27c2-47a3-4f0b-9e55-d45a2e620bb1",
		Email:        "user@example.com",
		Username:     "user1",
		PasswordHash: hash,
		Role:         models.RoleUser,
		Status:       status,
	}
}

func TestAuthService_Register(t *testing.T) {
	users := new(UsersMock)
	svc := NewAuthService(users, newTestMaker())

	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Username == "user1" &&
			u.Email == "user@example.com" &&
			u.Role == models.RoleUser &&
			u.Status == models.UserActive &&
			u.PasswordHash != "secret123" &&
			password.CompareHash(u.PasswordHash, "secret123") == nil
	})).Return("uid-1", nil).Once()

	uid, err := svc.Register(context.Background(), "user@example.com", "user1", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	users.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		rawPass    string
		setupMocks func(t *testing.T, u *UsersMock)
		wantRole   string
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:     "success",
			username: "user1",
			rawPass:  "secret123",
			setupMocks: func(t *testing.T, u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").
					Return(storedUser(t, "secret123", models.UserActive), nil).Once()
			},
			wantRole: "user",
		},
		{
			name:     "unknown username maps to invalid credentials",
			username: "ghost",
			rawPass:  "secret123",
			setupMocks: func(_ *testing.T, u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "ghost").
					Return(nil, domain.ErrUserNotFound).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			username: "user1",
			rawPass:  "wrong-password",
			setupMocks: func(t *testing.T, u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").
					Return(storedUser(t, "secret123", models.UserActive), nil).Once()
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "suspended user is forbidden",
			username: "user1",
			rawPass:  "secret123",
			setupMocks: func(t *testing.T, u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").
					Return(storedUser(t, "secret123", models.UserSuspended), nil).Once()
			},
			wantErr: domain.ErrForbidden,
		},
		{
			name:     "storage error passes through",
			username: "user1",
			rawPass:  "secret123",
			setupMocks: func(_ *testing.T, u *UsersMock) {
				u.On("GetUserByUsername", mock.Anything, "user1").
					Return(nil, errors.New("db error")).Once()
			},
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			svc := NewAuthService(users, newTestMaker())

			tt.setupMocks(t, users)

			token, role, err := svc.Login(context.Background(), tt.username, tt.rawPass)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			case tt.wantAnyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, tt.wantRole, role)
			}

			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_UpdateUserStatus(t *testing.T) {
	uid := "7bca27c2-47a3-4f0b-9e55-d45a2e620bb1"

	t.Run("suspends active user", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewAuthService(users, newTestMaker())

		users.On("UpdateUserStatus", mock.Anything, uid, models.UserSuspended).Return(1, nil).Once()
		users.On("GetUser", mock.Anything, uid).
			Return(storedUser(t, "secret123", models.UserSuspended), nil).Once()

		user, err := svc.UpdateUserStatus(context.Background(), uid, "suspended")
		require.NoError(t, err)
		assert.Equal(t, models.UserSuspended, user.Status)

		users.AssertExpectations(t)
	})

	t.Run("unknown status is rejected before the storage call", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewAuthService(users, newTestMaker())

		user, err := svc.UpdateUserStatus(context.Background(), uid, "banned")
		assert.ErrorIs(t, err, domain.ErrUnsupportedValue)
		assert.Nil(t, user)

		users.AssertNotCalled(t, "UpdateUserStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := new(UsersMock)
		svc := NewAuthService(users, newTestMaker())

		users.On("UpdateUserStatus", mock.Anything, uid, models.UserInactive).Return(0, nil).Once()

		user, err := svc.UpdateUserStatus(context.Background(), uid, "inactive")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		assert.Nil(t, user)

		users.AssertExpectations(t)
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	maker := newTestMaker()
	svc := NewAuthService(new(UsersMock), maker)

	t.Run("valid token", func(t *testing.T) {
		token, err := maker.GenerateToken("user1", "admin", "uid-1")
		require.NoError(t, err)

		user, role, ok, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "admin", role)
		assert.Equal(t, "user1", user.Username)
		assert.Equal(t, "uid-1", user.UID)
		assert.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("garbage token", func(t *testing.T) {
		user, role, ok, err := svc.ValidateToken(context.Background(), "not.a.token")
		assert.Error(t, err)
		assert.False(t, ok)
		assert.Empty(t, role)
		assert.Nil(t, user)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := jwt.NewMaker("another_secret_key", 15*time.Minute)
		token, err := other.GenerateToken("user1", "user", "uid-1")
		require.NoError(t, err)

		_, _, ok, err := svc.ValidateToken(context.Background(), token)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
