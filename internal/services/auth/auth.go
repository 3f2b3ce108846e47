// Package services содержит логику бизнес-уровня для работы с пользователями и аутентификацией.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/lib/jwt"
	"github.com/magabrotheeeer/device-rental/internal/lib/password"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его UID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUser возвращает пользователя по UID или ошибку, если не найден.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// UpdateUserStatus меняет статус учётной записи, возвращает число изменённых строк.
	UpdateUserStatus(ctx context.Context, userUID string, status models.UserStatus) (int, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной ролью "user".
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         models.RoleUser, // дефолтная роль при регистрации
		Status:       models.UserActive,
	}
	return s.users.RegisterUser(ctx, user)
}

// Login проверяет пароль пользователя и генерирует JWT.
// Заблокированным и неактивным пользователям вход закрыт.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (token, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", ErrInvalidCredentials
	}
	if user.Status != models.UserActive {
		return "", "", fmt.Errorf("user is %s: %w", user.Status, domain.ErrForbidden)
	}
	token, err = s.jwtMaker.GenerateToken(user.Username, string(user.Role), user.UID)
	if err != nil {
		return "", "", err
	}
	return token, string(user.Role), nil
}

// UpdateUserStatus меняет статус учётной записи пользователя.
// Заблокированный или неактивный пользователь теряет возможность входа,
// уже выданные токены продолжают действовать до истечения срока.
func (s *AuthService) UpdateUserStatus(ctx context.Context, userUID, rawStatus string) (*models.User, error) {
	status, err := models.ParseUserStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	count, err := s.users.UpdateUserStatus(ctx, userUID, status)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrUserNotFound
	}
	return s.users.GetUser(ctx, userUID)
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе, роль и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, string, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, "", false, err
	}
	user := &models.User{
		Username: claims.Username,
		Role:     models.Role(claims.Role),
		UID:      claims.UserUID,
	}
	return user, claims.Role, true, nil
}
