package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	servicesauth "github.com/magabrotheeeer/device-rental/internal/services/auth"
)

// MockService реализует интерфейс login.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, username, rawPassword string) (string, string, error) {
	args := m.Called(ctx, username, rawPassword)
	return args.String(0), args.String(1), args.Error(2)
}

func TestLoginHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockService)
		expectedStatus int
		expectedError  string
	}{
		{
			name:        "успешный вход",
			requestBody: Request{Username: "user1", Password: "secret123"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "user1", "secret123").
					Return("jwt-token", "user", nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
		{
			name:           "пустые поля",
			requestBody:    Request{},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "field Username is a required field, field Password is a required field",
		},
		{
			name:        "неверные учетные данные",
			requestBody: Request{Username: "user1", Password: "wrong"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "user1", "wrong").
					Return("", "", servicesauth.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "invalid credentials",
		},
		{
			name:        "заблокированная учетная запись",
			requestBody: Request{Username: "user1", Password: "secret123"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "user1", "secret123").
					Return("", "", fmt.Errorf("user is suspended: %w", domain.ErrForbidden))
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "account is not active",
		},
		{
			name:        "ошибка сервиса",
			requestBody: Request{Username: "user1", Password: "secret123"},
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "user1", "secret123").
					Return("", "", errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "failed to login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp struct {
				Status string `json:"status"`
				Error  string `json:"error"`
				Data   struct {
					Token string `json:"token"`
					Role  string `json:"role"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "OK", resp.Status)
				assert.Equal(t, "jwt-token", resp.Data.Token)
				assert.Equal(t, "user", resp.Data.Role)
			} else {
				assert.Equal(t, "Error", resp.Status)
				assert.Equal(t, tt.expectedError, resp.Error)
			}

			mockService.AssertExpectations(t)
		})
	}
}
