package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/device-rental/internal/domain"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"device not found", domain.ErrDeviceNotFound, http.StatusNotFound},
		{"subscription not found", domain.ErrSubscriptionNotFound, http.StatusNotFound},
		{"already active", domain.ErrAlreadyActive, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"invalid state", domain.ErrInvalidState, http.StatusConflict},
		{"serial taken", domain.ErrSerialTaken, http.StatusConflict},
		{"unsupported value", domain.ErrUnsupportedValue, http.StatusConflict},
		{"no devices available", domain.ErrNoDevicesAvailable, http.StatusBadRequest},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"unknown error", errors.New("db error"), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("subscription is cancelled: %w", domain.ErrInvalidState), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestDomain(t *testing.T) {
	t.Run("domain error exposes its message", func(t *testing.T) {
		status, body := Domain(domain.ErrAlreadyActive, "fallback")
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, StatusError, body.Status)
		assert.Equal(t, domain.ErrAlreadyActive.Error(), body.Error)
	})

	t.Run("internal error is hidden behind fallback", func(t *testing.T) {
		status, body := Domain(errors.New("pq: connection refused"), "could not create subscription")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "could not create subscription", body.Error)
	})
}
