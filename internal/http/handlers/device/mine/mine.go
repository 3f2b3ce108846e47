// Package mine реализует HTTP-обработчик списка устройств текущего пользователя.
package mine

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/device-rental/internal/http/middlewarectx"
	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Service описывает интерфейс бизнес-логики устройств пользователя.
type Service interface {
	UserDevices(ctx context.Context, userUID string) ([]*models.Device, error)
}

// Handler управляет HTTP-запросами на получение устройств текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Мои устройства
// @Description Возвращает устройства, арендованные текущим пользователем.
// @Tags Devices
// @Produce  json
// @Success 200 {object} map[string]any "Список устройств пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/mine [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.mine"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	devices, err := h.service.UserDevices(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list user devices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list devices"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"devices": devices,
		"count":   len(devices),
	}))
}
