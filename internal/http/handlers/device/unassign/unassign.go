// Package unassign реализует HTTP-обработчик досрочного возврата устройства в пул.
//
// Устройство открепляется от подписки, её счётчик устройств уменьшается;
// обе правки выполняются одной транзакцией координатора.
package unassign

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
)

// Service описывает интерфейс координатора аренды для возврата устройства.
type Service interface {
	UnassignDevice(ctx context.Context, deviceID string) error
}

// Handler управляет HTTP-запросами на досрочный возврат устройств.
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
// @Summary Вернуть устройство в пул
// @Description Досрочно открепляет арендованное устройство от подписки. Только для админа.
// @Tags Devices
// @Produce  json
// @Param id path string true "ID устройства"
// @Success 200 {object} map[string]any "Устройство возвращено в пул"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено"
// @Failure 409 {object} response.ErrorResponse "Устройство не арендовано"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id}/unassign [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.unassign"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Error("invalid device id", slog.String("id", id))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid device id"))
		return
	}

	if err := h.service.UnassignDevice(r.Context(), id); err != nil {
		log.Error("failed to unassign device", sl.Err(err))
		status, body := response.Domain(err, "could not unassign device")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("unassigned device", slog.String("device_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"device_id": id,
		"status":    "available",
	}))
}
