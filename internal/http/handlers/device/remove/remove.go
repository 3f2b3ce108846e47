// Package remove реализует HTTP-обработчик удаления устройства из пула.
//
// Арендованное устройство удалить нельзя: сперва его должен вернуть
// в пул координатор аренды.
package remove

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

// Service описывает интерфейс бизнес-логики удаления устройства.
type Service interface {
	Delete(ctx context.Context, id string) error
}

// Handler управляет HTTP-запросами на удаление устройств.
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
// @Summary Удалить устройство
// @Description Удаляет устройство из пула. Арендованное устройство удалить нельзя. Только для админа.
// @Tags Devices
// @Produce  json
// @Param id path string true "ID устройства"
// @Success 200 {object} map[string]any "Устройство удалено"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено"
// @Failure 409 {object} response.ErrorResponse "Устройство арендовано"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.remove"
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

	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Error("failed to delete device", sl.Err(err))
		status, body := response.Domain(err, "could not delete device")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("deleted device", slog.String("device_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"device_id": id,
	}))
}
