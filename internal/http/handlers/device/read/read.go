// Package read реализует HTTP-обработчик чтения устройства по ID.
package read

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
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Service описывает интерфейс бизнес-логики чтения устройства.
type Service interface {
	Get(ctx context.Context, id string) (*models.Device, error)
}

// Handler управляет HTTP-запросами на чтение устройства.
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
// @Summary Получить устройство
// @Description Возвращает устройство пула по ID.
// @Tags Devices
// @Produce  json
// @Param id path string true "ID устройства"
// @Success 200 {object} map[string]any "Устройство"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.read"
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

	device, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Error("failed to read device", sl.Err(err))
		status, body := response.Domain(err, "could not read device")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, response.OKWithData(device))
}
