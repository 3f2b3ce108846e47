// Package list реализует HTTP-обработчик списка устройств пула.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Service описывает интерфейс бизнес-логики списка устройств.
type Service interface {
	List(ctx context.Context, rawStatus string, limit, offset int) ([]*models.Device, int, error)
}

// Handler управляет HTTP-запросами на получение списка устройств.
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
// @Summary Список устройств
// @Description Возвращает страницу устройств пула с общим количеством, опционально фильтруя по статусу.
// @Tags Devices
// @Produce  json
// @Param status query string false "Фильтр по статусу" Enums(available, rented, maintenance, retired)
// @Param limit query int false "Размер страницы" default(10)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} map[string]any "Список устройств"
// @Failure 400 {object} response.ErrorResponse "Неизвестный статус"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	rawStatus := r.URL.Query().Get("status")

	devices, total, err := h.service.List(r.Context(), rawStatus, limit, offset)
	if err != nil {
		log.Error("failed to list devices", sl.Err(err))
		if rawStatus != "" {
			if _, parseErr := models.ParseDeviceStatus(rawStatus); parseErr != nil {
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error("unknown device status"))
				return
			}
		}
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list devices"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"devices": devices,
		"total":   total,
	}))
}
