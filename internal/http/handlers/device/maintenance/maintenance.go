// Package maintenance реализует HTTP-обработчик постановки устройства на обслуживание.
package maintenance

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Request — входные данные для постановки на обслуживание
type Request struct {
	MaintenanceDate string `json:"maintenance_date" validate:"required,datetime=2006-01-02"`
}

// Service описывает интерфейс бизнес-логики обслуживания устройства.
type Service interface {
	ScheduleMaintenance(ctx context.Context, id string, date time.Time) (*models.Device, error)
}

// Handler управляет HTTP-запросами на постановку устройств на обслуживание.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Поставить устройство на обслуживание
// @Description Переводит устройство в maintenance с отметкой даты. Арендованное устройство поставить нельзя.
// @Tags Devices
// @Accept  json
// @Produce  json
// @Param id path string true "ID устройства"
// @Param request body Request true "Дата обслуживания"
// @Success 200 {object} map[string]any "Устройство на обслуживании"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено"
// @Failure 409 {object} response.ErrorResponse "Устройство арендовано или списано"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id}/maintenance [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.maintenance"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	date, err := time.Parse("2006-01-02", req.MaintenanceDate)
	if err != nil {
		log.Error("invalid maintenance date", slog.String("maintenance_date", req.MaintenanceDate))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid maintenance date"))
		return
	}

	device, err := h.service.ScheduleMaintenance(r.Context(), id, date)
	if err != nil {
		log.Error("failed to schedule maintenance", sl.Err(err))
		status, body := response.Domain(err, "could not schedule maintenance")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("scheduled device maintenance", slog.String("device_id", id))
	render.JSON(w, r, response.OKWithData(device))
}
