// Package status реализует HTTP-обработчик прямой смены статуса устройства.
//
// Переходы проверяются по матрице статусов; аренда и возврат из аренды
// доступны только координатору аренды, этот обработчик их отклоняет.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Request — входные данные для смены статуса устройства
type Request struct {
	Status string `json:"status" validate:"required,oneof=available maintenance retired"`
}

// Service описывает интерфейс бизнес-логики смены статуса устройства.
type Service interface {
	OverrideStatus(ctx context.Context, id, rawStatus string) (*models.Device, error)
}

// Handler управляет HTTP-запросами на смену статуса устройств.
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
// @Summary Сменить статус устройства
// @Description Прямая правка статуса устройства администратором. Переходы в rented и из rented запрещены.
// @Tags Devices
// @Accept  json
// @Produce  json
// @Param id path string true "ID устройства"
// @Param request body Request true "Целевой статус"
// @Success 200 {object} map[string]any "Устройство с новым статусом"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Устройство не найдено"
// @Failure 409 {object} response.ErrorResponse "Недопустимый переход статуса"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id}/status [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.status"
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

	device, err := h.service.OverrideStatus(r.Context(), id, req.Status)
	if err != nil {
		log.Error("failed to override device status", sl.Err(err))
		status, body := response.Domain(err, "could not change device status")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("changed device status",
		slog.String("device_id", id),
		slog.String("status", req.Status))
	render.JSON(w, r, response.OKWithData(device))
}
