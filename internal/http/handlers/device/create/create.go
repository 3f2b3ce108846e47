// Package create реализует HTTP-обработчик регистрации нового устройства в пуле.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Service описывает интерфейс бизнес-логики регистрации устройства.
type Service interface {
	Create(ctx context.Context, req models.DummyDevice) (string, error)
}

// Handler управляет HTTP-запросами на регистрацию устройств.
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
// @Summary Зарегистрировать устройство
// @Description Добавляет новое устройство в пул со статусом available. Только для админа.
// @Tags Devices
// @Accept  json
// @Produce  json
// @Param request body models.DummyDevice true "Данные устройства"
// @Success 200 {object} map[string]any "ID созданного устройства"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 409 {object} response.ErrorResponse "Серийный номер уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.device.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyDevice
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create device", sl.Err(err))
		status, body := response.Domain(err, "could not create device")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("registered new device", slog.String("device_id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"device_id": id,
	}))
}
