// Package paymentstatus реализует HTTP-обработчик смены статуса оплаты подписки.
//
// Провал оплаты отменяет подписку и возвращает устройства в пул
// одной транзакцией.
package paymentstatus

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

// Request — входные данные для смены статуса оплаты
type Request struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid failed"`
}

// Service описывает интерфейс координатора аренды для смены статуса оплаты.
type Service interface {
	UpdatePaymentStatus(ctx context.Context, subscriptionID string, status models.PaymentStatus) (*models.Subscription, error)
}

// Handler управляет HTTP-запросами на смену статуса оплаты.
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
// @Summary Сменить статус оплаты подписки
// @Description Обновляет статус оплаты. При failed подписка отменяется, устройства возвращаются в пул.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param id path string true "ID подписки"
// @Param request body Request true "Новый статус оплаты"
// @Success 200 {object} map[string]any "Обновленная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/{id}/payment-status [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.paymentstatus"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Error("invalid subscription id", slog.String("id", id))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
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

	status, err := models.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		log.Error("unknown payment status", slog.String("payment_status", req.PaymentStatus))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown payment status"))
		return
	}

	sub, err := h.service.UpdatePaymentStatus(r.Context(), id, status)
	if err != nil {
		log.Error("failed to update payment status", sl.Err(err))
		statusCode, body := response.Domain(err, "could not update payment status")
		w.WriteHeader(statusCode)
		render.JSON(w, r, body)
		return
	}

	log.Info("updated payment status",
		slog.String("subscription_id", id),
		slog.String("payment_status", string(status)))
	render.JSON(w, r, response.OKWithData(sub))
}
