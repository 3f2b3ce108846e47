// Package renew реализует HTTP-обработчик продления истёкшей подписки.
//
// Продление создаёт свежую запись подписки с теми же планом и суммой
// и заново закрепляет устройства; старая запись остаётся в истории.
package renew

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/device-rental/internal/http/middlewarectx"
	"github.com/magabrotheeeer/device-rental/internal/http/response"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// Service описывает интерфейс координатора аренды для продления подписки.
type Service interface {
	Renew(ctx context.Context, userUID, role, subscriptionID string) (*models.Subscription, []*models.Device, error)
}

// Response — свежая подписка вместе с закреплёнными за ней устройствами.
type Response struct {
	Subscription *models.Subscription `json:"subscription"`
	Devices      []*models.Device     `json:"devices"`
}

// Handler управляет HTTP-запросами на продление подписок.
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
// @Summary Продлить подписку
// @Description Создает свежую подписку на основе истёкшей и заново закрепляет устройства.
// @Tags Subscriptions
// @Produce  json
// @Param id path string true "ID истёкшей подписки"
// @Success 200 {object} map[string]any "Новая подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или нет свободных устройств"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Чужая подписка"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 409 {object} response.ErrorResponse "Подписка не истекла или уже есть активная"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /subscriptions/{id}/renew [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.renew"
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

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	sub, devices, err := h.service.Renew(r.Context(), userUID, role, id)
	if err != nil {
		log.Error("failed to renew subscription", sl.Err(err))
		status, body := response.Domain(err, "could not renew subscription")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("renewed subscription",
		slog.String("old_subscription_id", id),
		slog.String("subscription_id", sub.ID),
		slog.Int("device_count", len(devices)))
	render.JSON(w, r, response.OKWithData(Response{Subscription: sub, Devices: devices}))
}
