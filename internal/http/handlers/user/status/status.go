// Package status реализует HTTP-обработчик смены статуса учётной записи.
//
// Администратор блокирует или деактивирует пользователя; заблокированным
// и неактивным пользователям вход в систему закрыт.
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

// Request — входные данные для смены статуса учётной записи
type Request struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

// Service описывает интерфейс бизнес-логики смены статуса учётной записи.
type Service interface {
	UpdateUserStatus(ctx context.Context, userUID, rawStatus string) (*models.User, error)
}

// Handler управляет HTTP-запросами на смену статуса учётных записей.
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
// @Summary Сменить статус учётной записи
// @Description Блокировка, деактивация или восстановление пользователя администратором.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param uid path string true "UID пользователя"
// @Param request body Request true "Целевой статус"
// @Success 200 {object} map[string]any "Пользователь с новым статусом"
// @Failure 400 {object} response.ErrorResponse "Некорректный UID или JSON"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /users/{uid}/status [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")
	if _, err := uuid.Parse(uid); err != nil {
		log.Error("invalid user uid", slog.String("uid", uid))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid user uid"))
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

	user, err := h.service.UpdateUserStatus(r.Context(), uid, req.Status)
	if err != nil {
		log.Error("failed to update user status", sl.Err(err))
		status, body := response.Domain(err, "could not change user status")
		w.WriteHeader(status)
		render.JSON(w, r, body)
		return
	}

	log.Info("changed user status",
		slog.String("user_uid", uid),
		slog.String("status", req.Status))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid":      user.UID,
		"username": user.Username,
		"status":   user.Status,
	}))
}
