// Package devicerental предоставляет маршруты для основного приложения.
package devicerental

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/device-rental/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/auth/register"
	devicecreate "github.com/magabrotheeeer/device-rental/internal/http/handlers/device/create"
	devicelist "github.com/magabrotheeeer/device-rental/internal/http/handlers/device/list"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/device/maintenance"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/device/mine"
	deviceread "github.com/magabrotheeeer/device-rental/internal/http/handlers/device/read"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/device/remove"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/device/status"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/device/unassign"
	deviceupdate "github.com/magabrotheeeer/device-rental/internal/http/handlers/device/update"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/health"
	rentallist "github.com/magabrotheeeer/device-rental/internal/http/handlers/rental/list"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/paymentstatus"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/device-rental/internal/http/handlers/subscription/renew"
	userstatus "github.com/magabrotheeeer/device-rental/internal/http/handlers/user/status"
	"github.com/magabrotheeeer/device-rental/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/device-rental/internal/services/auth"
	deviceservice "github.com/magabrotheeeer/device-rental/internal/services/device"
	rentalservice "github.com/magabrotheeeer/device-rental/internal/services/rental"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	rentalService *rentalservice.RentalService,
	deviceService *deviceservice.DeviceService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Post("/subscriptions", create.New(logger, rentalService).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, rentalService).ServeHTTP)
			r.Get("/subscriptions/{id}", read.New(logger, rentalService).ServeHTTP)
			r.Delete("/subscriptions/{id}", cancel.New(logger, rentalService).ServeHTTP)
			r.Post("/subscriptions/{id}/renew", renew.New(logger, rentalService).ServeHTTP)

			r.Get("/rentals", rentallist.New(logger, rentalService).ServeHTTP)

			r.Get("/devices", devicelist.New(logger, deviceService).ServeHTTP)
			r.Get("/devices/mine", mine.New(logger, deviceService).ServeHTTP)
			r.Get("/devices/{id}", deviceread.New(logger, deviceService).ServeHTTP)

			// Административные операции
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))

				r.Patch("/subscriptions/{id}/payment-status", paymentstatus.New(logger, rentalService).ServeHTTP)
				r.Post("/devices", devicecreate.New(logger, deviceService).ServeHTTP)
				r.Put("/devices/{id}", deviceupdate.New(logger, deviceService).ServeHTTP)
				r.Delete("/devices/{id}", remove.New(logger, deviceService).ServeHTTP)
				r.Patch("/devices/{id}/status", status.New(logger, deviceService).ServeHTTP)
				r.Post("/devices/{id}/maintenance", maintenance.New(logger, deviceService).ServeHTTP)
				r.Post("/devices/{id}/unassign", unassign.New(logger, rentalService).ServeHTTP)
				r.Patch("/users/{uid}/status", userstatus.New(logger, authService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
