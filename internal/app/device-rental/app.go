// Package devicerental собирает HTTP-приложение сервиса аренды устройств:
// хранилище, миграции, кеш, сервисы и маршруты.
package devicerental

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/device-rental/internal/cache"
	"github.com/magabrotheeeer/device-rental/internal/config"
	"github.com/magabrotheeeer/device-rental/internal/lib/jwt"
	"github.com/magabrotheeeer/device-rental/internal/migrations"
	authservice "github.com/magabrotheeeer/device-rental/internal/services/auth"
	deviceservice "github.com/magabrotheeeer/device-rental/internal/services/device"
	rentalservice "github.com/magabrotheeeer/device-rental/internal/services/rental"
	"github.com/magabrotheeeer/device-rental/internal/storage/repository"
)

// App инкапсулирует HTTP-сервер и ресурсы приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New инициализирует хранилище, миграции, кеш и сервисы,
// собирает маршруты и возвращает готовое приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)
	rentalService := rentalservice.NewRentalService(db, cacheRedis, logger)
	deviceService := deviceservice.NewDeviceService(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, rentalService, deviceService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.cache.Close()
		_ = a.db.DB.Close()
		return err
	}
}
