// Package services реализует координатор аренды: оформление, продление
// и отмену подписок вместе с закреплением устройств выполняются одной
// транзакцией, чтобы подписка и пул устройств не расходились.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/lib/plan"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
	"github.com/magabrotheeeer/device-rental/internal/storage/repository"
)

// Repository определяет методы хранилища, нужные координатору аренды.
type Repository interface {
	// WithTx выполняет fn в одной транзакции базы данных.
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// CreateSubscription вставляет подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, q repository.DBTX, sub models.Subscription) (string, error)
	// GetSubscription возвращает подписку по ID.
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// FindActiveByUser возвращает активную подписку пользователя или nil.
	FindActiveByUser(ctx context.Context, userUID string) (*models.Subscription, error)
	// ListSubscriptionsByUser возвращает подписки пользователя с пагинацией.
	ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error)
	// ListAllSubscriptions возвращает подписки всех пользователей с пагинацией.
	ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
	// UpdatePaymentStatus меняет статус оплаты подписки.
	UpdatePaymentStatus(ctx context.Context, q repository.DBTX, id string, status models.PaymentStatus) (int, error)
	// UpdateSubscriptionStatus меняет статус подписки.
	UpdateSubscriptionStatus(ctx context.Context, q repository.DBTX, id string, status models.SubscriptionStatus) (int, error)
	// SetDeviceCount фиксирует число устройств подписки.
	SetDeviceCount(ctx context.Context, q repository.DBTX, id string, count int) error
	// AdjustDeviceCount изменяет счётчик устройств подписки на delta.
	AdjustDeviceCount(ctx context.Context, q repository.DBTX, id string, delta int) error
	// FindExpiredActive возвращает активные подписки с истёкшим сроком.
	FindExpiredActive(ctx context.Context) ([]*models.Subscription, error)
	// MarkExpired переводит активную подписку в expired.
	MarkExpired(ctx context.Context, q repository.DBTX, id string) (int, error)

	// GetDevice возвращает устройство по ID.
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	// LockAvailableDevices блокирует до limit свободных устройств.
	LockAvailableDevices(ctx context.Context, q repository.DBTX, limit int) ([]*models.Device, error)
	// MarkDeviceRented закрепляет устройство за пользователем и подпиской.
	MarkDeviceRented(ctx context.Context, q repository.DBTX, deviceID, userUID, subscriptionID string) error
	// MarkDeviceAvailable возвращает одно устройство в пул.
	MarkDeviceAvailable(ctx context.Context, q repository.DBTX, deviceID string) error
	// ReleaseDevicesByUser возвращает в пул все устройства пользователя.
	ReleaseDevicesByUser(ctx context.Context, q repository.DBTX, userUID string) (int, error)

	// CreateRental открывает запись истории аренды устройства.
	CreateRental(ctx context.Context, q repository.DBTX, deviceID, userUID, subscriptionID string) error
	// CloseRentalsBySubscription закрывает открытые записи аренды подписки.
	CloseRentalsBySubscription(ctx context.Context, q repository.DBTX, subscriptionID string) (int, error)
	// CloseRentalByDevice закрывает открытую запись аренды устройства.
	CloseRentalByDevice(ctx context.Context, q repository.DBTX, deviceID string) (int, error)
	// ListRentalsByUser возвращает историю аренды пользователя с пагинацией.
	ListRentalsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Rental, error)
	// ListAllRentals возвращает историю аренды всех пользователей с пагинацией.
	ListAllRentals(ctx context.Context, limit, offset int) ([]*models.Rental, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// RentalService реализует координатор аренды поверх хранилища и кеша.
type RentalService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// NewRentalService создает новый экземпляр RentalService.
func NewRentalService(repo Repository, cache Cache, log *slog.Logger) *RentalService {
	return &RentalService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create оформляет подписку пользователю и закрепляет за ним устройства.
// Вставка подписки, блокировка и аренда устройств выполняются одной
// транзакцией: при нехватке устройств подписка не остаётся в базе.
// Возвращает подписку вместе со списком закреплённых устройств.
func (s *RentalService) Create(ctx context.Context, userUID string, req models.DummySubscription) (*models.Subscription, []*models.Device, error) {
	planType, err := plan.Parse(req.PlanType)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.repo.GetUser(ctx, userUID); err != nil {
		return nil, nil, err
	}
	active, err := s.repo.FindActiveByUser(ctx, userUID)
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		return nil, nil, domain.ErrAlreadyActive
	}

	sub, devices, err := s.allocate(ctx, userUID, planType, req.Amount)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("created subscription with devices",
		slog.String("subscription_id", sub.ID),
		slog.String("user_uid", userUID),
		slog.Int("device_count", sub.DeviceCount))

	s.cacheSet(sub)
	return sub, devices, nil
}

// Renew продлевает истёкшую подписку: создаёт свежую запись с теми же
// планом и суммой и заново закрепляет устройства. Старая запись остаётся
// в истории нетронутой.
func (s *RentalService) Renew(ctx context.Context, userUID, role, subscriptionID string) (*models.Subscription, []*models.Device, error) {
	old, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if old.UserUID != userUID && role != string(models.RoleAdmin) {
		return nil, nil, domain.ErrForbidden
	}
	if old.Status != models.SubscriptionExpired {
		return nil, nil, fmt.Errorf("subscription is %s: %w", old.Status, domain.ErrInvalidState)
	}

	planType, err := plan.Parse(old.PlanType)
	if err != nil {
		return nil, nil, err
	}
	active, err := s.repo.FindActiveByUser(ctx, old.UserUID)
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		return nil, nil, domain.ErrAlreadyActive
	}

	sub, devices, err := s.allocate(ctx, old.UserUID, planType, old.Amount)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("renewed subscription",
		slog.String("old_subscription_id", old.ID),
		slog.String("subscription_id", sub.ID))

	s.cacheSet(sub)
	return sub, devices, nil
}

// allocate создаёт запись подписки и закрепляет устройства в одной транзакции.
// Возвращает подписку и закреплённые устройства с уже проставленным владением.
func (s *RentalService) allocate(ctx context.Context, userUID string, planType plan.Type, amount float64) (*models.Subscription, []*models.Device, error) {
	now := time.Now().UTC()
	sub := &models.Subscription{
		UserUID:       userUID,
		PlanType:      string(planType),
		StartDate:     now,
		EndDate:       planType.EndDate(now),
		Status:        models.SubscriptionActive,
		PaymentStatus: models.PaymentPending,
		Amount:        amount,
		MaxDevices:    planType.MaxDevices(),
	}

	var assigned []*models.Device
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := s.repo.CreateSubscription(ctx, tx, *sub)
		if err != nil {
			return err
		}
		sub.ID = id

		devices, err := s.repo.LockAvailableDevices(ctx, tx, sub.MaxDevices)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return domain.ErrNoDevicesAvailable
		}
		for _, device := range devices {
			if err := s.repo.MarkDeviceRented(ctx, tx, device.ID, userUID, id); err != nil {
				return err
			}
			if err := s.repo.CreateRental(ctx, tx, device.ID, userUID, id); err != nil {
				return err
			}
			device.Status = models.DeviceRented
			device.CurrentUserUID = &sub.UserUID
			device.CurrentSubscriptionID = &sub.ID
		}
		if err := s.repo.SetDeviceCount(ctx, tx, id, len(devices)); err != nil {
			return err
		}
		sub.DeviceCount = len(devices)
		assigned = devices
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sub.CreatedAt = now
	return sub, assigned, nil
}

// UpdatePaymentStatus меняет статус оплаты подписки. Провал оплаты
// отменяет подписку и возвращает устройства в пул той же транзакцией.
// Статус оплаты меняется только у активной подписки: повторный провал
// по уже отменённой записи освободил бы устройства следующей подписки
// пользователя.
func (s *RentalService) UpdatePaymentStatus(ctx context.Context, subscriptionID string, status models.PaymentStatus) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubscriptionActive {
		return nil, fmt.Errorf("subscription is %s: %w", sub.Status, domain.ErrInvalidState)
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.repo.UpdatePaymentStatus(ctx, tx, subscriptionID, status); err != nil {
			return err
		}
		if status != models.PaymentFailed {
			return nil
		}
		if _, err := s.repo.UpdateSubscriptionStatus(ctx, tx, subscriptionID, models.SubscriptionCancelled); err != nil {
			return err
		}
		if _, err := s.repo.CloseRentalsBySubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		released, err := s.repo.ReleaseDevicesByUser(ctx, tx, sub.UserUID)
		if err != nil {
			return err
		}
		s.log.Info("payment failed, subscription cancelled",
			slog.String("subscription_id", subscriptionID),
			slog.Int("released_devices", released))
		return s.repo.SetDeviceCount(ctx, tx, subscriptionID, 0)
	})
	if err != nil {
		return nil, err
	}

	s.cacheInvalidate(subscriptionID)
	return s.repo.GetSubscription(ctx, subscriptionID)
}

// Cancel отменяет активную подписку и возвращает устройства в пул.
func (s *RentalService) Cancel(ctx context.Context, userUID, role, subscriptionID string) error {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.UserUID != userUID && role != string(models.RoleAdmin) {
		return domain.ErrForbidden
	}
	if sub.Status != models.SubscriptionActive {
		return fmt.Errorf("subscription is %s: %w", sub.Status, domain.ErrInvalidState)
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.repo.UpdateSubscriptionStatus(ctx, tx, subscriptionID, models.SubscriptionCancelled); err != nil {
			return err
		}
		if _, err := s.repo.CloseRentalsBySubscription(ctx, tx, subscriptionID); err != nil {
			return err
		}
		released, err := s.repo.ReleaseDevicesByUser(ctx, tx, sub.UserUID)
		if err != nil {
			return err
		}
		s.log.Info("cancelled subscription",
			slog.String("subscription_id", subscriptionID),
			slog.Int("released_devices", released))
		return s.repo.SetDeviceCount(ctx, tx, subscriptionID, 0)
	})
	if err != nil {
		return err
	}

	s.cacheInvalidate(subscriptionID)
	return nil
}

// Get возвращает подписку по ID, используя кеш или репозиторий.
// Пользователь видит только свои подписки, админ — любые.
func (s *RentalService) Get(ctx context.Context, userUID, role, subscriptionID string) (*models.Subscription, error) {
	var sub *models.Subscription
	cacheKey := cacheKey(subscriptionID)
	found, err := s.cache.Get(cacheKey, &sub)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), sl.Err(err))
		found = false
	}
	if !found {
		sub, err = s.repo.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return nil, err
		}
		s.cacheSet(sub)
	}

	if sub.UserUID != userUID && role != string(models.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return sub, nil
}

// List возвращает список подписок в зависимости от роли пользователя.
func (s *RentalService) List(ctx context.Context, userUID, role string, limit, offset int) ([]*models.Subscription, error) {
	if role == string(models.RoleAdmin) {
		return s.repo.ListAllSubscriptions(ctx, limit, offset)
	}
	return s.repo.ListSubscriptionsByUser(ctx, userUID, limit, offset)
}

// ListRentals возвращает историю аренды устройств: пользователь видит
// только свои записи, админ — все.
func (s *RentalService) ListRentals(ctx context.Context, userUID, role string, limit, offset int) ([]*models.Rental, error) {
	if role == string(models.RoleAdmin) {
		return s.repo.ListAllRentals(ctx, limit, offset)
	}
	return s.repo.ListRentalsByUser(ctx, userUID, limit, offset)
}

// UnassignDevice досрочно возвращает одно устройство подписки в пул
// и уменьшает счётчик устройств подписки.
func (s *RentalService) UnassignDevice(ctx context.Context, deviceID string) error {
	device, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.Status != models.DeviceRented || device.CurrentSubscriptionID == nil {
		return fmt.Errorf("device is %s: %w", device.Status, domain.ErrInvalidTransition)
	}
	subscriptionID := *device.CurrentSubscriptionID

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.repo.MarkDeviceAvailable(ctx, tx, deviceID); err != nil {
			return err
		}
		if _, err := s.repo.CloseRentalByDevice(ctx, tx, deviceID); err != nil {
			return err
		}
		return s.repo.AdjustDeviceCount(ctx, tx, subscriptionID, -1)
	})
	if err != nil {
		return err
	}

	s.cacheInvalidate(subscriptionID)
	return nil
}

// ExpireOverdue переводит просроченные активные подписки в expired
// и возвращает их устройства в пул. Каждая подписка обрабатывается
// отдельной транзакцией, сбой одной не мешает остальным.
func (s *RentalService) ExpireOverdue(ctx context.Context) ([]*models.Subscription, error) {
	overdue, err := s.repo.FindExpiredActive(ctx)
	if err != nil {
		return nil, err
	}

	var expired []*models.Subscription
	for _, sub := range overdue {
		err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
			count, err := s.repo.MarkExpired(ctx, tx, sub.ID)
			if err != nil {
				return err
			}
			if count == 0 {
				// Подписку уже обработал параллельный запуск.
				return nil
			}
			if _, err := s.repo.CloseRentalsBySubscription(ctx, tx, sub.ID); err != nil {
				return err
			}
			if _, err := s.repo.ReleaseDevicesByUser(ctx, tx, sub.UserUID); err != nil {
				return err
			}
			if err := s.repo.SetDeviceCount(ctx, tx, sub.ID, 0); err != nil {
				return err
			}
			expired = append(expired, sub)
			return nil
		})
		if err != nil {
			s.log.Error("failed to expire subscription",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		s.cacheInvalidate(sub.ID)
	}
	return expired, nil
}

func cacheKey(subscriptionID string) string {
	return fmt.Sprintf("subscription:%s", subscriptionID)
}

func (s *RentalService) cacheSet(sub *models.Subscription) {
	key := cacheKey(sub.ID)
	if err := s.cache.Set(key, sub, time.Hour); err != nil {
		s.log.Warn("failed to cache subscription", slog.String("key", key), sl.Err(err))
	}
}

func (s *RentalService) cacheInvalidate(subscriptionID string) {
	key := cacheKey(subscriptionID)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
}
