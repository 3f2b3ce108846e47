// Package services содержит бизнес-логику управления пулом устройств:
// регистрацию, инвентаризацию, обслуживание и прямые правки статусов.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

// DeviceRepository определяет методы для работы с устройствами в хранилище.
type DeviceRepository interface {
	// CreateDevice вставляет новое устройство и возвращает его ID.
	CreateDevice(ctx context.Context, device models.Device) (string, error)
	// GetDevice возвращает устройство по ID.
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	// ListDevices возвращает устройства с пагинацией и фильтром по статусу.
	ListDevices(ctx context.Context, status *models.DeviceStatus, limit, offset int) ([]*models.Device, error)
	// CountDevices возвращает количество устройств с фильтром по статусу.
	CountDevices(ctx context.Context, status *models.DeviceStatus) (int, error)
	// ListDevicesByUser возвращает устройства, арендованные пользователем.
	ListDevicesByUser(ctx context.Context, userUID string) ([]*models.Device, error)
	// UpdateDevice обновляет атрибуты устройства.
	UpdateDevice(ctx context.Context, id string, req models.DummyDevice) (int, error)
	// DeleteDevice удаляет устройство, кроме арендованных.
	DeleteDevice(ctx context.Context, id string) (int, error)
	// OverrideDeviceStatus устанавливает статус устройства напрямую.
	OverrideDeviceStatus(ctx context.Context, id string, status models.DeviceStatus) (int, error)
	// SetDeviceMaintenance переводит устройство в обслуживание.
	SetDeviceMaintenance(ctx context.Context, id string, date time.Time) (int, error)
}

// DeviceService реализует бизнес-логику работы с пулом устройств.
type DeviceService struct {
	repo DeviceRepository
	log  *slog.Logger
}

// NewDeviceService создает новый экземпляр DeviceService.
func NewDeviceService(repo DeviceRepository, log *slog.Logger) *DeviceService {
	return &DeviceService{
		repo: repo,
		log:  log,
	}
}

// Create регистрирует новое устройство в пуле со статусом available.
func (s *DeviceService) Create(ctx context.Context, req models.DummyDevice) (string, error) {
	condition, err := models.ParseDeviceCondition(req.Condition)
	if err != nil {
		return "", err
	}

	device := models.Device{
		SerialNumber:   req.SerialNumber,
		Status:         models.DeviceAvailable,
		Condition:      condition,
		Specifications: req.Specifications,
	}
	id, err := s.repo.CreateDevice(ctx, device)
	if err != nil {
		return "", err
	}

	s.log.Info("registered new device",
		slog.String("device_id", id),
		slog.String("serial_number", req.SerialNumber))
	return id, nil
}

// Get возвращает устройство по ID.
func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	return s.repo.GetDevice(ctx, id)
}

// List возвращает страницу устройств и их общее количество,
// при непустом status — только устройства в этом статусе.
func (s *DeviceService) List(ctx context.Context, rawStatus string, limit, offset int) ([]*models.Device, int, error) {
	var status *models.DeviceStatus
	if rawStatus != "" {
		parsed, err := models.ParseDeviceStatus(rawStatus)
		if err != nil {
			return nil, 0, err
		}
		status = &parsed
	}

	devices, err := s.repo.ListDevices(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountDevices(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	return devices, total, nil
}

// UserDevices возвращает устройства, арендованные пользователем.
func (s *DeviceService) UserDevices(ctx context.Context, userUID string) ([]*models.Device, error) {
	return s.repo.ListDevicesByUser(ctx, userUID)
}

// Update обновляет серийный номер, состояние и характеристики устройства.
// Статус и владение остаются как есть.
func (s *DeviceService) Update(ctx context.Context, id string, req models.DummyDevice) error {
	if _, err := models.ParseDeviceCondition(req.Condition); err != nil {
		return err
	}
	count, err := s.repo.UpdateDevice(ctx, id, req)
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

// Delete удаляет устройство из пула. Арендованное устройство удалить нельзя.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	device, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	if device.Status == models.DeviceRented {
		return fmt.Errorf("device is rented: %w", domain.ErrInvalidTransition)
	}

	count, err := s.repo.DeleteDevice(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrDeviceNotFound
	}

	s.log.Info("deleted device", slog.String("device_id", id))
	return nil
}

// OverrideStatus устанавливает статус устройства прямой правкой администратора.
// Переходы проверяются по матрице статусов; аренда и возврат из аренды
// доступны только координатору.
func (s *DeviceService) OverrideStatus(ctx context.Context, id, rawStatus string) (*models.Device, error) {
	target, err := models.ParseDeviceStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if target == models.DeviceRented {
		return nil, fmt.Errorf("renting is done by subscription: %w", domain.ErrInvalidTransition)
	}

	device, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.Status == models.DeviceRented {
		return nil, fmt.Errorf("device is rented: %w", domain.ErrInvalidTransition)
	}
	if device.Status != target && !device.Status.CanTransition(target) {
		return nil, fmt.Errorf("%s -> %s: %w", device.Status, target, domain.ErrInvalidTransition)
	}

	count, err := s.repo.OverrideDeviceStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrInvalidTransition
	}

	s.log.Info("overrode device status",
		slog.String("device_id", id),
		slog.String("from", string(device.Status)),
		slog.String("to", string(target)))
	return s.repo.GetDevice(ctx, id)
}

// ScheduleMaintenance переводит устройство в обслуживание с отметкой даты.
func (s *DeviceService) ScheduleMaintenance(ctx context.Context, id string, date time.Time) (*models.Device, error) {
	device, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if device.Status == models.DeviceRented || device.Status == models.DeviceRetired {
		return nil, fmt.Errorf("device is %s: %w", device.Status, domain.ErrInvalidTransition)
	}

	count, err := s.repo.SetDeviceMaintenance(ctx, id, date)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrInvalidTransition
	}

	s.log.Info("scheduled device maintenance",
		slog.String("device_id", id),
		slog.Time("maintenance_date", date))
	return s.repo.GetDevice(ctx, id)
}
