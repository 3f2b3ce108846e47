// Package domain содержит доменные ошибки сервиса аренды устройств.
// Обработчики HTTP сопоставляют эти ошибки с кодами ответов,
// бизнес-логика возвращает их как типизированные значения.
package domain

import "errors"

var (
	// ErrUserNotFound пользователь не найден
	ErrUserNotFound = errors.New("user not found")

	// ErrDeviceNotFound устройство не найдено
	ErrDeviceNotFound = errors.New("device not found")

	// ErrSubscriptionNotFound подписка не найдена
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrAlreadyActive у пользователя уже есть активная подписка
	ErrAlreadyActive = errors.New("user already has an active subscription")

	// ErrInvalidTransition недопустимый переход статуса устройства
	ErrInvalidTransition = errors.New("invalid device status transition")

	// ErrInvalidState операция недопустима в текущем статусе подписки
	ErrInvalidState = errors.New("invalid subscription state for operation")

	// ErrNoDevicesAvailable в пуле нет свободных устройств
	ErrNoDevicesAvailable = errors.New("no devices available")

	// ErrSerialTaken устройство с таким серийным номером уже зарегистрировано
	ErrSerialTaken = errors.New("serial number already registered")

	// ErrUnsupportedValue значение вне закрытого набора планов или статусов
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrForbidden операция запрещена для роли пользователя
	ErrForbidden = errors.New("operation forbidden")
)
