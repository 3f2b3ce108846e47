// Package models содержит доменные структуры сервиса аренды устройств:
// пользователей, устройства, подписки и закрытые наборы их статусов.
package models

import (
	"fmt"

	"github.com/magabrotheeeer/device-rental/internal/domain"
)

// DeviceStatus статус устройства в пуле.
type DeviceStatus string

// Допустимые статусы устройства.
const (
	DeviceAvailable   DeviceStatus = "available"
	DeviceRented      DeviceStatus = "rented"
	DeviceMaintenance DeviceStatus = "maintenance"
	DeviceRetired     DeviceStatus = "retired"
)

// ParseDeviceStatus проверяет строку и возвращает статус устройства.
func ParseDeviceStatus(s string) (DeviceStatus, error) {
	switch DeviceStatus(s) {
	case DeviceAvailable, DeviceRented, DeviceMaintenance, DeviceRetired:
		return DeviceStatus(s), nil
	}
	return "", fmt.Errorf("unknown device status %q: %w", s, domain.ErrUnsupportedValue)
}

// CanTransition проверяет допустимость перехода статуса устройства.
// Переходы в rented и из rented выполняет только координатор аренды,
// прямые правки администратора между остальными статусами разрешены.
func (s DeviceStatus) CanTransition(to DeviceStatus) bool {
	switch s {
	case DeviceAvailable:
		return to == DeviceRented || to == DeviceMaintenance || to == DeviceRetired
	case DeviceRented:
		return to == DeviceAvailable
	case DeviceMaintenance:
		return to == DeviceAvailable || to == DeviceRetired
	case DeviceRetired:
		return false
	}
	return false
}

// DeviceCondition состояние устройства.
type DeviceCondition string

// Допустимые состояния устройства.
const (
	ConditionExcellent DeviceCondition = "excellent"
	ConditionGood      DeviceCondition = "good"
	ConditionFair      DeviceCondition = "fair"
	ConditionPoor      DeviceCondition = "poor"
)

// ParseDeviceCondition проверяет строку и возвращает состояние устройства.
func ParseDeviceCondition(s string) (DeviceCondition, error) {
	switch DeviceCondition(s) {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return DeviceCondition(s), nil
	}
	return "", fmt.Errorf("unknown device condition %q: %w", s, domain.ErrUnsupportedValue)
}

// SubscriptionStatus статус подписки.
type SubscriptionStatus string

// Допустимые статусы подписки.
const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// PaymentStatus статус оплаты подписки.
type PaymentStatus string

// Допустимые статусы оплаты.
const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// ParsePaymentStatus проверяет строку и возвращает статус оплаты.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status %q: %w", s, domain.ErrUnsupportedValue)
}

// Role роль пользователя.
type Role string

// Допустимые роли.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserStatus статус учётной записи пользователя.
type UserStatus string

// Допустимые статусы учётной записи.
const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

// ParseUserStatus проверяет строку и возвращает статус учётной записи.
func ParseUserStatus(s string) (UserStatus, error) {
	switch UserStatus(s) {
	case UserActive, UserInactive, UserSuspended:
		return UserStatus(s), nil
	}
	return "", fmt.Errorf("unknown user status %q: %w", s, domain.ErrUnsupportedValue)
}
