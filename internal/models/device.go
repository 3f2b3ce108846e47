package models

import "time"

// Device представляет устройство из общего пула аренды.
// Инвариант: статус rented требует одновременно заполненных
// CurrentUserUID и CurrentSubscriptionID; в остальных статусах оба поля пусты.
type Device struct {
	ID                    string            // Уникальный идентификатор устройства
	SerialNumber          string            // Серийный номер (уникальный)
	Status                DeviceStatus      // Текущий статус устройства
	Condition             DeviceCondition   // Состояние устройства
	CurrentUserUID        *string           // Пользователь, арендующий устройство
	CurrentSubscriptionID *string           // Подписка, за которой закреплено устройство
	LastMaintenance       *time.Time        // Дата последнего обслуживания
	Specifications        map[string]string // Произвольные характеристики устройства
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DummyDevice используется для приёма данных устройства из JSON-запроса
// при административном создании и редактировании.
type DummyDevice struct {
	SerialNumber   string            `json:"serial_number" validate:"required"`                             // Серийный номер
	Condition      string            `json:"condition" validate:"required,oneof=excellent good fair poor"` // Состояние устройства
	Specifications map[string]string `json:"specifications"`                                                // Характеристики
}
