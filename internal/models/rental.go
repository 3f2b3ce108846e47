package models

import "time"

// Rental — запись истории аренды одного устройства.
// Строка создаётся при закреплении устройства за подпиской и закрывается
// при возврате устройства в пул; состояние устройства на момент возврата
// фиксируется в ReturnCondition. У устройства не более одной открытой записи.
type Rental struct {
	ID              string           // Уникальный идентификатор записи
	DeviceID        string           // Арендованное устройство
	UserUID         string           // Арендатор
	SubscriptionID  string           // Подписка, по которой выдано устройство
	RentedAt        time.Time        // Момент выдачи
	ReturnedAt      *time.Time       // Момент возврата, nil для открытой аренды
	ReturnCondition *DeviceCondition // Состояние устройства при возврате
}
