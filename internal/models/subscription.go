package models

import "time"

// Subscription представляет собой оплачиваемый план аренды устройств.
// Инвариант: у пользователя не более одной подписки в статусе active;
// DeviceCount не превышает MaxDevices.
type Subscription struct {
	ID            string             // Уникальный идентификатор подписки
	UserUID       string             // Владелец подписки
	PlanType      string             // Тип плана: daily, weekly или monthly
	StartDate     time.Time          // Дата начала
	EndDate       time.Time          // Дата окончания
	Status        SubscriptionStatus // Статус подписки
	PaymentStatus PaymentStatus      // Статус оплаты
	Amount        float64            // Стоимость плана
	MaxDevices    int                // Квота устройств для плана
	DeviceCount   int                // Количество закреплённых устройств
	CreatedAt     time.Time
}

// DummySubscription используется для приёма данных из JSON-запроса
// на покупку подписки, прежде чем конвертировать их в Subscription.
type DummySubscription struct {
	PlanType string  `json:"plan_type" validate:"required,oneof=daily weekly monthly"` // Тип плана
	Amount   float64 `json:"amount" validate:"required,gt=0"`                          // Стоимость (>0)
}
