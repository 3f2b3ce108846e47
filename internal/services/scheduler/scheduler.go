// Package services содержит фоновый обработчик просроченных подписок:
// по расписанию переводит их в expired, возвращает устройства в пул
// и публикует уведомления в RabbitMQ.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/device-rental/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/device-rental/internal/lib/sl"
	"github.com/magabrotheeeer/device-rental/internal/models"
	"github.com/streadway/amqp"
)

// RentalCoordinator описывает операцию координатора, которую запускает планировщик.
type RentalCoordinator interface {
	// ExpireOverdue переводит просроченные подписки в expired и освобождает устройства.
	ExpireOverdue(ctx context.Context) ([]*models.Subscription, error)
}

// ExpiredNotification сообщение об истёкшей подписке для очереди уведомлений.
type ExpiredNotification struct {
	SubscriptionID string    `json:"subscription_id"`
	UserUID        string    `json:"user_uid"`
	PlanType       string    `json:"plan_type"`
	EndDate        time.Time `json:"end_date"`
}

// SchedulerService по расписанию запускает обработку просроченных подписок.
type SchedulerService struct {
	rental   RentalCoordinator
	interval time.Duration
	log      *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(rental RentalCoordinator, interval time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		rental:   rental,
		interval: interval,
		log:      log,
	}
}

// Run запускает цикл обработки просроченных подписок до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context, channel *amqp.Channel) {
	s.runExpireOverdue(ctx, channel)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runExpireOverdue(ctx, channel)
		}
	}
}

func (s *SchedulerService) runExpireOverdue(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting sweep for overdue subscriptions")
	expired, err := s.rental.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error("failed to expire overdue subscriptions", sl.Err(err))
		return
	}
	if len(expired) == 0 {
		s.log.Info("no overdue subscriptions found")
		return
	}
	s.log.Info("expired overdue subscriptions", "count", len(expired))
	for _, sub := range expired {
		notification := ExpiredNotification{
			SubscriptionID: sub.ID,
			UserUID:        sub.UserUID,
			PlanType:       sub.PlanType,
			EndDate:        sub.EndDate,
		}
		if err := rabbitmq.PublishMessage(channel, "notifications", "expired", notification); err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
