package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

const subscriptionColumns = `id, user_uid, plan_type, start_date, end_date,
			     status, payment_status, amount, max_devices, device_count, created_at`

// CreateSubscription вставляет подписку внутри транзакции координатора
// и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, q DBTX, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, plan_type, start_date, end_date,
				status, payment_status, amount, max_devices, device_count)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var newID string
	if err := q.QueryRowContext(ctx, query,
		sub.UserUID, sub.PlanType, sub.StartDate, sub.EndDate,
		sub.Status, sub.PaymentStatus, sub.Amount, sub.MaxDevices, sub.DeviceCount).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		// Частичный уникальный индекс по активным подпискам пользователя.
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, domain.ErrAlreadyActive)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку по её ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions WHERE id = $1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// FindActiveByUser возвращает активную подписку пользователя
// или nil, если активной подписки нет.
func (s *Storage) FindActiveByUser(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FindActiveByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1 AND status = 'active'`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptionsByUser возвращает подписки пользователя с пагинацией,
// новые раньше старых.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectSubscriptions(rows, op)
}

// ListAllSubscriptions возвращает подписки всех пользователей с пагинацией.
func (s *Storage) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListAllSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectSubscriptions(rows, op)
}

// UpdatePaymentStatus меняет статус оплаты подписки,
// возвращает количество изменённых строк.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, q DBTX, id string, status models.PaymentStatus) (int, error) {
	const op = "storage.UpdatePaymentStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET payment_status = $1 WHERE id = $2`
	result, err := q.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdateSubscriptionStatus меняет статус подписки,
// возвращает количество изменённых строк.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, q DBTX, id string, status models.SubscriptionStatus) (int, error) {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = $1 WHERE id = $2`
	result, err := q.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetDeviceCount фиксирует число устройств, закреплённых за подпиской.
func (s *Storage) SetDeviceCount(ctx context.Context, q DBTX, id string, count int) error {
	const op = "storage.SetDeviceCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET device_count = $1 WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, count, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AdjustDeviceCount изменяет счётчик устройств подписки на delta.
func (s *Storage) AdjustDeviceCount(ctx context.Context, q DBTX, id string, delta int) error {
	const op = "storage.AdjustDeviceCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET device_count = device_count + $1 WHERE id = $2`
	if _, err := q.ExecContext(ctx, query, delta, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindExpiredActive возвращает активные подписки, срок которых уже истёк.
func (s *Storage) FindExpiredActive(ctx context.Context) ([]*models.Subscription, error) {
	const op = "storage.FindExpiredActive"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE status = 'active' AND end_date < NOW()`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectSubscriptions(rows, op)
}

// MarkExpired переводит активную подписку в expired; нулевое число
// изменённых строк означает, что подписку уже обработали.
func (s *Storage) MarkExpired(ctx context.Context, q DBTX, id string) (int, error) {
	const op = "storage.MarkExpired"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions SET status = 'expired' WHERE id = $1 AND status = 'active'`
	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanType, &sub.StartDate, &sub.EndDate,
		&sub.Status, &sub.PaymentStatus, &sub.Amount, &sub.MaxDevices, &sub.DeviceCount,
		&sub.CreatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

func collectSubscriptions(rows *sql.Rows, op string) ([]*models.Subscription, error) {
	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
