package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/device-rental/internal/models"
)

const rentalColumns = `id, device_id, user_uid, subscription_id, rented_at, returned_at, return_condition`

// CreateRental открывает запись истории аренды устройства.
func (s *Storage) CreateRental(ctx context.Context, q DBTX, deviceID, userUID, subscriptionID string) error {
	const op = "storage.CreateRental"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO rentals (device_id, user_uid, subscription_id)
			  VALUES ($1, $2, $3)`
	if _, err := q.ExecContext(ctx, query, deviceID, userUID, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CloseRentalsBySubscription закрывает все открытые записи аренды подписки,
// фиксируя текущее состояние устройства как состояние при возврате.
// Возвращает количество закрытых записей.
func (s *Storage) CloseRentalsBySubscription(ctx context.Context, q DBTX, subscriptionID string) (int, error) {
	const op = "storage.CloseRentalsBySubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE rentals
			  SET returned_at = NOW(), return_condition = d.condition
			  FROM devices d
			  WHERE rentals.device_id = d.id
			    AND rentals.subscription_id = $1
			    AND rentals.returned_at IS NULL`
	result, err := q.ExecContext(ctx, query, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CloseRentalByDevice закрывает открытую запись аренды одного устройства.
// Возвращает количество закрытых записей.
func (s *Storage) CloseRentalByDevice(ctx context.Context, q DBTX, deviceID string) (int, error) {
	const op = "storage.CloseRentalByDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE rentals
			  SET returned_at = NOW(), return_condition = d.condition
			  FROM devices d
			  WHERE rentals.device_id = d.id
			    AND rentals.device_id = $1
			    AND rentals.returned_at IS NULL`
	result, err := q.ExecContext(ctx, query, deviceID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListRentalsByUser возвращает историю аренды пользователя с пагинацией,
// открытые записи первыми, затем по убыванию даты выдачи.
func (s *Storage) ListRentalsByUser(ctx context.Context, userUID string, limit, offset int) ([]*models.Rental, error) {
	const op = "storage.ListRentalsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + rentalColumns + `
			  FROM rentals
			  WHERE user_uid = $1
			  ORDER BY returned_at IS NOT NULL, rented_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectRentals(rows, op)
}

// ListAllRentals возвращает историю аренды всех пользователей с пагинацией.
func (s *Storage) ListAllRentals(ctx context.Context, limit, offset int) ([]*models.Rental, error) {
	const op = "storage.ListAllRentals"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + rentalColumns + `
			  FROM rentals
			  ORDER BY returned_at IS NOT NULL, rented_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectRentals(rows, op)
}

func scanRental(row rowScanner) (*models.Rental, error) {
	var r models.Rental
	var returnedAt sql.NullTime
	var returnCondition sql.NullString

	if err := row.Scan(&r.ID, &r.DeviceID, &r.UserUID, &r.SubscriptionID,
		&r.RentedAt, &returnedAt, &returnCondition); err != nil {
		return nil, err
	}

	if returnedAt.Valid {
		r.ReturnedAt = &returnedAt.Time
	}
	if returnCondition.Valid {
		condition := models.DeviceCondition(returnCondition.String)
		r.ReturnCondition = &condition
	}
	return &r, nil
}

func collectRentals(rows *sql.Rows, op string) ([]*models.Rental, error) {
	var result []*models.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, rental)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
