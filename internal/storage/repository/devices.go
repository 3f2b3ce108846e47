package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

const deviceColumns = `id, serial_number, status, condition, current_user_uid,
		      current_subscription_id, last_maintenance, specifications, created_at, updated_at`

// CreateDevice вставляет новое устройство и возвращает его ID.
func (s *Storage) CreateDevice(ctx context.Context, device models.Device) (string, error) {
	const op = "storage.CreateDevice"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	specs, err := marshalSpecs(device.Specifications)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO devices (serial_number, status, condition, specifications)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var newID string
	if err := s.DB.QueryRowContext(ctx, query,
		device.SerialNumber, device.Status, device.Condition, specs).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%s: %w", op, domain.ErrSerialTaken)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetDevice возвращает устройство по его ID.
func (s *Storage) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	const op = "storage.GetDevice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices WHERE id = $1`
	device, err := scanDevice(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrDeviceNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return device, nil
}

// ListDevices возвращает список устройств с пагинацией,
// при непустом status — только устройства в этом статусе.
func (s *Storage) ListDevices(ctx context.Context, status *models.DeviceStatus, limit, offset int) ([]*models.Device, error) {
	const op = "storage.ListDevices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices
			  WHERE ($1::text IS NULL OR status = $1)
			  ORDER BY serial_number
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectDevices(rows, op)
}

// CountDevices возвращает количество устройств, при непустом status —
// только в этом статусе.
func (s *Storage) CountDevices(ctx context.Context, status *models.DeviceStatus) (int, error) {
	const op = "storage.CountDevices"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM devices WHERE ($1::text IS NULL OR status = $1)`
	var total int
	if err := s.DB.QueryRowContext(ctx, query, status).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// ListDevicesByUser возвращает устройства, арендованные пользователем.
func (s *Storage) ListDevicesByUser(ctx context.Context, userUID string) ([]*models.Device, error) {
	const op = "storage.ListDevicesByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices
			  WHERE current_user_uid = $1
			  ORDER BY serial_number`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectDevices(rows, op)
}

// UpdateDevice обновляет серийный номер, состояние и характеристики устройства,
// возвращает количество изменённых строк. Статус и владение не затрагиваются.
func (s *Storage) UpdateDevice(ctx context.Context, id string, req models.DummyDevice) (int, error) {
	const op = "storage.UpdateDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	specs, err := marshalSpecs(req.Specifications)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE devices
			  SET serial_number = $1, condition = $2, specifications = $3, updated_at = NOW()
			  WHERE id = $4`
	result, err := s.DB.ExecContext(ctx, query, req.SerialNumber, req.Condition, specs, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, domain.ErrSerialTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeleteDevice удаляет устройство по ID и возвращает количество удалённых строк.
// Арендованные устройства не удаляются.
func (s *Storage) DeleteDevice(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteDevice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM devices WHERE id = $1 AND status <> 'rented'`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// OverrideDeviceStatus устанавливает статус устройства прямой правкой администратора.
// Переходы в rented и из rented выполняются только координатором, поэтому
// запрос отклоняет обе стороны такого перехода.
func (s *Storage) OverrideDeviceStatus(ctx context.Context, id string, status models.DeviceStatus) (int, error) {
	const op = "storage.OverrideDeviceStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = $1, updated_at = NOW()
			  WHERE id = $2 AND status <> 'rented'`
	result, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetDeviceMaintenance переводит устройство в обслуживание с отметкой даты.
func (s *Storage) SetDeviceMaintenance(ctx context.Context, id string, date time.Time) (int, error) {
	const op = "storage.SetDeviceMaintenance"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = 'maintenance', last_maintenance = $1, updated_at = NOW()
			  WHERE id = $2 AND status IN ('available', 'maintenance')`
	result, err := s.DB.ExecContext(ctx, query, date, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// LockAvailableDevices выбирает до limit свободных устройств, беря блокировку
// строк на время транзакции. SKIP LOCKED гарантирует, что параллельные покупки
// не увидят одни и те же строки.
func (s *Storage) LockAvailableDevices(ctx context.Context, q DBTX, limit int) ([]*models.Device, error) {
	const op = "storage.LockAvailableDevices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + deviceColumns + `
			  FROM devices
			  WHERE status = 'available'
			  ORDER BY serial_number
			  LIMIT $1
			  FOR UPDATE SKIP LOCKED`
	rows, err := q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return collectDevices(rows, op)
}

// MarkDeviceRented закрепляет устройство за пользователем и подпиской.
// Переход допустим только из available; нулевое число изменённых строк
// означает проигранную гонку и фатально для транзакции.
func (s *Storage) MarkDeviceRented(ctx context.Context, q DBTX, deviceID, userUID, subscriptionID string) error {
	const op = "storage.MarkDeviceRented"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = 'rented', current_user_uid = $1, current_subscription_id = $2, updated_at = NOW()
			  WHERE id = $3 AND status = 'available'`
	result, err := q.ExecContext(ctx, query, userUID, subscriptionID, deviceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidTransition)
	}
	return nil
}

// MarkDeviceAvailable возвращает одно арендованное устройство в пул.
func (s *Storage) MarkDeviceAvailable(ctx context.Context, q DBTX, deviceID string) error {
	const op = "storage.MarkDeviceAvailable"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = 'available', current_user_uid = NULL, current_subscription_id = NULL, updated_at = NOW()
			  WHERE id = $1 AND status = 'rented'`
	result, err := q.ExecContext(ctx, query, deviceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidTransition)
	}
	return nil
}

// ReleaseDevicesByUser возвращает в пул все арендованные устройства пользователя,
// возвращает количество освобождённых устройств.
func (s *Storage) ReleaseDevicesByUser(ctx context.Context, q DBTX, userUID string) (int, error) {
	const op = "storage.ReleaseDevicesByUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE devices
			  SET status = 'available', current_user_uid = NULL, current_subscription_id = NULL, updated_at = NOW()
			  WHERE current_user_uid = $1 AND status = 'rented'`
	result, err := q.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var d models.Device
	var currentUser, currentSubscription sql.NullString
	var lastMaintenance sql.NullTime
	var specs []byte

	if err := row.Scan(&d.ID, &d.SerialNumber, &d.Status, &d.Condition,
		&currentUser, &currentSubscription, &lastMaintenance, &specs,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	if currentUser.Valid {
		d.CurrentUserUID = &currentUser.String
	}
	if currentSubscription.Valid {
		d.CurrentSubscriptionID = &currentSubscription.String
	}
	if lastMaintenance.Valid {
		d.LastMaintenance = &lastMaintenance.Time
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &d.Specifications); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

func collectDevices(rows *sql.Rows, op string) ([]*models.Device, error) {
	var result []*models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func marshalSpecs(specs map[string]string) ([]byte, error) {
	if specs == nil {
		return nil, nil
	}
	return json.Marshal(specs)
}
