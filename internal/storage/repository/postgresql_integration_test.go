package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/device-rental/internal/domain"
	"github.com/magabrotheeeer/device-rental/internal/models"
)

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("register and read back", func(t *testing.T) {
		uid, err := storage.RegisterUser(ctx, models.User{
			Email:        "user1@example.com",
			Username:     "user1",
			PasswordHash: "hashedpassword",
			Role:         models.RoleUser,
			Status:       models.UserActive,
		})
		require.NoError(t, err)
		require.NotEmpty(t, uid)

		byName, err := storage.GetUserByUsername(ctx, "user1")
		require.NoError(t, err)
		assert.Equal(t, uid, byName.UID)
		assert.Equal(t, models.RoleUser, byName.Role)
		assert.Equal(t, models.UserActive, byName.Status)

		byUID, err := storage.GetUser(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, "user1", byUID.Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := storage.GetUserByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		_, err = storage.GetUser(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("status change", func(t *testing.T) {
		user, err := storage.GetUserByUsername(ctx, "user1")
		require.NoError(t, err)

		count, err := storage.UpdateUserStatus(ctx, user.UID, models.UserSuspended)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		updated, err := storage.GetUser(ctx, user.UID)
		require.NoError(t, err)
		assert.Equal(t, models.UserSuspended, updated.Status)

		count, err = storage.UpdateUserStatus(ctx, "00000000-0000-0000-0000-000000000000", models.UserActive)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStorage_Devices(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	t.Run("create and read back", func(t *testing.T) {
		id, err := storage.CreateDevice(ctx, models.Device{
			SerialNumber:   "SN-CREATE-001",
			Status:         models.DeviceAvailable,
			Condition:      models.ConditionGood,
			Specifications: map[string]string{"ram": "16GB", "cpu": "M3"},
		})
		require.NoError(t, err)

		device, err := storage.GetDevice(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "SN-CREATE-001", device.SerialNumber)
		assert.Equal(t, models.DeviceAvailable, device.Status)
		assert.Equal(t, models.ConditionGood, device.Condition)
		assert.Equal(t, "16GB", device.Specifications["ram"])
		assert.Nil(t, device.CurrentUserUID)
		assert.Nil(t, device.CurrentSubscriptionID)
	})

	t.Run("duplicate serial number", func(t *testing.T) {
		_, err := storage.CreateDevice(ctx, models.Device{
			SerialNumber: "SN-CREATE-001",
			Status:       models.DeviceAvailable,
			Condition:    models.ConditionFair,
		})
		assert.ErrorIs(t, err, domain.ErrSerialTaken)
	})

	t.Run("list with status filter", func(t *testing.T) {
		factory.CreateDevice(t, RandomSerial(), "maintenance", "poor")

		maintenance := models.DeviceMaintenance
		devices, err := storage.ListDevices(ctx, &maintenance, 10, 0)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, models.DeviceMaintenance, devices[0].Status)

		total, err := storage.CountDevices(ctx, &maintenance)
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		all, err := storage.ListDevices(ctx, nil, 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update attributes", func(t *testing.T) {
		id := factory.CreateDevice(t, RandomSerial(), "available", "excellent")

		count, err := storage.UpdateDevice(ctx, id, models.DummyDevice{
			SerialNumber:   "SN-UPDATED-001",
			Condition:      "fair",
			Specifications: map[string]string{"note": "scratched lid"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		device, err := storage.GetDevice(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "SN-UPDATED-001", device.SerialNumber)
		assert.Equal(t, models.ConditionFair, device.Condition)
	})

	t.Run("rented device is not deleted", func(t *testing.T) {
		userUID := factory.CreateUser(t, "renter1", "renter1@example.com", "user")
		subID := factory.CreateSubscription(t, userUID, "daily", "active",
			time.Now(), time.Now().AddDate(0, 0, 1), 1)
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "good")
		factory.RentDevice(t, deviceID, userUID, subID)

		count, err := storage.DeleteDevice(ctx, deviceID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		NewTestVerification(storage).VerifyDeviceStatus(t, deviceID, "rented")
	})

	t.Run("override skips rented devices", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "good")

		count, err := storage.OverrideDeviceStatus(ctx, deviceID, models.DeviceRetired)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		NewTestVerification(storage).VerifyDeviceStatus(t, deviceID, "retired")
	})

	t.Run("maintenance is guarded by current status", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "retired", "poor")

		count, err := storage.SetDeviceMaintenance(ctx, deviceID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStorage_Subscriptions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userUID := factory.CreateUser(t, "subuser", "subuser@example.com", "user")
	now := time.Now().UTC()

	newSubscription := func(status models.SubscriptionStatus, endDate time.Time) models.Subscription {
		return models.Subscription{
			UserUID:       userUID,
			PlanType:      "weekly",
			StartDate:     now,
			EndDate:       endDate,
			Status:        status,
			PaymentStatus: models.PaymentPending,
			Amount:        499,
			MaxDevices:    3,
		}
	}

	t.Run("create and read back", func(t *testing.T) {
		id, err := storage.CreateSubscription(ctx, storage.DB, newSubscription(models.SubscriptionActive, now.AddDate(0, 0, 7)))
		require.NoError(t, err)

		sub, err := storage.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, userUID, sub.UserUID)
		assert.Equal(t, "weekly", sub.PlanType)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		assert.Equal(t, 3, sub.MaxDevices)

		active, err := storage.FindActiveByUser(ctx, userUID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, id, active.ID)
	})

	t.Run("second active subscription violates the partial index", func(t *testing.T) {
		_, err := storage.CreateSubscription(ctx, storage.DB, newSubscription(models.SubscriptionActive, now.AddDate(0, 0, 7)))
		assert.ErrorIs(t, err, domain.ErrAlreadyActive)
	})

	t.Run("lifecycle updates", func(t *testing.T) {
		active, err := storage.FindActiveByUser(ctx, userUID)
		require.NoError(t, err)
		require.NotNil(t, active)

		count, err := storage.UpdatePaymentStatus(ctx, storage.DB, active.ID, models.PaymentPaid)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		count, err = storage.UpdateSubscriptionStatus(ctx, storage.DB, active.ID, models.SubscriptionCancelled)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		none, err := storage.FindActiveByUser(ctx, userUID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("device count bookkeeping", func(t *testing.T) {
		id, err := storage.CreateSubscription(ctx, storage.DB, newSubscription(models.SubscriptionActive, now.AddDate(0, 0, 7)))
		require.NoError(t, err)

		require.NoError(t, storage.SetDeviceCount(ctx, storage.DB, id, 3))
		require.NoError(t, storage.AdjustDeviceCount(ctx, storage.DB, id, -1))

		sub, err := storage.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, sub.DeviceCount)

		_, err = storage.UpdateSubscriptionStatus(ctx, storage.DB, id, models.SubscriptionCancelled)
		require.NoError(t, err)
	})

	t.Run("expired sweep", func(t *testing.T) {
		id, err := storage.CreateSubscription(ctx, storage.DB, newSubscription(models.SubscriptionActive, now.Add(-time.Hour)))
		require.NoError(t, err)

		overdue, err := storage.FindExpiredActive(ctx)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, id, overdue[0].ID)

		count, err := storage.MarkExpired(ctx, storage.DB, id)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// Повторная пометка уже обработанной подписки ничего не меняет.
		count, err = storage.MarkExpired(ctx, storage.DB, id)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		overdue, err = storage.FindExpiredActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, overdue)
	})

	t.Run("list by user and list all", func(t *testing.T) {
		subs, err := storage.ListSubscriptionsByUser(ctx, userUID, 10, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, subs)

		all, err := storage.ListAllSubscriptions(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, len(subs))
	})
}

func TestStorage_Rentals(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userUID := factory.CreateUser(t, "histuser", "histuser@example.com", "user")
	now := time.Now().UTC()
	subID := factory.CreateSubscription(t, userUID, "weekly", "active", now, now.AddDate(0, 0, 7), 3)

	t.Run("open and close by subscription", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "fair")
		require.NoError(t, storage.CreateRental(ctx, storage.DB, deviceID, userUID, subID))

		rentals, err := storage.ListRentalsByUser(ctx, userUID, 10, 0)
		require.NoError(t, err)
		require.Len(t, rentals, 1)
		assert.Equal(t, deviceID, rentals[0].DeviceID)
		assert.Equal(t, subID, rentals[0].SubscriptionID)
		assert.Nil(t, rentals[0].ReturnedAt)
		assert.Nil(t, rentals[0].ReturnCondition)

		closed, err := storage.CloseRentalsBySubscription(ctx, storage.DB, subID)
		require.NoError(t, err)
		assert.Equal(t, 1, closed)

		rentals, err = storage.ListRentalsByUser(ctx, userUID, 10, 0)
		require.NoError(t, err)
		require.Len(t, rentals, 1)
		require.NotNil(t, rentals[0].ReturnedAt)
		require.NotNil(t, rentals[0].ReturnCondition)
		// Состояние при возврате снимается с устройства на момент закрытия.
		assert.Equal(t, models.ConditionFair, *rentals[0].ReturnCondition)

		// Повторное закрытие ничего не находит.
		closed, err = storage.CloseRentalsBySubscription(ctx, storage.DB, subID)
		require.NoError(t, err)
		assert.Equal(t, 0, closed)
	})

	t.Run("close by device", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "excellent")
		require.NoError(t, storage.CreateRental(ctx, storage.DB, deviceID, userUID, subID))

		closed, err := storage.CloseRentalByDevice(ctx, storage.DB, deviceID)
		require.NoError(t, err)
		assert.Equal(t, 1, closed)
	})

	t.Run("second open rental for one device violates the partial index", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "good")
		require.NoError(t, storage.CreateRental(ctx, storage.DB, deviceID, userUID, subID))

		err := storage.CreateRental(ctx, storage.DB, deviceID, userUID, subID)
		assert.Error(t, err)
	})

	t.Run("open rentals come first in listings", func(t *testing.T) {
		rentals, err := storage.ListRentalsByUser(ctx, userUID, 10, 0)
		require.NoError(t, err)
		require.Len(t, rentals, 3)
		assert.Nil(t, rentals[0].ReturnedAt)
		assert.NotNil(t, rentals[1].ReturnedAt)
		assert.NotNil(t, rentals[2].ReturnedAt)

		all, err := storage.ListAllRentals(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStorage_RentalTransaction(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	verify := NewTestVerification(storage)

	userUID := factory.CreateUser(t, "txuser", "txuser@example.com", "user")
	now := time.Now().UTC()

	t.Run("rent and release", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "good")
		subID := factory.CreateSubscription(t, userUID, "daily", "active", now, now.AddDate(0, 0, 1), 1)

		require.NoError(t, storage.MarkDeviceRented(ctx, storage.DB, deviceID, userUID, subID))
		verify.VerifyDeviceStatus(t, deviceID, "rented")

		// Повторная аренда того же устройства проигрывает гонку.
		err := storage.MarkDeviceRented(ctx, storage.DB, deviceID, userUID, subID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		released, err := storage.ReleaseDevicesByUser(ctx, storage.DB, userUID)
		require.NoError(t, err)
		assert.Equal(t, 1, released)
		verify.VerifyDeviceStatus(t, deviceID, "available")

		_, err = storage.UpdateSubscriptionStatus(ctx, storage.DB, subID, models.SubscriptionCancelled)
		require.NoError(t, err)
	})

	t.Run("rollback leaves no orphan subscription", func(t *testing.T) {
		// Пул пуст: вставка подписки должна откатиться вместе с транзакцией.
		orphanUID := factory.CreateUser(t, "orphanuser", "orphanuser@example.com", "user")

		err := storage.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := storage.CreateSubscription(ctx, tx, models.Subscription{
				UserUID:       orphanUID,
				PlanType:      "daily",
				StartDate:     now,
				EndDate:       now.AddDate(0, 0, 1),
				Status:        models.SubscriptionActive,
				PaymentStatus: models.PaymentPending,
				Amount:        99,
				MaxDevices:    1,
			})
			if err != nil {
				return err
			}
			devices, err := storage.LockAvailableDevices(ctx, tx, 1)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				return domain.ErrNoDevicesAvailable
			}
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrNoDevicesAvailable)
		assert.Equal(t, 0, verify.CountSubscriptions(t, orphanUID))
	})

	t.Run("concurrent buyers compete for the last device", func(t *testing.T) {
		deviceID := factory.CreateDevice(t, RandomSerial(), "available", "good")

		type buyer struct {
			userUID string
			subID   string
		}
		buyers := []buyer{
			{userUID: factory.CreateUser(t, "racer1", "racer1@example.com", "user")},
			{userUID: factory.CreateUser(t, "racer2", "racer2@example.com", "user")},
		}
		for i := range buyers {
			buyers[i].subID = factory.CreateSubscription(t, buyers[i].userUID, "daily", "active",
				now, now.AddDate(0, 0, 1), 1)
		}

		results := make([]error, len(buyers))
		var wg sync.WaitGroup
		for i, b := range buyers {
			wg.Add(1)
			go func(i int, b buyer) {
				defer wg.Done()
				results[i] = storage.WithTx(ctx, func(tx *sql.Tx) error {
					devices, err := storage.LockAvailableDevices(ctx, tx, 1)
					if err != nil {
						return err
					}
					if len(devices) == 0 {
						return domain.ErrNoDevicesAvailable
					}
					return storage.MarkDeviceRented(ctx, tx, devices[0].ID, b.userUID, b.subID)
				})
			}(i, b)
		}
		wg.Wait()

		var winners, losers int
		for _, err := range results {
			switch {
			case err == nil:
				winners++
			case errors.Is(err, domain.ErrNoDevicesAvailable):
				losers++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, winners, "exactly one buyer should win the device")
		assert.Equal(t, 1, losers, "the other buyer should see an empty pool")

		verify.VerifyDeviceStatus(t, deviceID, "rented")
	})
}
