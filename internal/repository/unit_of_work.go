package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/atollstay/service-reservation/internal/platform/database"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUnitOfWork runs reservation work in SERIALIZABLE Postgres transactions.
type GormUnitOfWork struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormUnitOfWork creates a unit of work whose transactions are bounded by timeout.
func NewGormUnitOfWork(db *gorm.DB, timeout time.Duration) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, timeout: timeout}
}

// Serializable implements reservation.UnitOfWork.
func (u *GormUnitOfWork) Serializable(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	err := u.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	return translateTxError(ctx, err)
}

func translateTxError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	// Domain errors from fn pass through untouched.
	if domain.IsDomainError(err) {
		return err
	}
	switch {
	case database.IsSerializationFailure(err):
		return domain.NewConflictError("reservation conflicted with a concurrent transaction")
	case database.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewTimeoutConflictError("reservation transaction timed out")
	case database.IsUniqueViolation(err):
		return domain.NewConflictError("reservation code already in use")
	}
	return err
}

// gormTx implements reservation.Tx on a transaction handle.
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) HoldRooms(ctx context.Context, roomTypeID uuid.UUID, date time.Time, qty, inventoryCount int) (inventory.DailyAllotment, error) {
	row := DailyAllotmentModel{
		ID:          uuid.New(),
		RoomTypeID:  roomTypeID,
		Date:        date,
		TotalRooms:  inventoryCount,
		BookedRooms: qty,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_type_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"booked_rooms": gorm.Expr("daily_allotments.booked_rooms + ?", qty),
			"updated_at":   row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return inventory.DailyAllotment{}, fmt.Errorf("failed to hold rooms: %w", err)
	}

	var model DailyAllotmentModel
	if err := t.db.WithContext(ctx).
		Where("room_type_id = ? AND date = ?", roomTypeID, date).
		First(&model).Error; err != nil {
		return inventory.DailyAllotment{}, fmt.Errorf("failed to read held allotment: %w", err)
	}
	return toAllotmentDomain(&model), nil
}

func (t *gormTx) ReleaseRooms(ctx context.Context, roomTypeID uuid.UUID, date time.Time, qty int) error {
	result := t.db.WithContext(ctx).
		Model(&DailyAllotmentModel{}).
		Where("room_type_id = ? AND date = ?", roomTypeID, date).
		Updates(map[string]interface{}{
			"booked_rooms": gorm.Expr("booked_rooms - ?", qty),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to release rooms: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("DailyAllotment", fmt.Sprintf("%s/%s", roomTypeID, date.Format(time.DateOnly)))
	}
	return nil
}

func (t *gormTx) FindReservation(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	q := t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return findReservation(q, id.String())
}

func (t *gormTx) InsertReservation(ctx context.Context, res *reservation.Reservation) error {
	model, err := toReservationModel(res)
	if err != nil {
		return fmt.Errorf("failed to convert reservation to model: %w", err)
	}
	if err := t.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

// UpdateReservation persists status fields with optimistic locking against version-1.
func (t *gormTx) UpdateReservation(ctx context.Context, res *reservation.Reservation) error {
	model, err := toReservationModel(res)
	if err != nil {
		return fmt.Errorf("failed to convert reservation to model: %w", err)
	}

	expectedVersion := res.Version() - 1
	result := t.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":        model.Status,
			"confirmed_at":  model.ConfirmedAt,
			"cancelled_at":  model.CancelledAt,
			"refunded_at":   model.RefundedAt,
			"cancel_reason": model.CancelReason,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update reservation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("reservation was modified by another transaction")
	}
	return nil
}

func (t *gormTx) RecordAudit(ctx context.Context, e *audit.Entry) error {
	if err := t.db.WithContext(ctx).Create(toAuditModel(e)).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
