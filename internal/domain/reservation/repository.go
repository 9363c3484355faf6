package reservation

import (
	"context"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/google/uuid"
)

// ListFilter narrows the admin reservation list. Zero values match everything.
type ListFilter struct {
	Status  Status
	HotelID uuid.UUID
	// Search matches code, guest email or guest last name, case-insensitive.
	Search string
}

// Repository defines the read side and simple writes of reservation aggregates.
type Repository interface {
	// FindByID retrieves a reservation by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// FindByCode retrieves a reservation by its human-readable code.
	FindByCode(ctx context.Context, code string) (*Reservation, error)

	// FindByCodeAndEmail matches both fields case-insensitively.
	FindByCodeAndEmail(ctx context.Context, code, email string) (*Reservation, error)

	// List retrieves reservations matching filter, newest first, with pagination.
	List(ctx context.Context, filter ListFilter, page, limit int) ([]*Reservation, int64, error)

	// CountByStatus returns reservation counts grouped by status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// FindPendingCreatedBefore returns up to limit PENDING reservations created before cutoff, oldest first.
	FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Reservation, error)
}

// Tx is the store as seen from inside one serializable transaction.
type Tx interface {
	// HoldRooms adds qty to bookedRooms of the (roomTypeID, date) row, creating
	// it with totalRooms = inventoryCount when absent, and returns the row as it
	// reads after the write.
	HoldRooms(ctx context.Context, roomTypeID uuid.UUID, date time.Time, qty, inventoryCount int) (inventory.DailyAllotment, error)

	// ReleaseRooms subtracts qty from bookedRooms of an existing row.
	ReleaseRooms(ctx context.Context, roomTypeID uuid.UUID, date time.Time, qty int) error

	// FindReservation reads a reservation within the transaction.
	FindReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// InsertReservation persists a new reservation.
	InsertReservation(ctx context.Context, r *Reservation) error

	// UpdateReservation persists status changes with optimistic locking.
	UpdateReservation(ctx context.Context, r *Reservation) error

	// RecordAudit appends an audit entry.
	RecordAudit(ctx context.Context, e *audit.Entry) error
}

// UnitOfWork runs work against the store atomically.
type UnitOfWork interface {
	// Serializable runs fn in one SERIALIZABLE transaction bounded by the
	// store's timeout. Any error from fn rolls everything back and is returned
	// unchanged; serialization failures and timeouts surface as ConflictError.
	Serializable(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
