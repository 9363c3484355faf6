package reservation

import (
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is the aggregate root for the reservation domain.
type Reservation struct {
	id         uuid.UUID
	code       string
	hotelID    uuid.UUID
	roomTypeID uuid.UUID
	guest      Guest

	checkIn    time.Time
	checkOut   time.Time
	nights     int
	roomQty    int
	guestCount int

	breakdown   pricing.Breakdown
	totalAmount decimal.Decimal
	currency    string

	status          Status
	specialRequests string
	confirmedAt     *time.Time
	cancelledAt     *time.Time
	refundedAt      *time.Time
	cancelReason    string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewReservationParams groups the inputs of NewReservation.
type NewReservationParams struct {
	HotelID         uuid.UUID
	RoomTypeID      uuid.UUID
	Guest           Guest
	CheckIn         time.Time
	CheckOut        time.Time
	RoomQty         int
	GuestCount      int
	Breakdown       pricing.Breakdown
	SpecialRequests string
}

// NewReservation creates a PENDING reservation with a fresh code. The
// breakdown is frozen as given and totalAmount is taken from it.
func NewReservation(p NewReservationParams) (*Reservation, error) {
	if p.HotelID == uuid.Nil {
		return nil, domain.NewValidationError("hotel ID is required")
	}
	if p.RoomTypeID == uuid.Nil {
		return nil, domain.NewValidationError("room type ID is required")
	}
	checkIn := calendar.Normalize(p.CheckIn)
	checkOut := calendar.Normalize(p.CheckOut)
	nights, err := calendar.ValidateStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if p.RoomQty < 1 {
		return nil, domain.NewValidationError("room quantity must be at least 1")
	}
	if p.GuestCount < 1 {
		return nil, domain.NewValidationError("guest count must be at least 1")
	}
	guest := p.Guest.Normalized()
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	if len([]rune(p.SpecialRequests)) > maxSpecialRequestsLength {
		return nil, domain.NewValidationError("special requests must be at most 2000 characters")
	}
	if p.Breakdown.Nights() != nights || p.Breakdown.RoomQty != p.RoomQty {
		return nil, domain.NewValidationError("pricing breakdown does not match the stay")
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Reservation{
		id:              uuid.New(),
		code:            code,
		hotelID:         p.HotelID,
		roomTypeID:      p.RoomTypeID,
		guest:           guest,
		checkIn:         checkIn,
		checkOut:        checkOut,
		nights:          nights,
		roomQty:         p.RoomQty,
		guestCount:      p.GuestCount,
		breakdown:       p.Breakdown,
		totalAmount:     p.Breakdown.Total,
		currency:        p.Breakdown.Currency,
		status:          StatusPending,
		specialRequests: p.SpecialRequests,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructReservation rebuilds a Reservation from persistence data (no validation).
func ReconstructReservation(
	id uuid.UUID,
	code string,
	hotelID, roomTypeID uuid.UUID,
	guest Guest,
	checkIn, checkOut time.Time,
	nights, roomQty, guestCount int,
	breakdown pricing.Breakdown,
	totalAmount decimal.Decimal,
	currency string,
	status Status,
	specialRequests string,
	confirmedAt, cancelledAt, refundedAt *time.Time,
	cancelReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:              id,
		code:            code,
		hotelID:         hotelID,
		roomTypeID:      roomTypeID,
		guest:           guest,
		checkIn:         checkIn,
		checkOut:        checkOut,
		nights:          nights,
		roomQty:         roomQty,
		guestCount:      guestCount,
		breakdown:       breakdown,
		totalAmount:     totalAmount,
		currency:        currency,
		status:          status,
		specialRequests: specialRequests,
		confirmedAt:     confirmedAt,
		cancelledAt:     cancelledAt,
		refundedAt:      refundedAt,
		cancelReason:    cancelReason,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the reservation's unique identifier.
func (r *Reservation) ID() uuid.UUID { return r.id }

// Code returns the human-readable reservation code.
func (r *Reservation) Code() string { return r.code }

// HotelID returns the hotel the reservation is for.
func (r *Reservation) HotelID() uuid.UUID { return r.hotelID }

// RoomTypeID returns the booked room type.
func (r *Reservation) RoomTypeID() uuid.UUID { return r.roomTypeID }

// Guest returns the lead guest.
func (r *Reservation) Guest() Guest { return r.guest }

// CheckIn returns the first stayed night.
func (r *Reservation) CheckIn() time.Time { return r.checkIn }

// CheckOut returns the departure date, which is not a stayed night.
func (r *Reservation) CheckOut() time.Time { return r.checkOut }

// Nights returns the cached night count.
func (r *Reservation) Nights() int { return r.nights }

// RoomQty returns the number of rooms held per night.
func (r *Reservation) RoomQty() int { return r.roomQty }

// GuestCount returns the number of guests.
func (r *Reservation) GuestCount() int { return r.guestCount }

// Breakdown returns the frozen pricing breakdown.
func (r *Reservation) Breakdown() pricing.Breakdown { return r.breakdown }

// TotalAmount returns the billable total.
func (r *Reservation) TotalAmount() decimal.Decimal { return r.totalAmount }

// Currency returns the currency code.
func (r *Reservation) Currency() string { return r.currency }

// Status returns the current reservation status.
func (r *Reservation) Status() Status { return r.status }

// SpecialRequests returns the guest's free-text requests.
func (r *Reservation) SpecialRequests() string { return r.specialRequests }

// ConfirmedAt returns when payment confirmed the reservation.
func (r *Reservation) ConfirmedAt() *time.Time { return r.confirmedAt }

// CancelledAt returns when the reservation was cancelled.
func (r *Reservation) CancelledAt() *time.Time { return r.cancelledAt }

// RefundedAt returns when the reservation was refunded.
func (r *Reservation) RefundedAt() *time.Time { return r.refundedAt }

// CancelReason returns the cancellation reason.
func (r *Reservation) CancelReason() string { return r.cancelReason }

// Version returns the entity version for optimistic locking.
func (r *Reservation) Version() int64 { return r.version }

// CreatedAt returns the creation timestamp.
func (r *Reservation) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *Reservation) UpdatedAt() time.Time { return r.updatedAt }

// StayedNights returns the dates holding allotments for this reservation.
func (r *Reservation) StayedNights() []time.Time {
	nights, err := calendar.StayedNights(r.checkIn, r.checkOut)
	if err != nil {
		return nil
	}
	return nights
}

// --- Behavior ---

// Confirm transitions the reservation from PENDING to CONFIRMED.
func (r *Reservation) Confirm() error {
	if !r.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(r.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	r.status = StatusConfirmed
	r.confirmedAt = &now
	r.updatedAt = now
	return nil
}

// Cancel transitions the reservation to CANCELLED. The caller releases the
// allotments in the same transaction.
func (r *Reservation) Cancel(reason string) error {
	if !r.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(string(r.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	r.status = StatusCancelled
	r.cancelReason = reason
	r.cancelledAt = &now
	r.updatedAt = now
	return nil
}

// Refund transitions the reservation from CONFIRMED to REFUNDED. Allotments
// are not released.
func (r *Reservation) Refund() error {
	if !r.status.CanTransitionTo(StatusRefunded) {
		return domain.NewInvalidStateError(string(r.status), string(StatusRefunded))
	}
	now := time.Now().UTC()
	r.status = StatusRefunded
	r.refundedAt = &now
	r.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Reservation) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}
