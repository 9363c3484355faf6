package reservation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopicReservationEvents carries reservation lifecycle events.
const TopicReservationEvents = "reservation.events"

// Event types published on TopicReservationEvents.
const (
	EventCreated   = "reservation.created"
	EventConfirmed = "reservation.confirmed"
	EventCancelled = "reservation.cancelled"
	EventRefunded  = "reservation.refunded"
)

// CreatedEvent is published after a reservation commits in PENDING.
type CreatedEvent struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	Code          string          `json:"code"`
	HotelID       uuid.UUID       `json:"hotel_id"`
	RoomTypeID    uuid.UUID       `json:"room_type_id"`
	CheckIn       string          `json:"check_in"`
	CheckOut      string          `json:"check_out"`
	RoomQty       int             `json:"room_qty"`
	GuestEmail    string          `json:"guest_email"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// StatusChangedEvent is published after confirm, cancel and refund.
type StatusChangedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Code          string    `json:"code"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Reason        string    `json:"reason,omitempty"`
	ReleasedRooms bool      `json:"released_rooms"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventTypeFor maps a target status to its event type.
func EventTypeFor(s Status) string {
	switch s {
	case StatusConfirmed:
		return EventConfirmed
	case StatusCancelled:
		return EventCancelled
	case StatusRefunded:
		return EventRefunded
	}
	return EventCreated
}
