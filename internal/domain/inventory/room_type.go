package inventory

import (
	"time"

	"github.com/google/uuid"
)

// RoomType is a bookable category of rooms within a hotel. It is managed
// outside this service and read-only here.
type RoomType struct {
	id             uuid.UUID
	hotelID        uuid.UUID
	name           string
	inventoryCount int
	maxGuests      int
	active         bool
	createdAt      time.Time
	updatedAt      time.Time
}

// ReconstructRoomType rebuilds a RoomType from persistence data (no validation).
func ReconstructRoomType(
	id, hotelID uuid.UUID,
	name string,
	inventoryCount, maxGuests int,
	active bool,
	createdAt, updatedAt time.Time,
) *RoomType {
	return &RoomType{
		id:             id,
		hotelID:        hotelID,
		name:           name,
		inventoryCount: inventoryCount,
		maxGuests:      maxGuests,
		active:         active,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the room type's unique identifier.
func (r *RoomType) ID() uuid.UUID { return r.id }

// HotelID returns the owning hotel.
func (r *RoomType) HotelID() uuid.UUID { return r.hotelID }

// Name returns the display name.
func (r *RoomType) Name() string { return r.name }

// InventoryCount is the most rooms of this type that can be sold on one night.
func (r *RoomType) InventoryCount() int { return r.inventoryCount }

// MaxGuests is the occupancy limit of a single room.
func (r *RoomType) MaxGuests() int { return r.maxGuests }

// Active reports whether the room type may be offered for new bookings.
func (r *RoomType) Active() bool { return r.active }

// CreatedAt returns the creation timestamp.
func (r *RoomType) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *RoomType) UpdatedAt() time.Time { return r.updatedAt }

// Bookable reports whether the room type belongs to hotelID, is active, and
// can hold guestCount guests across roomQty rooms.
func (r *RoomType) Bookable(hotelID uuid.UUID, guestCount, roomQty int) bool {
	if r == nil || !r.active || r.hotelID != hotelID {
		return false
	}
	return guestCount <= r.maxGuests*roomQty
}
