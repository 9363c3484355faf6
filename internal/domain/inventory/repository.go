package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoomTypeRepository reads room types.
type RoomTypeRepository interface {
	// FindByID retrieves a room type regardless of its active flag.
	FindByID(ctx context.Context, id uuid.UUID) (*RoomType, error)

	// ListActiveByHotel returns the hotel's active room types ordered by name.
	ListActiveByHotel(ctx context.Context, hotelID uuid.UUID) ([]*RoomType, error)
}

// SeasonRepository reads seasons and their prices.
type SeasonRepository interface {
	// FindActiveOverlapping returns active seasons intersecting [from, to]
	// ordered by start date ascending. Each season carries only the active
	// prices for roomTypeID in currency, oldest first.
	FindActiveOverlapping(ctx context.Context, roomTypeID uuid.UUID, currency string, from, to time.Time) ([]Season, error)
}

// AllotmentRepository reads the capacity ledger. Writes happen only inside
// reservation transactions.
type AllotmentRepository interface {
	// FindByDates returns the existing rows for exactly the given dates.
	FindByDates(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time) ([]DailyAllotment, error)

	// OccupancyByHotel sums total and booked rooms per hotel for dates in [from, to].
	OccupancyByHotel(ctx context.Context, from, to time.Time) ([]HotelOccupancy, error)
}
