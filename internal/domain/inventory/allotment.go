package inventory

import (
	"time"

	"github.com/google/uuid"
)

// DailyAllotment is the capacity ledger row for one room type on one date.
// A date without a row is fully available at the room type's inventory count.
type DailyAllotment struct {
	ID           uuid.UUID
	RoomTypeID   uuid.UUID
	Date         time.Time
	TotalRooms   int
	BookedRooms  int
	BlockedRooms int
	UpdatedAt    time.Time
}

// Free is total - booked - blocked. A negative value means the row is oversold
// and the enclosing transaction must abort.
func (a DailyAllotment) Free() int {
	return a.TotalRooms - a.BookedRooms - a.BlockedRooms
}

// FreeRooms returns free capacity on date given the row for that date, if any.
func FreeRooms(row *DailyAllotment, inventoryCount int) int {
	if row == nil {
		return inventoryCount
	}
	return row.Free()
}

// HotelOccupancy aggregates allotment rows of one hotel over a period.
type HotelOccupancy struct {
	HotelID          uuid.UUID
	TotalRoomNights  int64
	BookedRoomNights int64
}
