package inventory

import (
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Season is a named date interval, inclusive at both ends. Active seasons are
// expected not to overlap; that is enforced when seasons are created.
type Season struct {
	ID        uuid.UUID
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Active    bool
	Prices    []SeasonalPrice
}

// Covers reports whether date falls inside the season.
func (s Season) Covers(date time.Time) bool {
	return calendar.Contains(s.StartDate, s.EndDate, date)
}

// SeasonalPrice is the nightly rate of a room type during a season.
type SeasonalPrice struct {
	ID           uuid.UUID
	RoomTypeID   uuid.UUID
	SeasonID     uuid.UUID
	Currency     string
	NightlyPrice decimal.Decimal
	MinNights    int
	Active       bool
	CreatedAt    time.Time
}
