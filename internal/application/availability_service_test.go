package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/atollstay/service-reservation/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) query(rt *inventory.RoomType, checkIn, checkOut string, guests, qty int) AvailabilityQuery {
	return AvailabilityQuery{
		HotelID:    f.hotelID,
		RoomTypeID: rt.ID(),
		CheckIn:    mustDate(checkIn),
		CheckOut:   mustDate(checkOut),
		Guests:     guests,
		RoomQty:    qty,
	}
}

func TestCheckAvailability_NoRowsMeansFullInventory(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)
	f.store.addSeason("High", "2026-03-01", "2026-03-31", price(rt.ID(), "500", 1))

	res, err := f.availability.CheckAvailability(context.Background(), f.query(rt, "2026-03-01", "2026-03-04", 2, 1))
	require.NoError(t, err)

	assert.True(t, res.Available)
	assert.Equal(t, 5, res.AvailableRooms)
	assert.Equal(t, "Water Villa", res.RoomTypeName)
	require.NotNil(t, res.Pricing)
	assert.Equal(t, "1500", res.Pricing.Subtotal.String())
	assert.Equal(t, "1698", res.Pricing.Total.String())
	assert.Empty(t, res.MissingPriceDates)
}

func TestCheckAvailability_ScarcestNightBinds(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)
	f.store.addSeason("High", "2026-03-01", "2026-03-31", price(rt.ID(), "500", 1))
	f.store.setAllotment(rt.ID(), "2026-03-01", 5, 1, 0)
	f.store.setAllotment(rt.ID(), "2026-03-02", 5, 2, 1)
	// Check-out night is never consulted.
	f.store.setAllotment(rt.ID(), "2026-03-04", 5, 5, 0)

	res, err := f.availability.CheckAvailability(context.Background(), f.query(rt, "2026-03-01", "2026-03-04", 2, 2))
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, 2, res.AvailableRooms)

	res, err = f.availability.CheckAvailability(context.Background(), f.query(rt, "2026-03-01", "2026-03-04", 2, 3))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, 2, res.AvailableRooms)
	assert.Nil(t, res.Pricing)
}

func TestCheckAvailability_MissingPriceGatesCapacity(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)
	f.store.addSeason("High", "2026-03-01", "2026-03-02", price(rt.ID(), "500", 1))

	res, err := f.availability.CheckAvailability(context.Background(), f.query(rt, "2026-03-01", "2026-03-04", 1, 1))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, 5, res.AvailableRooms)
	assert.Nil(t, res.Pricing)
	assert.Equal(t, []string{"2026-03-03"}, res.MissingPriceDates)
}

func TestCheckAvailability_MinNightsGates(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)
	f.store.addSeason("Festive", "2026-12-20", "2027-01-05", price(rt.ID(), "1200", 5))

	res, err := f.availability.CheckAvailability(context.Background(), f.query(rt, "2026-12-24", "2026-12-26", 1, 1))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Nil(t, res.Pricing)
	assert.NotEmpty(t, res.MinNightsViolations)
}

func TestCheckAvailability_FailsClosed(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)
	inactive := f.store.addRoomType(f.hotelID, "Closed Villa", 5, 2, false)
	foreign := f.store.addRoomType(uuid.New(), "Elsewhere", 5, 2, true)
	for _, r := range []*inventory.RoomType{rt, inactive, foreign} {
		f.store.addSeason("High", "2026-03-01", "2026-03-31", price(r.ID(), "500", 1))
	}

	tests := []struct {
		name  string
		query AvailabilityQuery
	}{
		{"too many guests", f.query(rt, "2026-03-01", "2026-03-04", 3, 1)},
		{"inactive", f.query(inactive, "2026-03-01", "2026-03-04", 1, 1)},
		{"other hotel", f.query(foreign, "2026-03-01", "2026-03-04", 1, 1)},
		{"unknown", AvailabilityQuery{
			HotelID: f.hotelID, RoomTypeID: uuid.New(),
			CheckIn: mustDate("2026-03-01"), CheckOut: mustDate("2026-03-04"),
			Guests: 1, RoomQty: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.availability.CheckAvailability(context.Background(), tt.query)
			require.NoError(t, err)
			assert.False(t, res.Available)
			assert.Equal(t, 0, res.AvailableRooms)
			assert.Nil(t, res.Pricing)
		})
	}
}

func TestCheckAvailability_InvalidInput(t *testing.T) {
	f := newFixture(t)
	rt := f.store.addRoomType(f.hotelID, "Water Villa", 5, 2, true)

	for _, q := range []AvailabilityQuery{
		f.query(rt, "2026-03-04", "2026-03-04", 1, 1),
		f.query(rt, "2026-03-04", "2026-03-01", 1, 1),
		f.query(rt, "2026-03-01", "2026-03-04", 0, 1),
		f.query(rt, "2026-03-01", "2026-03-04", 1, 0),
		f.query(rt, "1700-01-01", "2026-03-01", 1, 1),
		f.query(rt, "2026-03-01", "2027-03-02", 1, 1),
	} {
		_, err := f.availability.CheckAvailability(context.Background(), q)
		var ve *domain.ValidationError
		assert.True(t, errors.As(err, &ve))
	}
}

func TestCheckHotelAvailability_ReturnsEveryActiveRoomType(t *testing.T) {
	f := newFixture(t)
	water := f.store.addRoomType(f.hotelID, "Water Villa", 2, 2, true)
	beach := f.store.addRoomType(f.hotelID, "Beach Villa", 3, 2, true)
	f.store.addRoomType(f.hotelID, "Garden Villa", 3, 2, false)
	f.store.addSeason("High", "2026-03-01", "2026-03-31", price(water.ID(), "850", 1), price(beach.ID(), "650", 1))
	f.store.setAllotment(water.ID(), "2026-03-02", 2, 2, 0)

	results, err := f.availability.CheckHotelAvailability(context.Background(), AvailabilityQuery{
		HotelID:  f.hotelID,
		CheckIn:  mustDate("2026-03-01"),
		CheckOut: mustDate("2026-03-03"),
		Guests:   2,
		RoomQty:  1,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, beach.ID(), results[0].RoomTypeID)
	assert.True(t, results[0].Available)
	assert.Equal(t, water.ID(), results[1].RoomTypeID)
	assert.False(t, results[1].Available)
	assert.Equal(t, 0, results[1].AvailableRooms)
}

// orderedAllotments records which room types are read, failing on one.
type orderedAllotments struct {
	fakeAllotments
	seen   []uuid.UUID
	failOn uuid.UUID
}

func (o *orderedAllotments) FindByDates(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time) ([]inventory.DailyAllotment, error) {
	o.seen = append(o.seen, roomTypeID)
	if roomTypeID == o.failOn {
		return nil, errors.New("connection reset")
	}
	return o.fakeAllotments.FindByDates(ctx, roomTypeID, dates)
}

func TestCheckHotelAvailability_ChecksRoomTypesInOrderAndStopsOnError(t *testing.T) {
	f := newFixture(t)
	water := f.store.addRoomType(f.hotelID, "Water Villa", 2, 2, true)
	beach := f.store.addRoomType(f.hotelID, "Beach Villa", 3, 2, true)
	garden := f.store.addRoomType(f.hotelID, "Garden Villa", 3, 2, true)
	f.store.addSeason("High", "2026-03-01", "2026-03-31",
		price(water.ID(), "850", 1), price(beach.ID(), "650", 1), price(garden.ID(), "450", 1))

	allotments := &orderedAllotments{fakeAllotments: fakeAllotments{f.store}, failOn: garden.ID()}
	svc := NewAvailabilityService(fakeRoomTypes{f.store}, allotments, f.resolver, domain.CurrencyUSD,
		metrics.NewRecorder(), zap.NewNop())

	_, err := svc.CheckHotelAvailability(context.Background(), AvailabilityQuery{
		HotelID:  f.hotelID,
		CheckIn:  mustDate("2026-03-01"),
		CheckOut: mustDate("2026-03-03"),
		Guests:   2,
		RoomQty:  1,
	})
	require.Error(t, err)
	assert.Equal(t, []uuid.UUID{beach.ID(), garden.ID()}, allotments.seen, "water villa is never checked")
}
