package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/atollstay/service-reservation/internal/platform/kafka"
	"github.com/atollstay/service-reservation/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type allotmentKey struct {
	roomTypeID uuid.UUID
	date       string
}

// fakeStore is an in-memory store whose transactions run one at a time and
// roll back on error, which is what SERIALIZABLE guarantees observably.
type fakeStore struct {
	mu           sync.Mutex
	roomTypes    map[uuid.UUID]*inventory.RoomType
	seasons      []inventory.Season
	allotments   map[allotmentKey]inventory.DailyAllotment
	reservations map[uuid.UUID]reservation.Reservation
	audits       []*audit.Entry

	// txErr, when set, aborts the next transaction after fn has run.
	txErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roomTypes:    make(map[uuid.UUID]*inventory.RoomType),
		allotments:   make(map[allotmentKey]inventory.DailyAllotment),
		reservations: make(map[uuid.UUID]reservation.Reservation),
	}
}

func keyOf(roomTypeID uuid.UUID, date time.Time) allotmentKey {
	return allotmentKey{roomTypeID: roomTypeID, date: calendar.FormatDate(date)}
}

func (s *fakeStore) addRoomType(hotelID uuid.UUID, name string, inventoryCount, maxGuests int, active bool) *inventory.RoomType {
	now := time.Now().UTC()
	rt := inventory.ReconstructRoomType(uuid.New(), hotelID, name, inventoryCount, maxGuests, active, now, now)
	s.mu.Lock()
	s.roomTypes[rt.ID()] = rt
	s.mu.Unlock()
	return rt
}

// addSeason adds an active season [start, end] with one price per entry.
func (s *fakeStore) addSeason(name, start, end string, prices ...inventory.SeasonalPrice) inventory.Season {
	season := inventory.Season{
		ID:        uuid.New(),
		Name:      name,
		StartDate: mustDate(start),
		EndDate:   mustDate(end),
		Active:    true,
	}
	for i := range prices {
		prices[i].SeasonID = season.ID
		if prices[i].ID == uuid.Nil {
			prices[i].ID = uuid.New()
		}
		if prices[i].Currency == "" {
			prices[i].Currency = domain.CurrencyUSD
		}
		if prices[i].CreatedAt.IsZero() {
			prices[i].CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		}
	}
	season.Prices = prices
	s.mu.Lock()
	s.seasons = append(s.seasons, season)
	s.mu.Unlock()
	return season
}

func (s *fakeStore) setAllotment(roomTypeID uuid.UUID, date string, total, booked, blocked int) {
	d := mustDate(date)
	s.mu.Lock()
	s.allotments[keyOf(roomTypeID, d)] = inventory.DailyAllotment{
		ID:           uuid.New(),
		RoomTypeID:   roomTypeID,
		Date:         d,
		TotalRooms:   total,
		BookedRooms:  booked,
		BlockedRooms: blocked,
	}
	s.mu.Unlock()
}

func (s *fakeStore) allotment(roomTypeID uuid.UUID, date string) (inventory.DailyAllotment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allotments[keyOf(roomTypeID, mustDate(date))]
	return a, ok
}

func (s *fakeStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

func (s *fakeStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

func price(roomTypeID uuid.UUID, nightly string, minNights int) inventory.SeasonalPrice {
	return inventory.SeasonalPrice{
		RoomTypeID:   roomTypeID,
		NightlyPrice: decimal.RequireFromString(nightly),
		MinNights:    minNights,
		Active:       true,
	}
}

func mustDate(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// --- reservation.UnitOfWork ---

func (s *fakeStore) Serializable(ctx context.Context, fn func(ctx context.Context, tx reservation.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	allotments := make(map[allotmentKey]inventory.DailyAllotment, len(s.allotments))
	for k, v := range s.allotments {
		allotments[k] = v
	}
	reservations := make(map[uuid.UUID]reservation.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		reservations[k] = v
	}
	audits := len(s.audits)

	err := fn(ctx, &fakeTx{s: s})
	if err == nil && s.txErr != nil {
		err = s.txErr
		s.txErr = nil
	}
	if err != nil {
		s.allotments = allotments
		s.reservations = reservations
		s.audits = s.audits[:audits]
		return err
	}
	return nil
}

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) HoldRooms(_ context.Context, roomTypeID uuid.UUID, date time.Time, qty, inventoryCount int) (inventory.DailyAllotment, error) {
	k := keyOf(roomTypeID, date)
	row, ok := t.s.allotments[k]
	if !ok {
		row = inventory.DailyAllotment{
			ID:         uuid.New(),
			RoomTypeID: roomTypeID,
			Date:       calendar.Normalize(date),
			TotalRooms: inventoryCount,
		}
	}
	row.BookedRooms += qty
	t.s.allotments[k] = row
	return row, nil
}

func (t *fakeTx) ReleaseRooms(_ context.Context, roomTypeID uuid.UUID, date time.Time, qty int) error {
	k := keyOf(roomTypeID, date)
	row, ok := t.s.allotments[k]
	if !ok {
		return domain.NewNotFoundError("DailyAllotment", k.date)
	}
	row.BookedRooms -= qty
	t.s.allotments[k] = row
	return nil
}

func (t *fakeTx) FindReservation(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("Reservation", id.String())
	}
	return &r, nil
}

func (t *fakeTx) InsertReservation(_ context.Context, r *reservation.Reservation) error {
	for _, existing := range t.s.reservations {
		if existing.Code() == r.Code() {
			return domain.NewConflictError("duplicate reservation code")
		}
	}
	t.s.reservations[r.ID()] = *r
	return nil
}

func (t *fakeTx) UpdateReservation(_ context.Context, r *reservation.Reservation) error {
	existing, ok := t.s.reservations[r.ID()]
	if !ok {
		return domain.NewNotFoundError("Reservation", r.ID().String())
	}
	if existing.Version() != r.Version()-1 {
		return domain.NewConflictError("reservation was modified concurrently")
	}
	t.s.reservations[r.ID()] = *r
	return nil
}

func (t *fakeTx) RecordAudit(_ context.Context, e *audit.Entry) error {
	t.s.audits = append(t.s.audits, e)
	return nil
}

// --- inventory repositories ---

type fakeRoomTypes struct{ s *fakeStore }

func (f fakeRoomTypes) FindByID(_ context.Context, id uuid.UUID) (*inventory.RoomType, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rt, ok := f.s.roomTypes[id]
	if !ok {
		return nil, domain.NewNotFoundError("RoomType", id.String())
	}
	return rt, nil
}

func (f fakeRoomTypes) ListActiveByHotel(_ context.Context, hotelID uuid.UUID) ([]*inventory.RoomType, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*inventory.RoomType
	for _, rt := range f.s.roomTypes {
		if rt.HotelID() == hotelID && rt.Active() {
			out = append(out, rt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

type fakeSeasons struct{ s *fakeStore }

func (f fakeSeasons) FindActiveOverlapping(_ context.Context, roomTypeID uuid.UUID, currency string, from, to time.Time) ([]inventory.Season, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []inventory.Season
	for _, season := range f.s.seasons {
		if !season.Active || season.StartDate.After(to) || season.EndDate.Before(from) {
			continue
		}
		filtered := season
		filtered.Prices = nil
		for _, p := range season.Prices {
			if p.Active && p.RoomTypeID == roomTypeID && p.Currency == currency {
				filtered.Prices = append(filtered.Prices, p)
			}
		}
		sort.SliceStable(filtered.Prices, func(i, j int) bool {
			return filtered.Prices[i].CreatedAt.Before(filtered.Prices[j].CreatedAt)
		})
		out = append(out, filtered)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

type fakeAllotments struct{ s *fakeStore }

func (f fakeAllotments) FindByDates(_ context.Context, roomTypeID uuid.UUID, dates []time.Time) ([]inventory.DailyAllotment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []inventory.DailyAllotment
	for _, d := range dates {
		if row, ok := f.s.allotments[keyOf(roomTypeID, d)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f fakeAllotments) OccupancyByHotel(_ context.Context, from, to time.Time) ([]inventory.HotelOccupancy, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byHotel := make(map[uuid.UUID]*inventory.HotelOccupancy)
	var order []uuid.UUID
	for _, row := range f.s.allotments {
		if !calendar.Contains(from, to, row.Date) {
			continue
		}
		rt := f.s.roomTypes[row.RoomTypeID]
		h, ok := byHotel[rt.HotelID()]
		if !ok {
			h = &inventory.HotelOccupancy{HotelID: rt.HotelID()}
			byHotel[rt.HotelID()] = h
			order = append(order, rt.HotelID())
		}
		h.TotalRoomNights += int64(row.TotalRooms)
		h.BookedRoomNights += int64(row.BookedRooms)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].String() < order[j].String() })
	out := make([]inventory.HotelOccupancy, 0, len(order))
	for _, id := range order {
		out = append(out, *byHotel[id])
	}
	return out, nil
}

// --- reservation and audit repositories ---

type fakeReservations struct{ s *fakeStore }

func (f fakeReservations) FindByID(_ context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reservations[id]
	if !ok {
		return nil, domain.NewNotFoundError("Reservation", id.String())
	}
	return &r, nil
}

func (f fakeReservations) FindByCode(_ context.Context, code string) (*reservation.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.reservations {
		r := r
		if r.Code() == code {
			return &r, nil
		}
	}
	return nil, domain.NewNotFoundError("Reservation", code)
}

func (f fakeReservations) FindByCodeAndEmail(_ context.Context, code, email string) (*reservation.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.reservations {
		r := r
		if strings.EqualFold(r.Code(), code) && strings.EqualFold(r.Guest().Email, email) {
			return &r, nil
		}
	}
	return nil, domain.NewNotFoundError("Reservation", code)
}

func (f fakeReservations) List(_ context.Context, filter reservation.ListFilter, page, limit int) ([]*reservation.Reservation, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var matched []*reservation.Reservation
	for _, r := range f.s.reservations {
		r := r
		if filter.Status != "" && r.Status() != filter.Status {
			continue
		}
		if filter.HotelID != uuid.Nil && r.HotelID() != filter.HotelID {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(r.Code()), q) &&
			!strings.Contains(r.Guest().Email, q) &&
			!strings.Contains(strings.ToLower(r.Guest().LastName), q) {
			continue
		}
		matched = append(matched, &r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt().After(matched[j].CreatedAt()) })
	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f fakeReservations) CountByStatus(_ context.Context) (map[string]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	counts := make(map[string]int64)
	for _, r := range f.s.reservations {
		counts[string(r.Status())]++
	}
	return counts, nil
}

func (f fakeReservations) FindPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]*reservation.Reservation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*reservation.Reservation
	for _, r := range f.s.reservations {
		r := r
		if r.Status() == reservation.StatusPending && r.CreatedAt().Before(cutoff) {
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAudit struct{ s *fakeStore }

func (f fakeAudit) FindByReservationID(_ context.Context, reservationID uuid.UUID) ([]*audit.Entry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*audit.Entry
	for _, e := range f.s.audits {
		if e.ReservationID() == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- events ---

type publishedEvent struct {
	topic string
	key   string
	event kafka.CloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEventWithKey(_ context.Context, topic, key string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

// --- fixture ---

type fixture struct {
	store        *fakeStore
	publisher    *fakePublisher
	resolver     *PriceResolver
	availability *AvailabilityService
	reservations *ReservationService
	hotelID      uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	publisher := &fakePublisher{}
	logger := zap.NewNop()
	recorder := metrics.NewRecorder()

	resolver := NewPriceResolver(fakeSeasons{store}, pricing.NewStandardCalculator())
	availability := NewAvailabilityService(fakeRoomTypes{store}, fakeAllotments{store}, resolver, domain.CurrencyUSD, recorder, logger)
	reservations := NewReservationService(store, fakeReservations{store}, fakeRoomTypes{store}, availability, publisher, recorder, logger)

	return &fixture{
		store:        store,
		publisher:    publisher,
		resolver:     resolver,
		availability: availability,
		reservations: reservations,
		hotelID:      uuid.New(),
	}
}

// bookingRequest builds a valid request for roomType over [checkIn, checkOut).
func (f *fixture) bookingRequest(roomType *inventory.RoomType, checkIn, checkOut string, qty int) CreateReservationRequest {
	return CreateReservationRequest{
		HotelID:    f.hotelID,
		RoomTypeID: roomType.ID(),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     1,
		RoomQty:    qty,
		Guest: GuestRequest{
			FirstName: "Mariyam",
			LastName:  "Shifa",
			Email:     "mariyam@example.com",
			Country:   "MV",
		},
	}
}
