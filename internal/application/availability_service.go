package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/atollstay/service-reservation/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityQuery describes a stay to check.
type AvailabilityQuery struct {
	HotelID    uuid.UUID
	RoomTypeID uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
	RoomQty    int
	Currency   string
}

// Validate rejects empty or overlong ranges and non-positive quantities.
func (q AvailabilityQuery) Validate() error {
	if _, err := calendar.ValidateStay(q.CheckIn, q.CheckOut); err != nil {
		return err
	}
	if q.Guests < 1 {
		return domain.NewValidationError("guests must be at least 1")
	}
	if q.RoomQty < 1 {
		return domain.NewValidationError("room quantity must be at least 1")
	}
	return nil
}

// AvailabilityResult is the outcome for one room type. Pricing is set only
// when Available is true.
type AvailabilityResult struct {
	RoomTypeID          uuid.UUID            `json:"room_type_id"`
	RoomTypeName        string               `json:"room_type_name,omitempty"`
	Available           bool                 `json:"available"`
	AvailableRooms      int                  `json:"available_rooms"`
	Pricing             *pricing.Breakdown   `json:"pricing"`
	MissingPriceDates   []string             `json:"missing_price_dates"`
	MinNightsViolations []MinNightsViolation `json:"min_nights_violations,omitempty"`
}

// AvailabilityService answers best-effort availability questions. It never
// writes and never locks; the reservation commit re-checks capacity.
type AvailabilityService struct {
	roomTypes  inventory.RoomTypeRepository
	allotments inventory.AllotmentRepository
	resolver   *PriceResolver
	currency   string
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	roomTypes inventory.RoomTypeRepository,
	allotments inventory.AllotmentRepository,
	resolver *PriceResolver,
	defaultCurrency string,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		roomTypes:  roomTypes,
		allotments: allotments,
		resolver:   resolver,
		currency:   defaultCurrency,
		metrics:    recorder,
		logger:     logger,
	}
}

// CheckAvailability computes availability and pricing for one room type.
// Missing, inactive or foreign room types and guest counts above capacity
// yield an unavailable result rather than an error.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, q AvailabilityQuery) (*AvailabilityResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Currency == "" {
		q.Currency = s.currency
	}

	rt, err := s.roomTypes.FindByID(ctx, q.RoomTypeID)
	if err != nil {
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		rt = nil
	}
	return s.check(ctx, rt, q)
}

// CheckHotelAvailability runs CheckAvailability for every active room type of
// the hotel, one after another in name order, and returns all results.
func (s *AvailabilityService) CheckHotelAvailability(ctx context.Context, q AvailabilityQuery) ([]*AvailabilityResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Currency == "" {
		q.Currency = s.currency
	}

	roomTypes, err := s.roomTypes.ListActiveByHotel(ctx, q.HotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}

	results := make([]*AvailabilityResult, 0, len(roomTypes))
	for _, rt := range roomTypes {
		rq := q
		rq.RoomTypeID = rt.ID()
		res, err := s.check(ctx, rt, rq)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *AvailabilityService) check(ctx context.Context, rt *inventory.RoomType, q AvailabilityQuery) (*AvailabilityResult, error) {
	result := &AvailabilityResult{
		RoomTypeID:        q.RoomTypeID,
		MissingPriceDates: []string{},
	}
	if rt != nil {
		result.RoomTypeName = rt.Name()
	}
	if !rt.Bookable(q.HotelID, q.Guests, q.RoomQty) {
		s.metrics.ObserveAvailability(false)
		return result, nil
	}

	nights, err := calendar.StayedNights(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	rows, err := s.allotments.FindByDates(ctx, rt.ID(), nights)
	if err != nil {
		return nil, fmt.Errorf("failed to load allotments: %w", err)
	}
	result.AvailableRooms = minFreeRooms(nights, rows, rt.InventoryCount())

	quote, err := s.resolver.Resolve(ctx, rt.ID(), q.CheckIn, q.CheckOut, q.RoomQty, q.Currency)
	if err != nil {
		return nil, err
	}
	if len(quote.MissingDates) > 0 {
		s.logger.Warn("missing seasonal prices for dates",
			zap.String("room_type_id", rt.ID().String()),
			zap.Strings("missing_dates", quote.MissingDates),
		)
		result.MissingPriceDates = quote.MissingDates
		s.metrics.ObserveAvailability(false)
		return result, nil
	}
	if len(quote.MinNightsViolations) > 0 {
		result.MinNightsViolations = quote.MinNightsViolations
		s.metrics.ObserveAvailability(false)
		return result, nil
	}

	result.Available = result.AvailableRooms >= q.RoomQty
	if result.Available {
		breakdown := quote.Breakdown
		result.Pricing = &breakdown
	}
	s.metrics.ObserveAvailability(result.Available)
	return result, nil
}

// minFreeRooms is the free count of the scarcest night. Nights without a row
// count as the full inventory.
func minFreeRooms(nights []time.Time, rows []inventory.DailyAllotment, inventoryCount int) int {
	byDate := make(map[string]*inventory.DailyAllotment, len(rows))
	for i := range rows {
		byDate[calendar.FormatDate(rows[i].Date)] = &rows[i]
	}

	min := 0
	for i, night := range nights {
		free := inventory.FreeRooms(byDate[calendar.FormatDate(night)], inventoryCount)
		if i == 0 || free < min {
			min = free
		}
	}
	return min
}
