package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// ExpiredReason is the cancel reason used by the pending-expiry sweep.
const ExpiredReason = "payment window expired"

const expireBatchSize = 100

// EventPublisher publishes CloudEvents. *kafka.Producer implements it.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, event kafka.CloudEvent) error
}

// GuestRequest holds the lead guest fields of a booking.
type GuestRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=30"`
	Country   string `json:"country" binding:"omitempty,len=2"`
}

// CreateReservationRequest holds the data needed to create a new reservation.
type CreateReservationRequest struct {
	HotelID         uuid.UUID    `json:"hotel_id" binding:"required"`
	RoomTypeID      uuid.UUID    `json:"room_type_id" binding:"required"`
	CheckIn         string       `json:"check_in" binding:"required,isodate"`
	CheckOut        string       `json:"check_out" binding:"required,isodate"`
	Guests          int          `json:"guests" binding:"required,min=1"`
	RoomQty         int          `json:"room_qty" binding:"omitempty,min=1"`
	Currency        string       `json:"currency" binding:"omitempty,len=3"`
	Guest           GuestRequest `json:"guest" binding:"required"`
	SpecialRequests string       `json:"special_requests" binding:"max=2000"`
}

// ReservationDTO is the response representation of a reservation.
type ReservationDTO struct {
	ID              uuid.UUID         `json:"id"`
	Code            string            `json:"code"`
	HotelID         uuid.UUID         `json:"hotel_id"`
	RoomTypeID      uuid.UUID         `json:"room_type_id"`
	Guest           reservation.Guest `json:"guest"`
	CheckIn         string            `json:"check_in"`
	CheckOut        string            `json:"check_out"`
	Nights          int               `json:"nights"`
	RoomQty         int               `json:"room_qty"`
	GuestCount      int               `json:"guest_count"`
	Pricing         pricing.Breakdown `json:"pricing"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	SpecialRequests string            `json:"special_requests,omitempty"`
	ConfirmedAt     *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt      *time.Time        `json:"refunded_at,omitempty"`
	CancelReason    string            `json:"cancel_reason,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ReservationService is the application service orchestrating reservation use cases.
type ReservationService struct {
	uow          reservation.UnitOfWork
	repo         reservation.Repository
	roomTypes    inventory.RoomTypeRepository
	availability *AvailabilityService
	producer     EventPublisher
	metrics      *metrics.Recorder
	logger       *zap.Logger
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	uow reservation.UnitOfWork,
	repo reservation.Repository,
	roomTypes inventory.RoomTypeRepository,
	availability *AvailabilityService,
	producer EventPublisher,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		uow:          uow,
		repo:         repo,
		roomTypes:    roomTypes,
		availability: availability,
		producer:     producer,
		metrics:      recorder,
		logger:       logger,
	}
}

// CreateReservation runs the availability pre-check and then holds every
// stayed night in one serializable transaction. Either all nights are held and
// the PENDING reservation is stored, or nothing persists.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*ReservationDTO, error) {
	res, err := s.createReservation(ctx, req)
	s.metrics.ObserveOperation("create", outcomeOf(err))
	return res, err
}

func (s *ReservationService) createReservation(ctx context.Context, req CreateReservationRequest) (*ReservationDTO, error) {
	checkIn, err := calendar.ParseDate(req.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := calendar.ParseDate(req.CheckOut)
	if err != nil {
		return nil, err
	}
	roomQty := req.RoomQty
	if roomQty == 0 {
		roomQty = 1
	}
	query := AvailabilityQuery{
		HotelID:    req.HotelID,
		RoomTypeID: req.RoomTypeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     req.Guests,
		RoomQty:    roomQty,
		Currency:   strings.ToUpper(req.Currency),
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rt, err := s.roomTypes.FindByID(ctx, req.RoomTypeID)
	if err != nil {
		return nil, err
	}
	if !rt.Active() || rt.HotelID() != req.HotelID {
		return nil, domain.NewNotFoundError("RoomType", req.RoomTypeID.String())
	}
	if req.Guests > rt.MaxGuests()*roomQty {
		return nil, domain.NewValidationError(fmt.Sprintf(
			"%d guests exceed the capacity of %d room(s) of this type", req.Guests, roomQty))
	}

	avail, err := s.availability.CheckAvailability(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(avail.MissingPriceDates) > 0 {
		return nil, domain.NewPricingUnavailableError(avail.MissingPriceDates)
	}
	if len(avail.MinNightsViolations) > 0 {
		v := avail.MinNightsViolations[0]
		return nil, domain.NewValidationError(fmt.Sprintf(
			"a minimum stay of %d nights applies from %s", v.MinNights, v.Date))
	}
	if !avail.Available {
		return nil, domain.NewCapacityExceededError("", roomQty, avail.AvailableRooms)
	}

	r, err := reservation.NewReservation(reservation.NewReservationParams{
		HotelID:    req.HotelID,
		RoomTypeID: req.RoomTypeID,
		Guest: reservation.Guest{
			FirstName: req.Guest.FirstName,
			LastName:  req.Guest.LastName,
			Email:     req.Guest.Email,
			Phone:     req.Guest.Phone,
			Country:   req.Guest.Country,
		},
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		RoomQty:         roomQty,
		GuestCount:      req.Guests,
		Breakdown:       *avail.Pricing,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.uow.Serializable(ctx, func(ctx context.Context, tx reservation.Tx) error {
		for _, night := range r.StayedNights() {
			row, err := tx.HoldRooms(ctx, rt.ID(), night, roomQty, rt.InventoryCount())
			if err != nil {
				return err
			}
			if free := row.Free(); free < 0 {
				return domain.NewCapacityExceededError(calendar.FormatDate(night), roomQty, free+roomQty)
			}
		}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		entry, err := audit.NewEntry(r.ID(), audit.Actor{Kind: audit.ActorGuest}, "", string(r.Status()), "")
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, entry)
	})
	s.metrics.ObserveCommit("create", time.Since(start))
	if err != nil {
		s.logger.Info("reservation commit rejected",
			zap.String("room_type_id", rt.ID().String()),
			zap.String("check_in", req.CheckIn),
			zap.String("check_out", req.CheckOut),
			zap.Int("room_qty", roomQty),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", r.ID().String()),
		zap.String("code", r.Code()),
		zap.String("room_type_id", rt.ID().String()),
		zap.String("total", r.TotalAmount().StringFixed(2)),
	)

	s.publishEvent(ctx, reservation.EventCreated, r.ID().String(), reservation.CreatedEvent{
		ReservationID: r.ID(),
		Code:          r.Code(),
		HotelID:       r.HotelID(),
		RoomTypeID:    r.RoomTypeID(),
		CheckIn:       calendar.FormatDate(r.CheckIn()),
		CheckOut:      calendar.FormatDate(r.CheckOut()),
		RoomQty:       r.RoomQty(),
		GuestEmail:    r.Guest().Email,
		TotalAmount:   r.TotalAmount(),
		Currency:      r.Currency(),
		OccurredAt:    time.Now().UTC(),
	})

	result := toReservationDTO(r)
	return &result, nil
}

// ConfirmReservation moves a PENDING reservation to CONFIRMED. Allotments are
// untouched; they were held at creation.
func (s *ReservationService) ConfirmReservation(ctx context.Context, id uuid.UUID, actor audit.Actor) (*ReservationDTO, error) {
	return s.transition(ctx, "confirm", id, actor, "", func(_ context.Context, _ reservation.Tx, r *reservation.Reservation) error {
		return r.Confirm()
	})
}

// CancelReservation moves a PENDING or CONFIRMED reservation to CANCELLED and
// returns its rooms to the pool for every stayed night.
func (s *ReservationService) CancelReservation(ctx context.Context, id uuid.UUID, reason string, actor audit.Actor) (*ReservationDTO, error) {
	return s.transition(ctx, "cancel", id, actor, reason, func(ctx context.Context, tx reservation.Tx, r *reservation.Reservation) error {
		if err := r.Cancel(reason); err != nil {
			return err
		}
		for _, night := range r.StayedNights() {
			if err := tx.ReleaseRooms(ctx, r.RoomTypeID(), night, r.RoomQty()); err != nil {
				return err
			}
		}
		return nil
	})
}

// RefundReservation moves a CONFIRMED reservation to REFUNDED. Allotments are
// not released.
func (s *ReservationService) RefundReservation(ctx context.Context, id uuid.UUID, actor audit.Actor) (*ReservationDTO, error) {
	return s.transition(ctx, "refund", id, actor, "", func(_ context.Context, _ reservation.Tx, r *reservation.Reservation) error {
		return r.Refund()
	})
}

// UpdateStatus dispatches an admin status change to confirm, cancel or refund.
func (s *ReservationService) UpdateStatus(ctx context.Context, id uuid.UUID, status, reason string, actor audit.Actor) (*ReservationDTO, error) {
	target, err := reservation.ParseStatus(strings.ToUpper(status))
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	switch target {
	case reservation.StatusConfirmed:
		return s.ConfirmReservation(ctx, id, actor)
	case reservation.StatusCancelled:
		return s.CancelReservation(ctx, id, reason, actor)
	case reservation.StatusRefunded:
		return s.RefundReservation(ctx, id, actor)
	}
	return nil, domain.NewValidationError(fmt.Sprintf("status %s cannot be set directly", target))
}

type transitionFunc func(ctx context.Context, tx reservation.Tx, r *reservation.Reservation) error

func (s *ReservationService) transition(
	ctx context.Context,
	op string,
	id uuid.UUID,
	actor audit.Actor,
	note string,
	apply transitionFunc,
) (*ReservationDTO, error) {
	var (
		r    *reservation.Reservation
		from reservation.Status
	)
	start := time.Now()
	err := s.uow.Serializable(ctx, func(ctx context.Context, tx reservation.Tx) error {
		var err error
		r, err = tx.FindReservation(ctx, id)
		if err != nil {
			return err
		}
		from = r.Status()
		if err := apply(ctx, tx, r); err != nil {
			return err
		}
		r.IncrementVersion()
		if err := tx.UpdateReservation(ctx, r); err != nil {
			return err
		}
		entry, err := audit.NewEntry(r.ID(), actor, string(from), string(r.Status()), note)
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, entry)
	})
	s.metrics.ObserveCommit(op, time.Since(start))
	s.metrics.ObserveOperation(op, outcomeOf(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation status changed",
		zap.String("reservation_id", r.ID().String()),
		zap.String("code", r.Code()),
		zap.String("from", string(from)),
		zap.String("to", string(r.Status())),
		zap.String("actor", string(actor.Kind)),
	)

	s.publishEvent(ctx, reservation.EventTypeFor(r.Status()), r.ID().String(), reservation.StatusChangedEvent{
		ReservationID: r.ID(),
		Code:          r.Code(),
		FromStatus:    string(from),
		ToStatus:      string(r.Status()),
		Reason:        r.CancelReason(),
		ReleasedRooms: r.Status() == reservation.StatusCancelled,
		OccurredAt:    time.Now().UTC(),
	})

	result := toReservationDTO(r)
	return &result, nil
}

// GetReservation retrieves a single reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationDTO, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toReservationDTO(r)
	return &result, nil
}

// LookupReservation finds a reservation by code and guest email. A mismatch
// is reported as not found so codes cannot be enumerated.
func (s *ReservationService) LookupReservation(ctx context.Context, code, email string) (*ReservationDTO, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	email = strings.ToLower(strings.TrimSpace(email))
	if code == "" || email == "" {
		return nil, domain.NewValidationError("code and email are required")
	}
	r, err := s.repo.FindByCodeAndEmail(ctx, code, email)
	if err != nil {
		return nil, err
	}
	result := toReservationDTO(r)
	return &result, nil
}

// ExpirePending cancels PENDING reservations created before cutoff through the
// ordinary cancel path. It returns how many were cancelled.
func (s *ReservationService) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.FindPendingCreatedBefore(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale reservations: %w", err)
	}

	expired := 0
	for _, r := range stale {
		if _, err := s.CancelReservation(ctx, r.ID(), ExpiredReason, audit.SystemActor()); err != nil {
			var ste *domain.StateTransitionError
			if errors.As(err, &ste) {
				continue
			}
			s.logger.Warn("failed to expire reservation",
				zap.String("reservation_id", r.ID().String()),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// --- Admin methods ---

// ReservationStatsDTO holds reservation statistics for the admin dashboard.
type ReservationStatsDTO struct {
	TotalReservations int64            `json:"total_reservations"`
	ByStatus          map[string]int64 `json:"by_status"`
}

// ListReservations returns a filtered, paginated list of reservations (admin).
func (s *ReservationService) ListReservations(ctx context.Context, filter reservation.ListFilter, page, limit int) (*domain.PaginatedResult[ReservationDTO], error) {
	items, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	dtos := make([]ReservationDTO, len(items))
	for i, r := range items {
		dtos[i] = toReservationDTO(r)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// GetReservationStats returns reservation counts by status (admin).
func (s *ReservationService) GetReservationStats(ctx context.Context) (*ReservationStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation stats: %w", err)
	}

	byStatus := make(map[string]int64, len(counts))
	for _, st := range reservation.AllStatuses() {
		byStatus[string(st)] = 0
	}
	var total int64
	for k, c := range counts {
		byStatus[k] = c
		total += c
	}
	return &ReservationStatsDTO{TotalReservations: total, ByStatus: byStatus}, nil
}

// --- Helpers ---

func toReservationDTO(r *reservation.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              r.ID(),
		Code:            r.Code(),
		HotelID:         r.HotelID(),
		RoomTypeID:      r.RoomTypeID(),
		Guest:           r.Guest(),
		CheckIn:         calendar.FormatDate(r.CheckIn()),
		CheckOut:        calendar.FormatDate(r.CheckOut()),
		Nights:          r.Nights(),
		RoomQty:         r.RoomQty(),
		GuestCount:      r.GuestCount(),
		Pricing:         r.Breakdown(),
		TotalAmount:     r.TotalAmount(),
		Currency:        r.Currency(),
		Status:          string(r.Status()),
		SpecialRequests: r.SpecialRequests(),
		ConfirmedAt:     r.ConfirmedAt(),
		CancelledAt:     r.CancelledAt(),
		RefundedAt:      r.RefundedAt(),
		CancelReason:    r.CancelReason(),
		Version:         r.Version(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
	}
}

// outcomeOf maps an operation error to a metrics outcome label.
func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var (
		conflict *domain.ConflictError
		capacity *domain.CapacityExceededError
		priceErr *domain.PricingUnavailableError
		valErr   *domain.ValidationError
		stateErr *domain.StateTransitionError
	)
	switch {
	case errors.As(err, &conflict):
		if conflict.Timeout {
			return metrics.OutcomeTimeout
		}
		return metrics.OutcomeConflict
	case errors.As(err, &capacity):
		return metrics.OutcomeCapacityExceeded
	case errors.As(err, &priceErr):
		return metrics.OutcomePricingUnavailable
	case errors.As(err, &valErr), errors.As(err, &stateErr):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

func (s *ReservationService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	if s.producer == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent("service-reservation", eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEventWithKey(ctx, reservation.TopicReservationEvents, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", reservation.TopicReservationEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
