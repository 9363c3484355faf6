package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/pricing"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReservationModel is the GORM model for the reservations table.
type ReservationModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code             string          `gorm:"uniqueIndex;not null;size:16"`
	HotelID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	RoomTypeID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	GuestFirstName   string          `gorm:"not null;size:100"`
	GuestLastName    string          `gorm:"not null;size:100"`
	GuestEmail       string          `gorm:"not null;size:255;index"`
	GuestPhone       string          `gorm:"size:30"`
	GuestCountry     string          `gorm:"size:2"`
	CheckIn          time.Time       `gorm:"type:date;not null"`
	CheckOut         time.Time       `gorm:"type:date;not null"`
	Nights           int             `gorm:"not null"`
	RoomQty          int             `gorm:"not null;default:1"`
	GuestCount       int             `gorm:"not null"`
	PricingBreakdown json.RawMessage `gorm:"type:jsonb;not null"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency         string          `gorm:"not null;size:3;default:'USD'"`
	Status           string          `gorm:"not null;size:20;index"`
	SpecialRequests  string          `gorm:"size:2000"`
	ConfirmedAt      *time.Time      `gorm:""`
	CancelledAt      *time.Time      `gorm:""`
	RefundedAt       *time.Time      `gorm:""`
	CancelReason     string          `gorm:"size:500"`
	Version          int64           `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReservationModel) TableName() string {
	return "reservations"
}

// GormReservationRepository is the GORM-based implementation of reservation.Repository.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID retrieves a reservation by its unique identifier.
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return findReservation(r.db.WithContext(ctx).Where("id = ?", id), id.String())
}

// FindByCode retrieves a reservation by its code.
func (r *GormReservationRepository) FindByCode(ctx context.Context, code string) (*reservation.Reservation, error) {
	return findReservation(r.db.WithContext(ctx).Where("code = ?", code), code)
}

// FindByCodeAndEmail retrieves a reservation only when both code and guest email match.
func (r *GormReservationRepository) FindByCodeAndEmail(ctx context.Context, code, email string) (*reservation.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("UPPER(code) = ? AND LOWER(guest_email) = ?", strings.ToUpper(code), strings.ToLower(email))
	return findReservation(q, code)
}

// List retrieves reservations matching filter with pagination, newest first.
func (r *GormReservationRepository) List(ctx context.Context, filter reservation.ListFilter, page, limit int) ([]*reservation.Reservation, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", string(filter.Status))
		}
		if filter.HotelID != uuid.Nil {
			db = db.Where("hotel_id = ?", filter.HotelID)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			like := "%" + s + "%"
			db = db.Where("(code ILIKE ? OR guest_email ILIKE ? OR guest_last_name ILIKE ?)", like, like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	var models []ReservationModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	out, err := toDomainReservations(models)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByStatus returns reservation counts grouped by status.
func (r *GormReservationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// FindPendingCreatedBefore returns the oldest PENDING reservations created before cutoff.
func (r *GormReservationRepository) FindPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(reservation.StatusPending), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find pending reservations: %w", err)
	}
	return toDomainReservations(models)
}

func findReservation(q *gorm.DB, key string) (*reservation.Reservation, error) {
	var model ReservationModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Reservation", key)
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return toDomainReservation(&model)
}

// --- Conversion Helpers ---

func toReservationModel(res *reservation.Reservation) (*ReservationModel, error) {
	breakdownJSON, err := json.Marshal(res.Breakdown())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pricing breakdown: %w", err)
	}

	g := res.Guest()
	return &ReservationModel{
		ID:               res.ID(),
		Code:             res.Code(),
		HotelID:          res.HotelID(),
		RoomTypeID:       res.RoomTypeID(),
		GuestFirstName:   g.FirstName,
		GuestLastName:    g.LastName,
		GuestEmail:       g.Email,
		GuestPhone:       g.Phone,
		GuestCountry:     g.Country,
		CheckIn:          res.CheckIn(),
		CheckOut:         res.CheckOut(),
		Nights:           res.Nights(),
		RoomQty:          res.RoomQty(),
		GuestCount:       res.GuestCount(),
		PricingBreakdown: breakdownJSON,
		TotalAmount:      res.TotalAmount(),
		Currency:         res.Currency(),
		Status:           string(res.Status()),
		SpecialRequests:  res.SpecialRequests(),
		ConfirmedAt:      res.ConfirmedAt(),
		CancelledAt:      res.CancelledAt(),
		RefundedAt:       res.RefundedAt(),
		CancelReason:     res.CancelReason(),
		Version:          res.Version(),
		CreatedAt:        res.CreatedAt(),
		UpdatedAt:        res.UpdatedAt(),
	}, nil
}

func toDomainReservation(m *ReservationModel) (*reservation.Reservation, error) {
	var breakdown pricing.Breakdown
	if err := json.Unmarshal(m.PricingBreakdown, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pricing breakdown: %w", err)
	}

	guest := reservation.Guest{
		FirstName: m.GuestFirstName,
		LastName:  m.GuestLastName,
		Email:     m.GuestEmail,
		Phone:     m.GuestPhone,
		Country:   m.GuestCountry,
	}

	return reservation.ReconstructReservation(
		m.ID,
		m.Code,
		m.HotelID, m.RoomTypeID,
		guest,
		m.CheckIn.UTC(), m.CheckOut.UTC(),
		m.Nights, m.RoomQty, m.GuestCount,
		breakdown,
		m.TotalAmount,
		m.Currency,
		reservation.Status(m.Status),
		m.SpecialRequests,
		m.ConfirmedAt, m.CancelledAt, m.RefundedAt,
		m.CancelReason,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	), nil
}

func toDomainReservations(models []ReservationModel) ([]*reservation.Reservation, error) {
	out := make([]*reservation.Reservation, len(models))
	for i, m := range models {
		res, err := toDomainReservation(&m)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}
