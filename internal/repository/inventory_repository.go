package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RoomTypeModel is the GORM model for the room_types table.
type RoomTypeModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	HotelID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(100);not null"`
	InventoryCount int       `gorm:"not null"`
	MaxGuests      int       `gorm:"not null"`
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (RoomTypeModel) TableName() string { return "room_types" }

// SeasonModel is the GORM model for the seasons table.
type SeasonModel struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Name      string               `gorm:"type:varchar(100);not null"`
	StartDate time.Time            `gorm:"type:date;not null"`
	EndDate   time.Time            `gorm:"type:date;not null"`
	Active    bool                 `gorm:"not null;default:true"`
	CreatedAt time.Time            `gorm:"type:timestamptz;not null;default:now()"`
	Prices    []SeasonalPriceModel `gorm:"foreignKey:SeasonID"`
}

func (SeasonModel) TableName() string { return "seasons" }

// SeasonalPriceModel is the GORM model for the seasonal_prices table.
type SeasonalPriceModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RoomTypeID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SeasonID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'USD'"`
	NightlyPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	MinNights    int             `gorm:"not null;default:1"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time       `gorm:"type:timestamptz;not null;default:now()"`
}

func (SeasonalPriceModel) TableName() string { return "seasonal_prices" }

// DailyAllotmentModel is the GORM model for the daily_allotments table.
type DailyAllotmentModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomTypeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_allotment_room_type_date"`
	Date         time.Time `gorm:"type:date;not null;uniqueIndex:idx_allotment_room_type_date"`
	TotalRooms   int       `gorm:"not null"`
	BookedRooms  int       `gorm:"not null;default:0"`
	BlockedRooms int       `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (DailyAllotmentModel) TableName() string { return "daily_allotments" }

// GormRoomTypeRepository implements inventory.RoomTypeRepository using GORM.
type GormRoomTypeRepository struct {
	db *gorm.DB
}

func NewGormRoomTypeRepository(db *gorm.DB) *GormRoomTypeRepository {
	return &GormRoomTypeRepository{db: db}
}

func (r *GormRoomTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.RoomType, error) {
	var model RoomTypeModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("RoomType", id.String())
		}
		return nil, fmt.Errorf("failed to find room type: %w", err)
	}
	return toRoomTypeDomain(&model), nil
}

func (r *GormRoomTypeRepository) ListActiveByHotel(ctx context.Context, hotelID uuid.UUID) ([]*inventory.RoomType, error) {
	var models []RoomTypeModel
	if err := r.db.WithContext(ctx).
		Where("hotel_id = ? AND active = ?", hotelID, true).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	roomTypes := make([]*inventory.RoomType, len(models))
	for i, m := range models {
		roomTypes[i] = toRoomTypeDomain(&m)
	}
	return roomTypes, nil
}

// GormSeasonRepository implements inventory.SeasonRepository using GORM.
type GormSeasonRepository struct {
	db *gorm.DB
}

func NewGormSeasonRepository(db *gorm.DB) *GormSeasonRepository {
	return &GormSeasonRepository{db: db}
}

func (r *GormSeasonRepository) FindActiveOverlapping(
	ctx context.Context,
	roomTypeID uuid.UUID,
	currency string,
	from, to time.Time,
) ([]inventory.Season, error) {
	var models []SeasonModel
	if err := r.db.WithContext(ctx).
		Preload("Prices", func(db *gorm.DB) *gorm.DB {
			return db.Where("room_type_id = ? AND currency = ? AND active = ?", roomTypeID, currency, true).
				Order("created_at ASC, id ASC")
		}).
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, to, from).
		Order("start_date ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find seasons: %w", err)
	}

	seasons := make([]inventory.Season, len(models))
	for i, m := range models {
		seasons[i] = toSeasonDomain(&m)
	}
	return seasons, nil
}

// GormAllotmentRepository implements inventory.AllotmentRepository using GORM.
type GormAllotmentRepository struct {
	db *gorm.DB
}

func NewGormAllotmentRepository(db *gorm.DB) *GormAllotmentRepository {
	return &GormAllotmentRepository{db: db}
}

func (r *GormAllotmentRepository) FindByDates(ctx context.Context, roomTypeID uuid.UUID, dates []time.Time) ([]inventory.DailyAllotment, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	var models []DailyAllotmentModel
	if err := r.db.WithContext(ctx).
		Where("room_type_id = ? AND date IN ?", roomTypeID, dates).
		Order("date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find allotments: %w", err)
	}
	rows := make([]inventory.DailyAllotment, len(models))
	for i, m := range models {
		rows[i] = toAllotmentDomain(&m)
	}
	return rows, nil
}

func (r *GormAllotmentRepository) OccupancyByHotel(ctx context.Context, from, to time.Time) ([]inventory.HotelOccupancy, error) {
	type hotelSum struct {
		HotelID          uuid.UUID
		TotalRoomNights  int64
		BookedRoomNights int64
	}
	var sums []hotelSum
	if err := r.db.WithContext(ctx).
		Table("daily_allotments AS a").
		Select("rt.hotel_id AS hotel_id, SUM(a.total_rooms) AS total_room_nights, SUM(a.booked_rooms) AS booked_room_nights").
		Joins("JOIN room_types rt ON rt.id = a.room_type_id").
		Where("a.date BETWEEN ? AND ?", from, to).
		Group("rt.hotel_id").
		Order("rt.hotel_id").
		Scan(&sums).Error; err != nil {
		return nil, fmt.Errorf("failed to sum occupancy: %w", err)
	}

	out := make([]inventory.HotelOccupancy, len(sums))
	for i, s := range sums {
		out[i] = inventory.HotelOccupancy{
			HotelID:          s.HotelID,
			TotalRoomNights:  s.TotalRoomNights,
			BookedRoomNights: s.BookedRoomNights,
		}
	}
	return out, nil
}

// --- Conversions ---

func toRoomTypeDomain(m *RoomTypeModel) *inventory.RoomType {
	return inventory.ReconstructRoomType(
		m.ID, m.HotelID,
		m.Name,
		m.InventoryCount, m.MaxGuests,
		m.Active,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toSeasonDomain(m *SeasonModel) inventory.Season {
	prices := make([]inventory.SeasonalPrice, len(m.Prices))
	for i, p := range m.Prices {
		prices[i] = inventory.SeasonalPrice{
			ID:           p.ID,
			RoomTypeID:   p.RoomTypeID,
			SeasonID:     p.SeasonID,
			Currency:     p.Currency,
			NightlyPrice: p.NightlyPrice,
			MinNights:    p.MinNights,
			Active:       p.Active,
			CreatedAt:    p.CreatedAt,
		}
	}
	return inventory.Season{
		ID:        m.ID,
		Name:      m.Name,
		StartDate: m.StartDate.UTC(),
		EndDate:   m.EndDate.UTC(),
		Active:    m.Active,
		Prices:    prices,
	}
}

func toAllotmentDomain(m *DailyAllotmentModel) inventory.DailyAllotment {
	return inventory.DailyAllotment{
		ID:           m.ID,
		RoomTypeID:   m.RoomTypeID,
		Date:         m.Date.UTC(),
		TotalRooms:   m.TotalRooms,
		BookedRooms:  m.BookedRooms,
		BlockedRooms: m.BlockedRooms,
		UpdatedAt:    m.UpdatedAt,
	}
}
