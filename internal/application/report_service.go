package application

import (
	"context"
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/calendar"
	"github.com/atollstay/service-reservation/internal/domain/inventory"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HotelOccupancyDTO is one hotel's share of an occupancy report.
type HotelOccupancyDTO struct {
	HotelID            uuid.UUID       `json:"hotel_id"`
	TotalRoomNights    int64           `json:"total_room_nights"`
	OccupiedRoomNights int64           `json:"occupied_room_nights"`
	Rate               decimal.Decimal `json:"rate"`
}

// OccupancyReportDTO summarises booked room-nights over a period. Rates are
// percentages rounded to two decimals. Only materialised allotment rows
// count, so dates nobody has booked do not dilute the rate.
type OccupancyReportDTO struct {
	Period             string              `json:"period"`
	TotalRoomNights    int64               `json:"total_room_nights"`
	OccupiedRoomNights int64               `json:"occupied_room_nights"`
	OccupancyRate      decimal.Decimal     `json:"occupancy_rate"`
	ByHotel            []HotelOccupancyDTO `json:"by_hotel"`
}

// ReportService builds admin reports over the allotment ledger.
type ReportService struct {
	allotments inventory.AllotmentRepository
	logger     *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(allotments inventory.AllotmentRepository, logger *zap.Logger) *ReportService {
	return &ReportService{allotments: allotments, logger: logger}
}

// GetOccupancyReport reports occupancy for dates in [from, to], both inclusive.
func (s *ReportService) GetOccupancyReport(ctx context.Context, from, to time.Time) (*OccupancyReportDTO, error) {
	from, to = calendar.Normalize(from), calendar.Normalize(to)
	if to.Before(from) {
		return nil, domain.NewValidationError("report end date must not be before start date")
	}

	rows, err := s.allotments.OccupancyByHotel(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancy: %w", err)
	}

	report := &OccupancyReportDTO{
		Period:  fmt.Sprintf("%s to %s", calendar.FormatDate(from), calendar.FormatDate(to)),
		ByHotel: make([]HotelOccupancyDTO, 0, len(rows)),
	}
	for _, row := range rows {
		report.TotalRoomNights += row.TotalRoomNights
		report.OccupiedRoomNights += row.BookedRoomNights
		report.ByHotel = append(report.ByHotel, HotelOccupancyDTO{
			HotelID:            row.HotelID,
			TotalRoomNights:    row.TotalRoomNights,
			OccupiedRoomNights: row.BookedRoomNights,
			Rate:               occupancyRate(row.BookedRoomNights, row.TotalRoomNights),
		})
	}
	report.OccupancyRate = occupancyRate(report.OccupiedRoomNights, report.TotalRoomNights)
	return report, nil
}

func occupancyRate(occupied, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(occupied).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(total)).
		Round(2)
}
