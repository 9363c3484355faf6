// Package handler exposes the reservation service over HTTP.
package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/atollstay/service-reservation/internal/application"
	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/atollstay/service-reservation/internal/platform/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityChecker answers availability queries.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, q application.AvailabilityQuery) (*application.AvailabilityResult, error)
	CheckHotelAvailability(ctx context.Context, q application.AvailabilityQuery) ([]*application.AvailabilityResult, error)
}

// ReservationManager is the reservation service as used over HTTP.
type ReservationManager interface {
	CreateReservation(ctx context.Context, req application.CreateReservationRequest) (*application.ReservationDTO, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*application.ReservationDTO, error)
	LookupReservation(ctx context.Context, code, email string) (*application.ReservationDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, reason string, actor audit.Actor) (*application.ReservationDTO, error)
	ListReservations(ctx context.Context, filter reservation.ListFilter, page, limit int) (*domain.PaginatedResult[application.ReservationDTO], error)
	GetReservationStats(ctx context.Context) (*application.ReservationStatsDTO, error)
}

// AuditReader returns a reservation's audit trail.
type AuditReader interface {
	GetReservationAudit(ctx context.Context, reservationID uuid.UUID) ([]*application.AuditEntryDTO, error)
}

// OccupancyReporter builds occupancy reports.
type OccupancyReporter interface {
	GetOccupancyReport(ctx context.Context, from, to time.Time) (*application.OccupancyReportDTO, error)
}

// RoomTypeLister lists a hotel's bookable room types.
type RoomTypeLister interface {
	ListHotelRoomTypes(ctx context.Context, hotelID uuid.UUID) ([]application.RoomTypeDTO, error)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
