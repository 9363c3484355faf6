package application

import (
	"context"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/atollstay/service-reservation/internal/domain/reservation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditEntryDTO is the API response representation of an audit entry.
type AuditEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	ReservationID uuid.UUID  `json:"reservation_id"`
	ActorKind     string     `json:"actor_kind"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	FromStatus    string     `json:"from_status,omitempty"`
	ToStatus      string     `json:"to_status"`
	Note          string     `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AuditService reads the status-change trail of reservations.
type AuditService struct {
	repo         audit.Repository
	reservations reservation.Repository
	logger       *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo audit.Repository, reservations reservation.Repository, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, reservations: reservations, logger: logger}
}

// GetReservationAudit returns the trail of one reservation, oldest first.
func (s *AuditService) GetReservationAudit(ctx context.Context, reservationID uuid.UUID) ([]*AuditEntryDTO, error) {
	if _, err := s.reservations.FindByID(ctx, reservationID); err != nil {
		return nil, err
	}

	entries, err := s.repo.FindByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	return dtos, nil
}

func toAuditEntryDTO(e *audit.Entry) *AuditEntryDTO {
	return &AuditEntryDTO{
		ID:            e.ID(),
		ReservationID: e.ReservationID(),
		ActorKind:     string(e.Actor().Kind),
		ActorID:       e.Actor().UserID,
		FromStatus:    e.FromStatus(),
		ToStatus:      e.ToStatus(),
		Note:          e.Note(),
		CreatedAt:     e.CreatedAt(),
	}
}
