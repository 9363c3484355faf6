package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atollstay/service-reservation/internal/domain/audit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntryModel is the GORM model for the reservation_audit_entries table.
type AuditEntryModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ReservationID uuid.UUID  `gorm:"type:uuid;index;not null"`
	ActorKind     string     `gorm:"not null;size:20"`
	ActorID       *uuid.UUID `gorm:"type:uuid"`
	FromStatus    string     `gorm:"size:20"`
	ToStatus      string     `gorm:"not null;size:20"`
	Note          string     `gorm:"size:500"`
	CreatedAt     time.Time  `gorm:"not null"`
}

func (AuditEntryModel) TableName() string {
	return "reservation_audit_entries"
}

// GormAuditRepository implements audit.Repository.
type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// FindByReservationID returns the audit trail of a reservation, oldest first.
func (r *GormAuditRepository) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*audit.Entry, error) {
	var models []AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find audit entries: %w", err)
	}

	entries := make([]*audit.Entry, len(models))
	for i, m := range models {
		entries[i] = audit.Reconstruct(
			m.ID, m.ReservationID,
			audit.Actor{Kind: audit.ActorKind(m.ActorKind), UserID: m.ActorID},
			m.FromStatus, m.ToStatus, m.Note,
			m.CreatedAt,
		)
	}
	return entries, nil
}

func toAuditModel(e *audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
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
