package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorKind identifies who caused a status change.
type ActorKind string

const (
	ActorAdmin   ActorKind = "admin"
	ActorGuest   ActorKind = "guest"
	ActorPayment ActorKind = "payment"
	ActorSystem  ActorKind = "system"
)

// IsValid returns true if the actor kind is recognized.
func (k ActorKind) IsValid() bool {
	switch k {
	case ActorAdmin, ActorGuest, ActorPayment, ActorSystem:
		return true
	}
	return false
}

// Actor is who performed an action. UserID is nil for non-user actors.
type Actor struct {
	Kind   ActorKind
	UserID *uuid.UUID
}

// AdminActor builds an Actor for an authenticated staff user.
func AdminActor(userID uuid.UUID) Actor {
	return Actor{Kind: ActorAdmin, UserID: &userID}
}

// SystemActor is the actor of scheduled jobs.
func SystemActor() Actor { return Actor{Kind: ActorSystem} }

// PaymentActor is the actor of payment events.
func PaymentActor() Actor { return Actor{Kind: ActorPayment} }

// Entry records one reservation status change.
type Entry struct {
	id            uuid.UUID
	reservationID uuid.UUID
	actor         Actor
	fromStatus    string
	toStatus      string
	note          string
	createdAt     time.Time
}

// NewEntry creates an audit entry for a status change.
func NewEntry(reservationID uuid.UUID, actor Actor, fromStatus, toStatus, note string) (*Entry, error) {
	if reservationID == uuid.Nil {
		return nil, fmt.Errorf("reservation ID is required")
	}
	if !actor.Kind.IsValid() {
		return nil, fmt.Errorf("invalid actor kind: %s", actor.Kind)
	}
	return &Entry{
		id:            uuid.New(),
		reservationID: reservationID,
		actor:         actor,
		fromStatus:    fromStatus,
		toStatus:      toStatus,
		note:          note,
		createdAt:     time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds an Entry from persistence.
func Reconstruct(id, reservationID uuid.UUID, actor Actor, fromStatus, toStatus, note string, createdAt time.Time) *Entry {
	return &Entry{
		id:            id,
		reservationID: reservationID,
		actor:         actor,
		fromStatus:    fromStatus,
		toStatus:      toStatus,
		note:          note,
		createdAt:     createdAt,
	}
}

// Getters.
func (e *Entry) ID() uuid.UUID            { return e.id }
func (e *Entry) ReservationID() uuid.UUID { return e.reservationID }
func (e *Entry) Actor() Actor             { return e.actor }
func (e *Entry) FromStatus() string       { return e.fromStatus }
func (e *Entry) ToStatus() string         { return e.toStatus }
func (e *Entry) Note() string             { return e.note }
func (e *Entry) CreatedAt() time.Time     { return e.createdAt }

// Repository defines read operations for audit entries. Entries are written
// inside reservation transactions.
type Repository interface {
	FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*Entry, error)
}
