package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	resID := uuid.New()
	userID := uuid.New()

	e, err := NewEntry(resID, AdminActor(userID), "PENDING", "CONFIRMED", "")
	require.NoError(t, err)
	assert.Equal(t, resID, e.ReservationID())
	assert.Equal(t, ActorAdmin, e.Actor().Kind)
	require.NotNil(t, e.Actor().UserID)
	assert.Equal(t, userID, *e.Actor().UserID)
	assert.False(t, e.CreatedAt().IsZero())
}

func TestNewEntry_Invalid(t *testing.T) {
	_, err := NewEntry(uuid.Nil, SystemActor(), "PENDING", "CANCELLED", "")
	assert.Error(t, err)

	_, err = NewEntry(uuid.New(), Actor{Kind: "robot"}, "PENDING", "CANCELLED", "")
	assert.Error(t, err)
}
