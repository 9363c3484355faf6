package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	Code string `json:"code"`
}

func TestStore_BeginClaimsFreshKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, "idem", time.Hour)

	mock.ExpectSetNX("idem:k1", pendingMarker, time.Hour).SetVal(true)

	var out result
	found, err := store.Begin(context.Background(), "k1", "fp-1", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BeginReturnsStoredResult(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, "idem", time.Hour)

	mock.ExpectSetNX("idem:k1", pendingMarker, time.Hour).SetVal(false)
	mock.ExpectGet("idem:k1").SetVal(`{"fingerprint":"fp-1","result":{"code":"MD-ABCDEFGH"}}`)

	var out result
	found, err := store.Begin(context.Background(), "k1", "fp-1", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "MD-ABCDEFGH", out.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BeginInProgress(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, "idem", time.Hour)

	mock.ExpectSetNX("idem:k1", pendingMarker, time.Hour).SetVal(false)
	mock.ExpectGet("idem:k1").SetVal(pendingMarker)

	var out result
	_, err := store.Begin(context.Background(), "k1", "fp-1", &out)
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestStore_CompleteAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, "idem", time.Hour)

	mock.ExpectSet("idem:k1", []byte(`{"fingerprint":"fp-1","result":{"code":"MD-ABCDEFGH"}}`), time.Hour).SetVal("OK")
	mock.ExpectDel("idem:k2").SetVal(1)

	require.NoError(t, store.Complete(context.Background(), "k1", "fp-1", result{Code: "MD-ABCDEFGH"}))
	require.NoError(t, store.Release(context.Background(), "k2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BeginRejectsKeyReusedForAnotherRequest(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, "idem", time.Hour)

	mock.ExpectSetNX("idem:k1", pendingMarker, time.Hour).SetVal(false)
	mock.ExpectGet("idem:k1").SetVal(`{"fingerprint":"fp-1","result":{"code":"MD-ABCDEFGH"}}`)

	var out result
	found, err := store.Begin(context.Background(), "k1", "fp-2", &out)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
	assert.False(t, found)
	assert.Empty(t, out.Code)
}

func TestFingerprint(t *testing.T) {
	type request struct {
		CheckIn string `json:"check_in"`
		Guests  int    `json:"guests"`
	}
	a, err := Fingerprint(request{CheckIn: "2026-03-01", Guests: 2})
	require.NoError(t, err)
	b, err := Fingerprint(request{CheckIn: "2026-03-01", Guests: 2})
	require.NoError(t, err)
	c, err := Fingerprint(request{CheckIn: "2026-03-01", Guests: 3})
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
