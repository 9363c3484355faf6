// Package idempotency remembers the response of a POST keyed by the client's
// Idempotency-Key header so that a retried request does not book twice. A key
// is bound to the request it was first used with.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress is returned when another request with the same key has
// claimed it but not yet stored a result.
var ErrInProgress = errors.New("idempotency: request with this key is in progress")

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key was used for a different request")

const pendingMarker = "__pending__"

// record is what a completed key holds.
type record struct {
	Fingerprint string          `json:"fingerprint"`
	Result      json.RawMessage `json:"result"`
}

// Fingerprint hashes the JSON encoding of a decoded request, so requests that
// differ only in formatting share a fingerprint.
func Fingerprint(request interface{}) (string, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("idempotency: failed to encode request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Store is a Redis-backed idempotency store.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStore creates a Store. Keys expire after ttl.
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

// Begin claims key for the request with fingerprint. If a result was already
// stored for the same fingerprint it is decoded into out and found is true.
// A stored result for another fingerprint yields ErrFingerprintMismatch; a
// claimed but unfinished key yields ErrInProgress.
func (s *Store) Begin(ctx context.Context, key, fingerprint string, out interface{}) (found bool, err error) {
	claimed, err := s.client.SetNX(ctx, s.key(key), pendingMarker, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: failed to claim key: %w", err)
	}
	if claimed {
		return false, nil
	}

	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, ErrInProgress
	}
	if err != nil {
		return false, fmt.Errorf("idempotency: failed to read key: %w", err)
	}
	if raw == pendingMarker {
		return false, ErrInProgress
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return false, fmt.Errorf("idempotency: failed to decode stored result: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return false, ErrFingerprintMismatch
	}
	if err := json.Unmarshal(rec.Result, out); err != nil {
		return false, fmt.Errorf("idempotency: failed to decode stored result: %w", err)
	}
	return true, nil
}

// Complete stores the result for key together with the request fingerprint.
func (s *Store) Complete(ctx context.Context, key, fingerprint string, result interface{}) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency: failed to encode result: %w", err)
	}
	payload, err := json.Marshal(record{Fingerprint: fingerprint, Result: encoded})
	if err != nil {
		return fmt.Errorf("idempotency: failed to encode result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to store result: %w", err)
	}
	return nil
}

// Release drops the claim so the client can retry after a failure.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to release key: %w", err)
	}
	return nil
}
