package store

import (
	"context"
	"time"
)

// IdempotencyRecord mirrors the idempotency_keys table. The stored response is
// replayed byte-for-byte on a retry, so it is kept as raw JSON.
type IdempotencyRecord struct {
	Key         string
	PayloadHash string
	StatusCode  int
	Response    []byte
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IdempotencyRepository persists replayable responses keyed by the
// client-supplied Idempotency-Key header.
type IdempotencyRepository interface {
	// Get loads the record for key or returns ErrNotFound. Expired records
	// are treated as absent.
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	// Put inserts the record. A concurrent insert under the same key
	// surfaces as ErrConflict via the primary-key constraint.
	Put(ctx context.Context, rec IdempotencyRecord) error
	// DeleteExpired removes records past their expiry and reports how many
	// rows went away. Called opportunistically, best-effort.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// TableExists reports whether the backing table is reachable, for the
	// ingest health probe.
	TableExists(ctx context.Context) (bool, error)
}
