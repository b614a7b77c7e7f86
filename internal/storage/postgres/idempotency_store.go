package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// IdempotencyStore implements store.IdempotencyRepository on Postgres.
type IdempotencyStore struct {
	pool querier
	now  func() time.Time
}

// NewIdempotencyStore connects a new pool for idempotency keys.
func NewIdempotencyStore(ctx context.Context, cfg Config) (*IdempotencyStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &IdempotencyStore{pool: pool, now: time.Now}, nil
}

// NewIdempotencyStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewIdempotencyStoreWithPool(pool querier) (*IdempotencyStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &IdempotencyStore{pool: pool, now: time.Now}, nil
}

// Close releases the underlying pool resources.
func (s *IdempotencyStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Get loads the record for key. Expired records are treated as absent.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (store.IdempotencyRecord, error) {
	query := `
		SELECT key, payload_hash, status_code, response, expires_at, created_at
		FROM idempotency_keys
		WHERE key = $1 AND expires_at > $2;
	`
	var rec store.IdempotencyRecord
	err := s.pool.QueryRow(ctx, query, key, s.now()).Scan(
		&rec.Key,
		&rec.PayloadHash,
		&rec.StatusCode,
		&rec.Response,
		&rec.ExpiresAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return store.IdempotencyRecord{}, translateErr(err, "get idempotency key")
	}
	return rec, nil
}

// Put inserts the record. A concurrent insert under the same key surfaces as
// ErrConflict via the primary-key constraint.
func (s *IdempotencyStore) Put(ctx context.Context, rec store.IdempotencyRecord) error {
	query := `
		INSERT INTO idempotency_keys (key, payload_hash, status_code, response, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6);
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Key,
		rec.PayloadHash,
		rec.StatusCode,
		rec.Response,
		rec.ExpiresAt,
		rec.CreatedAt,
	)
	if err != nil {
		return translateErr(err, "insert idempotency key")
	}
	return nil
}

// DeleteExpired removes records past their expiry.
func (s *IdempotencyStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1;`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TableExists reports whether the backing table is reachable, for the ingest
// health probe.
func (s *IdempotencyStore) TableExists(ctx context.Context) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'idempotency_keys'
		);
	`
	var exists bool
	if err := s.pool.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("check idempotency table: %w", err)
	}
	return exists, nil
}
