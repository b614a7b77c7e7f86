package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

const defaultLogLimit = 200

// WebhookLogStore implements store.WebhookLogRepository on Postgres.
type WebhookLogStore struct {
	pool querier
}

// NewWebhookLogStore connects a new pool for the ingest audit log.
func NewWebhookLogStore(ctx context.Context, cfg Config) (*WebhookLogStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &WebhookLogStore{pool: pool}, nil
}

// NewWebhookLogStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewWebhookLogStoreWithPool(pool querier) (*WebhookLogStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &WebhookLogStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *WebhookLogStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert appends one audit row.
func (s *WebhookLogStore) Insert(ctx context.Context, entry store.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			id, created_at, endpoint, request_id, status_code, duration_ms,
			idempotency_key, slug, language, secret_id, signature_timestamp,
			signature_valid, payload_hash, error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);
	`
	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.CreatedAt,
		entry.Endpoint,
		entry.RequestID,
		entry.StatusCode,
		entry.DurationMs,
		entry.IdempotencyKey,
		entry.Slug,
		entry.Language,
		entry.SecretID,
		entry.SignatureTimestamp,
		entry.SignatureValid,
		entry.PayloadHash,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// List returns newest-first audit rows matching the filter. The substring
// query matches request id, idempotency key, endpoint, slug, language and
// error columns.
func (s *WebhookLogStore) List(ctx context.Context, filter store.WebhookLogFilter) ([]store.WebhookLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	query := `
		SELECT id, created_at, endpoint, request_id, status_code, duration_ms,
			idempotency_key, slug, language, secret_id, signature_timestamp,
			signature_valid, payload_hash, error
		FROM webhook_logs
		WHERE ($1 = '' OR request_id ILIKE '%' || $1 || '%'
			OR idempotency_key ILIKE '%' || $1 || '%'
			OR endpoint ILIKE '%' || $1 || '%'
			OR slug ILIKE '%' || $1 || '%'
			OR language ILIKE '%' || $1 || '%'
			OR error ILIKE '%' || $1 || '%')
		AND ($2 = 0 OR status_code = $2)
		ORDER BY created_at DESC
		LIMIT $3;
	`
	rows, err := s.pool.Query(ctx, query, filter.Query, filter.StatusCode, limit)
	if err != nil {
		return nil, fmt.Errorf("list webhook logs: %w", err)
	}
	defer rows.Close()

	var entries []store.WebhookLog
	for rows.Next() {
		var e store.WebhookLog
		if err := rows.Scan(
			&e.ID,
			&e.CreatedAt,
			&e.Endpoint,
			&e.RequestID,
			&e.StatusCode,
			&e.DurationMs,
			&e.IdempotencyKey,
			&e.Slug,
			&e.Language,
			&e.SecretID,
			&e.SignatureTimestamp,
			&e.SignatureValid,
			&e.PayloadHash,
			&e.Error,
		); err != nil {
			return nil, fmt.Errorf("scan webhook log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list webhook logs: %w", err)
	}
	return entries, nil
}
