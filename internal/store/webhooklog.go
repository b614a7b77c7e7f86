package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookLog is one append-only audit row per ingestion request.
type WebhookLog struct {
	ID                 uuid.UUID
	CreatedAt          time.Time
	Endpoint           string
	RequestID          string
	StatusCode         int
	DurationMs         int64
	IdempotencyKey     *string
	Slug               *string
	Language           *string
	SecretID           *string
	SignatureTimestamp *string
	SignatureValid     *bool
	PayloadHash        *string
	Error              *string
}

// WebhookLogFilter narrows the audit-log listing.
type WebhookLogFilter struct {
	// Query matches request id, idempotency key, endpoint, slug, language
	// or error, substring-style.
	Query string
	// StatusCode filters on the exact response code when non-zero.
	StatusCode int
	Limit      int
}

// WebhookLogRepository records and queries ingestion audit rows.
type WebhookLogRepository interface {
	// Insert appends one audit row. Failures are the caller's to swallow;
	// audit logging never fails a request.
	Insert(ctx context.Context, entry WebhookLog) error
	// List returns newest-first audit rows matching the filter.
	List(ctx context.Context, filter WebhookLogFilter) ([]WebhookLog, error)
}
