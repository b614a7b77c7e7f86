package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// WebhookLogStore implements store.WebhookLogRepository in memory.
type WebhookLogStore struct {
	mu      sync.RWMutex
	entries []store.WebhookLog
}

// NewWebhookLogStore constructs an empty WebhookLogStore.
func NewWebhookLogStore() *WebhookLogStore {
	return &WebhookLogStore{}
}

// Insert appends one audit row.
func (s *WebhookLogStore) Insert(_ context.Context, entry store.WebhookLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// List returns newest-first audit rows matching the filter.
func (s *WebhookLogStore) List(_ context.Context, filter store.WebhookLogFilter) ([]store.WebhookLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.WebhookLog, 0, len(s.entries))
	for _, e := range s.entries {
		if !matches(e, filter) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(e store.WebhookLog, filter store.WebhookLogFilter) bool {
	if filter.StatusCode != 0 && e.StatusCode != filter.StatusCode {
		return false
	}
	if filter.Query == "" {
		return true
	}
	q := strings.ToLower(filter.Query)
	for _, field := range []string{
		e.RequestID,
		deref(e.IdempotencyKey),
		e.Endpoint,
		deref(e.Slug),
		deref(e.Language),
		deref(e.Error),
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
