package memory

import (
	"context"
	"sync"
	"time"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// IdempotencyStore implements store.IdempotencyRepository in memory.
type IdempotencyStore struct {
	mu   sync.RWMutex
	recs map[string]store.IdempotencyRecord
	now  func() time.Time
}

// NewIdempotencyStore constructs an empty IdempotencyStore.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		recs: make(map[string]store.IdempotencyRecord),
		now:  time.Now,
	}
}

// Get loads the record for key. Expired records are treated as absent.
func (s *IdempotencyStore) Get(_ context.Context, key string) (store.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[key]
	if !ok || !rec.ExpiresAt.After(s.now()) {
		return store.IdempotencyRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// Put inserts the record; an existing key yields ErrConflict.
func (s *IdempotencyStore) Put(_ context.Context, rec store.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[rec.Key]; exists {
		return store.ErrConflict
	}
	s.recs[rec.Key] = rec
	return nil
}

// DeleteExpired removes records past their expiry.
func (s *IdempotencyStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, rec := range s.recs {
		if !rec.ExpiresAt.After(now) {
			delete(s.recs, key)
			removed++
		}
	}
	return removed, nil
}

// TableExists always reports true for the in-memory store.
func (s *IdempotencyStore) TableExists(_ context.Context) (bool, error) {
	return true, nil
}
