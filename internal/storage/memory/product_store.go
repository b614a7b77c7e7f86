package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// ProductStore implements store.ProductRepository in memory.
type ProductStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]store.Product
}

// NewProductStore constructs an empty ProductStore.
func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[uuid.UUID]store.Product)}
}

// Create inserts a product.
func (s *ProductStore) Create(_ context.Context, p store.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; exists {
		return store.ErrConflict
	}
	s.products[p.ID] = p
	return nil
}

// GetByID loads one product or ErrNotFound.
func (s *ProductStore) GetByID(_ context.Context, id uuid.UUID) (store.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

// Update rewrites an existing product.
func (s *ProductStore) Update(_ context.Context, p store.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

// Delete removes one product or returns ErrNotFound.
func (s *ProductStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// List returns newest-first products, optionally filtered by category.
func (s *ProductStore) List(_ context.Context, category string, limit, offset int) ([]store.Product, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]store.Product, 0, len(s.products))
	for _, p := range s.products {
		if category != "" && p.Category != category {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

// ReviewQueueStore implements store.ReviewQueueRepository in memory.
type ReviewQueueStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]store.ReviewQueueProduct
}

// NewReviewQueueStore constructs an empty ReviewQueueStore.
func NewReviewQueueStore() *ReviewQueueStore {
	return &ReviewQueueStore{items: make(map[uuid.UUID]store.ReviewQueueProduct)}
}

// Stage adds a candidate row. In production candidates arrive from the
// external scraper writing to the database; this is the dev-mode equivalent.
func (s *ReviewQueueStore) Stage(_ context.Context, item store.ReviewQueueProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return store.ErrConflict
	}
	s.items[item.ID] = item
	return nil
}

// GetByID loads one staged candidate or ErrNotFound.
func (s *ReviewQueueStore) GetByID(_ context.Context, id uuid.UUID) (store.ReviewQueueProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return store.ReviewQueueProduct{}, store.ErrNotFound
	}
	return item, nil
}

// List returns staged candidates in the given status, newest first.
func (s *ReviewQueueStore) List(_ context.Context, status string, limit, offset int) ([]store.ReviewQueueProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]store.ReviewQueueProduct, 0, len(s.items))
	for _, item := range s.items {
		if status != "" && item.Status != status {
			continue
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// MarkReviewed transitions a pending row to approved/rejected.
func (s *ReviewQueueStore) MarkReviewed(_ context.Context, id uuid.UUID, status string, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != store.ReviewPending {
		return store.ErrNotFound
	}
	item.Status = status
	item.ReviewedAt = &reviewedAt
	s.items[id] = item
	return nil
}
