// Package memory provides in-memory store implementations for development and
// testing. The service runs entirely on this package when no database DSN is
// configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// LandingStore implements store.LandingPageRepository in memory.
type LandingStore struct {
	mu    sync.RWMutex
	pages map[uuid.UUID]store.LandingPage
	slugs map[string]uuid.UUID
}

// NewLandingStore constructs an empty LandingStore.
func NewLandingStore() *LandingStore {
	return &LandingStore{
		pages: make(map[uuid.UUID]store.LandingPage),
		slugs: make(map[string]uuid.UUID),
	}
}

func slugKey(slug, language string) string {
	return slug + "\x00" + language
}

// Create inserts the page, enforcing the (slug, language) uniqueness the
// database constraint provides in production.
func (s *LandingStore) Create(_ context.Context, page store.LandingPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slugKey(page.Slug, page.Language)
	if _, exists := s.slugs[key]; exists {
		return store.ErrConflict
	}
	if _, exists := s.pages[page.ID]; exists {
		return store.ErrConflict
	}
	s.pages[page.ID] = page
	s.slugs[key] = page.ID
	return nil
}

// GetBySlug loads the page for one (slug, language) pair.
func (s *LandingStore) GetBySlug(_ context.Context, slug, language string) (store.LandingPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slugKey(slug, language)]
	if !ok {
		return store.LandingPage{}, store.ErrNotFound
	}
	return s.pages[id], nil
}

// GetByID loads one page or ErrNotFound.
func (s *LandingStore) GetByID(_ context.Context, id uuid.UUID) (store.LandingPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[id]
	if !ok {
		return store.LandingPage{}, store.ErrNotFound
	}
	return page, nil
}

// FindBySlugExcluding reports another holder of the (slug, language) pair.
func (s *LandingStore) FindBySlugExcluding(_ context.Context, slug, language string, excludeID uuid.UUID) (store.LandingPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slugKey(slug, language)]
	if !ok || id == excludeID {
		return store.LandingPage{}, store.ErrNotFound
	}
	return s.pages[id], nil
}

// Update rewrites an existing page, re-keying the slug index when the slug or
// language changed.
func (s *LandingStore) Update(_ context.Context, page store.LandingPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.pages[page.ID]
	if !ok {
		return store.ErrNotFound
	}
	newKey := slugKey(page.Slug, page.Language)
	if holder, exists := s.slugs[newKey]; exists && holder != page.ID {
		return store.ErrConflict
	}
	delete(s.slugs, slugKey(old.Slug, old.Language))
	s.pages[page.ID] = page
	s.slugs[newKey] = page.ID
	return nil
}

// Delete removes one page or returns ErrNotFound.
func (s *LandingStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.pages, id)
	delete(s.slugs, slugKey(page.Slug, page.Language))
	return nil
}

// List returns newest-first summaries plus the total row count.
func (s *LandingStore) List(_ context.Context, limit, offset int) ([]store.PageSummary, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedPages()
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]store.PageSummary, 0, len(all))
	for _, p := range all {
		out = append(out, store.PageSummary{
			ID:              p.ID,
			Slug:            p.Slug,
			Title:           p.Title,
			Language:        p.Language,
			MetaDescription: p.MetaDescription,
			Format:          p.Format,
			PublishedAt:     p.PublishedAt,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		})
	}
	return out, total, nil
}

// ListSitemapEntries returns the newest pages for sitemap generation.
func (s *LandingStore) ListSitemapEntries(_ context.Context, limit int) ([]store.SitemapEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedPages()
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]store.SitemapEntry, 0, len(all))
	for _, p := range all {
		out = append(out, store.SitemapEntry{
			Slug:        p.Slug,
			UpdatedAt:   p.UpdatedAt,
			PublishedAt: p.PublishedAt,
		})
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *LandingStore) Ping(_ context.Context) error {
	return nil
}

// sortedPages returns all pages newest-first. Callers hold the lock.
func (s *LandingStore) sortedPages() []store.LandingPage {
	all := make([]store.LandingPage, 0, len(s.pages))
	for _, p := range s.pages {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}
