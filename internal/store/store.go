// Package store declares the persistence interfaces and records shared by the
// ingestion pipeline and the admin API.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict signals a unique-constraint violation. For landing pages the
// constraint is (slug, language); for idempotency keys it is the key itself.
var ErrConflict = errors.New("record already exists")

// LandingPage mirrors the landing_pages table.
//
// The table carries a UNIQUE (slug, language) constraint; concurrent creations
// with the same pair are resolved by the database, not by application locks.
type LandingPage struct {
	ID              uuid.UUID
	Slug            string
	Title           string
	Summary         *string
	Language        string
	ContentHTML     string
	ImageURL        *string
	Category        *string
	MetaDescription string
	// MetaKeywords is stored as a serialized JSON array of strings.
	MetaKeywords []string
	SchemaOrg    *string
	// Visuals and FAQ are persisted verbatim as JSONB so the original array
	// order survives a round trip.
	Visuals     json.RawMessage
	FAQ         json.RawMessage
	Format      string
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PageSummary is the trimmed row shape used by the paginated listing.
type PageSummary struct {
	ID              uuid.UUID
	Slug            string
	Title           string
	Language        string
	MetaDescription string
	Format          string
	PublishedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SitemapEntry is the minimal projection the sitemap generator needs.
type SitemapEntry struct {
	Slug        string
	UpdatedAt   time.Time
	PublishedAt time.Time
}

// LandingPageRepository persists landing pages.
type LandingPageRepository interface {
	// Create inserts the page. A (slug, language) collision surfaces as
	// ErrConflict.
	Create(ctx context.Context, page LandingPage) error
	// GetBySlug loads the page for one (slug, language) pair or ErrNotFound.
	GetBySlug(ctx context.Context, slug, language string) (LandingPage, error)
	// GetByID loads one page or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (LandingPage, error)
	// Update rewrites the mutable columns of an existing page.
	Update(ctx context.Context, page LandingPage) error
	// Delete removes one page or returns ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns newest-first summaries plus the total row count.
	List(ctx context.Context, limit, offset int) ([]PageSummary, int64, error)
	// FindBySlugExcluding reports a (slug, language) holder other than
	// excludeID, for update-time conflict checks. ErrNotFound means free.
	FindBySlugExcluding(ctx context.Context, slug, language string, excludeID uuid.UUID) (LandingPage, error)
	// ListSitemapEntries returns the newest pages for sitemap generation.
	ListSitemapEntries(ctx context.Context, limit int) ([]SitemapEntry, error)
	// Ping verifies database connectivity for health checks.
	Ping(ctx context.Context) error
}
