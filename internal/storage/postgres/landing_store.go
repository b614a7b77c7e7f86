package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

const landingPageColumns = `id, slug, title, summary, language, content_html, image_url, category,
	meta_description, meta_keywords, schema_org, visuals, faq, format,
	published_at, created_at, updated_at`

// LandingStore implements store.LandingPageRepository on Postgres.
type LandingStore struct {
	pool querier
}

// NewLandingStore connects a new pool for landing pages.
func NewLandingStore(ctx context.Context, cfg Config) (*LandingStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &LandingStore{pool: pool}, nil
}

// NewLandingStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewLandingStoreWithPool(pool querier) (*LandingStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &LandingStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *LandingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create inserts the page. A (slug, language) collision maps to ErrConflict
// via the unique constraint.
func (s *LandingStore) Create(ctx context.Context, page store.LandingPage) error {
	keywords, err := encodeStrings(page.MetaKeywords)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO landing_pages (` + landingPageColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);
	`
	_, err = s.pool.Exec(ctx, query,
		page.ID,
		page.Slug,
		page.Title,
		page.Summary,
		page.Language,
		page.ContentHTML,
		page.ImageURL,
		page.Category,
		page.MetaDescription,
		keywords,
		page.SchemaOrg,
		page.Visuals,
		page.FAQ,
		page.Format,
		page.PublishedAt,
		page.CreatedAt,
		page.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "insert landing page")
	}
	return nil
}

// GetBySlug loads the page holding one (slug, language) pair.
func (s *LandingStore) GetBySlug(ctx context.Context, slug, language string) (store.LandingPage, error) {
	query := `
		SELECT ` + landingPageColumns + `
		FROM landing_pages
		WHERE slug = $1 AND language = $2;
	`
	return s.scanPage(s.pool.QueryRow(ctx, query, slug, language), "get landing page by slug")
}

// GetByID loads one page or ErrNotFound.
func (s *LandingStore) GetByID(ctx context.Context, id uuid.UUID) (store.LandingPage, error) {
	query := `
		SELECT ` + landingPageColumns + `
		FROM landing_pages
		WHERE id = $1;
	`
	return s.scanPage(s.pool.QueryRow(ctx, query, id), "get landing page")
}

// FindBySlugExcluding reports another holder of the (slug, language) pair, for
// update-time conflict checks.
func (s *LandingStore) FindBySlugExcluding(ctx context.Context, slug, language string, excludeID uuid.UUID) (store.LandingPage, error) {
	query := `
		SELECT ` + landingPageColumns + `
		FROM landing_pages
		WHERE slug = $1 AND language = $2 AND id <> $3;
	`
	return s.scanPage(s.pool.QueryRow(ctx, query, slug, language, excludeID), "find conflicting landing page")
}

// Update rewrites the mutable columns of an existing page.
func (s *LandingStore) Update(ctx context.Context, page store.LandingPage) error {
	keywords, err := encodeStrings(page.MetaKeywords)
	if err != nil {
		return err
	}
	query := `
		UPDATE landing_pages
		SET slug = $2, title = $3, summary = $4, language = $5, content_html = $6,
			image_url = $7, category = $8, meta_description = $9, meta_keywords = $10,
			schema_org = $11, visuals = $12, faq = $13, format = $14,
			published_at = $15, updated_at = $16
		WHERE id = $1;
	`
	tag, err := s.pool.Exec(ctx, query,
		page.ID,
		page.Slug,
		page.Title,
		page.Summary,
		page.Language,
		page.ContentHTML,
		page.ImageURL,
		page.Category,
		page.MetaDescription,
		keywords,
		page.SchemaOrg,
		page.Visuals,
		page.FAQ,
		page.Format,
		page.PublishedAt,
		page.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "update landing page")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes one page or returns ErrNotFound.
func (s *LandingStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM landing_pages WHERE id = $1;`, id)
	if err != nil {
		return translateErr(err, "delete landing page")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns newest-first summaries plus the total row count.
func (s *LandingStore) List(ctx context.Context, limit, offset int) ([]store.PageSummary, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM landing_pages;`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count landing pages: %w", err)
	}

	query := `
		SELECT id, slug, title, language, meta_description, format,
			published_at, created_at, updated_at
		FROM landing_pages
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list landing pages: %w", err)
	}
	defer rows.Close()

	var pages []store.PageSummary
	for rows.Next() {
		var p store.PageSummary
		if err := rows.Scan(
			&p.ID,
			&p.Slug,
			&p.Title,
			&p.Language,
			&p.MetaDescription,
			&p.Format,
			&p.PublishedAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan landing page row: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list landing pages: %w", err)
	}
	return pages, total, nil
}

// ListSitemapEntries returns the newest pages for sitemap generation.
func (s *LandingStore) ListSitemapEntries(ctx context.Context, limit int) ([]store.SitemapEntry, error) {
	query := `
		SELECT slug, updated_at, published_at
		FROM landing_pages
		ORDER BY created_at DESC
		LIMIT $1;
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sitemap entries: %w", err)
	}
	defer rows.Close()

	var entries []store.SitemapEntry
	for rows.Next() {
		var e store.SitemapEntry
		if err := rows.Scan(&e.Slug, &e.UpdatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan sitemap row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sitemap entries: %w", err)
	}
	return entries, nil
}

// Ping verifies database connectivity for health checks.
func (s *LandingStore) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1;`).Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *LandingStore) scanPage(row rowScanner, op string) (store.LandingPage, error) {
	var (
		page     store.LandingPage
		keywords string
	)
	err := row.Scan(
		&page.ID,
		&page.Slug,
		&page.Title,
		&page.Summary,
		&page.Language,
		&page.ContentHTML,
		&page.ImageURL,
		&page.Category,
		&page.MetaDescription,
		&keywords,
		&page.SchemaOrg,
		&page.Visuals,
		&page.FAQ,
		&page.Format,
		&page.PublishedAt,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	if err != nil {
		return store.LandingPage{}, translateErr(err, op)
	}
	page.MetaKeywords = decodeStrings(keywords)
	return page, nil
}
