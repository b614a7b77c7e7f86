package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

// ProductStore implements store.ProductRepository on Postgres.
type ProductStore struct {
	pool querier
}

// NewProductStore connects a new pool for products.
func NewProductStore(ctx context.Context, cfg Config) (*ProductStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ProductStore{pool: pool}, nil
}

// NewProductStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewProductStoreWithPool(pool querier) (*ProductStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ProductStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create inserts a product row.
func (s *ProductStore) Create(ctx context.Context, p store.Product) error {
	tags, err := encodeStrings(p.Tags)
	if err != nil {
		return err
	}
	advantages, err := encodeStrings(p.Advantages)
	if err != nil {
		return err
	}
	disadvantages, err := encodeStrings(p.Disadvantages)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO products (
			id, name, description, price, category, tags, advantages, disadvantages,
			pricing_info, external_url, has_trial, image_url, pending_image_url,
			image_approval_status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16);
	`
	_, err = s.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		tags,
		advantages,
		disadvantages,
		p.PricingInfo,
		p.ExternalURL,
		p.HasTrial,
		p.ImageURL,
		p.PendingImageURL,
		p.ImageApprovalStatus,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "insert product")
	}
	return nil
}

// GetByID loads one product or ErrNotFound.
func (s *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (store.Product, error) {
	query := `
		SELECT id, name, description, price, category, tags, advantages, disadvantages,
			pricing_info, external_url, has_trial, image_url, pending_image_url,
			image_approval_status, created_at, updated_at
		FROM products
		WHERE id = $1;
	`
	return s.scanProduct(s.pool.QueryRow(ctx, query, id))
}

// Update rewrites the mutable columns of an existing product.
func (s *ProductStore) Update(ctx context.Context, p store.Product) error {
	tags, err := encodeStrings(p.Tags)
	if err != nil {
		return err
	}
	advantages, err := encodeStrings(p.Advantages)
	if err != nil {
		return err
	}
	disadvantages, err := encodeStrings(p.Disadvantages)
	if err != nil {
		return err
	}
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, tags = $6,
			advantages = $7, disadvantages = $8, pricing_info = $9, external_url = $10,
			has_trial = $11, image_url = $12, pending_image_url = $13,
			image_approval_status = $14, updated_at = $15
		WHERE id = $1;
	`
	tag, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Category,
		tags,
		advantages,
		disadvantages,
		p.PricingInfo,
		p.ExternalURL,
		p.HasTrial,
		p.ImageURL,
		p.PendingImageURL,
		p.ImageApprovalStatus,
		p.UpdatedAt,
	)
	if err != nil {
		return translateErr(err, "update product")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes one product or returns ErrNotFound.
func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return translateErr(err, "delete product")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns newest-first products, optionally filtered by category.
func (s *ProductStore) List(ctx context.Context, category string, limit, offset int) ([]store.Product, int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE ($1 = '' OR category = $1);`, category,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT id, name, description, price, category, tags, advantages, disadvantages,
			pricing_info, external_url, has_trial, image_url, pending_image_url,
			image_approval_status, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []store.Product
	for rows.Next() {
		p, err := s.scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (s *ProductStore) scanProduct(row rowScanner) (store.Product, error) {
	var (
		p             store.Product
		tags          string
		advantages    string
		disadvantages string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&tags,
		&advantages,
		&disadvantages,
		&p.PricingInfo,
		&p.ExternalURL,
		&p.HasTrial,
		&p.ImageURL,
		&p.PendingImageURL,
		&p.ImageApprovalStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return store.Product{}, translateErr(err, "scan product")
	}
	p.Tags = decodeStrings(tags)
	p.Advantages = decodeStrings(advantages)
	p.Disadvantages = decodeStrings(disadvantages)
	return p, nil
}

// ReviewQueueStore implements store.ReviewQueueRepository on Postgres.
type ReviewQueueStore struct {
	pool querier
}

// NewReviewQueueStore connects a new pool for the review queue.
func NewReviewQueueStore(ctx context.Context, cfg Config) (*ReviewQueueStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ReviewQueueStore{pool: pool}, nil
}

// NewReviewQueueStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewReviewQueueStoreWithPool(pool querier) (*ReviewQueueStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ReviewQueueStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ReviewQueueStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// GetByID loads one staged candidate or ErrNotFound.
func (s *ReviewQueueStore) GetByID(ctx context.Context, id uuid.UUID) (store.ReviewQueueProduct, error) {
	query := `
		SELECT id, name, description, price, category, tags, advantages, disadvantages,
			external_url, has_trial, image_url, status, reviewed_at, created_at
		FROM review_queue_products
		WHERE id = $1;
	`
	return s.scanCandidate(s.pool.QueryRow(ctx, query, id))
}

// List returns staged candidates in the given status, newest first.
func (s *ReviewQueueStore) List(ctx context.Context, status string, limit, offset int) ([]store.ReviewQueueProduct, error) {
	query := `
		SELECT id, name, description, price, category, tags, advantages, disadvantages,
			external_url, has_trial, image_url, status, reviewed_at, created_at
		FROM review_queue_products
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	defer rows.Close()

	var items []store.ReviewQueueProduct
	for rows.Next() {
		item, err := s.scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	return items, nil
}

// MarkReviewed transitions a pending row to approved/rejected.
func (s *ReviewQueueStore) MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time) error {
	query := `
		UPDATE review_queue_products
		SET status = $2, reviewed_at = $3
		WHERE id = $1 AND status = $4;
	`
	tag, err := s.pool.Exec(ctx, query, id, status, reviewedAt, store.ReviewPending)
	if err != nil {
		return translateErr(err, "mark candidate reviewed")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ReviewQueueStore) scanCandidate(row rowScanner) (store.ReviewQueueProduct, error) {
	var (
		item          store.ReviewQueueProduct
		tags          string
		advantages    string
		disadvantages string
	)
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.Category,
		&tags,
		&advantages,
		&disadvantages,
		&item.ExternalURL,
		&item.HasTrial,
		&item.ImageURL,
		&item.Status,
		&item.ReviewedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return store.ReviewQueueProduct{}, translateErr(err, "scan review candidate")
	}
	item.Tags = decodeStrings(tags)
	item.Advantages = decodeStrings(advantages)
	item.Disadvantages = decodeStrings(disadvantages)
	return item, nil
}
