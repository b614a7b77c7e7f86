package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Image approval workflow states for pending product screenshots.
const (
	ImageApprovalNone     = ""
	ImageApprovalPending  = "pending"
	ImageApprovalApproved = "approved"
	ImageApprovalRejected = "rejected"
)

// Review queue states for scraped product candidates.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Product mirrors the products table. Tag-style lists are stored as
// serialized JSON arrays; PricingInfo is kept as raw JSONB.
type Product struct {
	ID                  uuid.UUID
	Name                string
	Description         string
	Price               float64
	Category            string
	Tags                []string
	Advantages          []string
	Disadvantages       []string
	PricingInfo         json.RawMessage
	ExternalURL         string
	HasTrial            bool
	ImageURL            *string
	PendingImageURL     *string
	ImageApprovalStatus string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ReviewQueueProduct is a staging row for a scraped candidate awaiting
// admin approval before promotion to Product.
type ReviewQueueProduct struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Price         float64
	Category      string
	Tags          []string
	Advantages    []string
	Disadvantages []string
	ExternalURL   string
	HasTrial      bool
	ImageURL      *string
	Status        string
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

// ProductRepository persists directory products.
type ProductRepository interface {
	Create(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns newest-first products, optionally filtered by category.
	List(ctx context.Context, category string, limit, offset int) ([]Product, int64, error)
}

// ReviewQueueRepository stages scraped candidates for admin review.
type ReviewQueueRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (ReviewQueueProduct, error)
	// List returns staged candidates in the given status, newest first.
	List(ctx context.Context, status string, limit, offset int) ([]ReviewQueueProduct, error)
	// MarkReviewed transitions a pending row to approved/rejected.
	MarkReviewed(ctx context.Context, id uuid.UUID, status string, reviewedAt time.Time) error
}
