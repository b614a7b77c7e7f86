package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

func TestProductStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewProductStore()
	p := store.Product{ID: uuid.New(), Name: "CompareBot", Category: "ai-tools"}
	require.NoError(t, s.Create(ctx, p))
	require.ErrorIs(t, s.Create(ctx, p), store.ErrConflict)

	got, err := s.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "CompareBot", got.Name)

	p.Name = "CompareBot Pro"
	require.NoError(t, s.Update(ctx, p))
	got, err = s.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "CompareBot Pro", got.Name)

	require.NoError(t, s.Delete(ctx, p.ID))
	require.ErrorIs(t, s.Delete(ctx, p.ID), store.ErrNotFound)
}

func TestProductStore_ListFiltersByCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewProductStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, store.Product{
		ID: uuid.New(), Name: "A", Category: "ai-tools", CreatedAt: base,
	}))
	require.NoError(t, s.Create(ctx, store.Product{
		ID: uuid.New(), Name: "B", Category: "analytics", CreatedAt: base.Add(time.Hour),
	}))

	products, total, err := s.List(ctx, "ai-tools", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	require.Equal(t, "A", products[0].Name)

	products, total, err = s.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, "B", products[0].Name)
}

func TestReviewQueueStore_ApprovalFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewReviewQueueStore()
	item := store.ReviewQueueProduct{
		ID:     uuid.New(),
		Name:   "Scraped Tool",
		Status: store.ReviewPending,
	}
	require.NoError(t, s.Stage(ctx, item))

	reviewedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkReviewed(ctx, item.ID, store.ReviewApproved, reviewedAt))

	got, err := s.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, store.ReviewApproved, got.Status)
	require.NotNil(t, got.ReviewedAt)
	require.Equal(t, reviewedAt, *got.ReviewedAt)

	// A second transition is rejected: only pending rows move.
	require.ErrorIs(t, s.MarkReviewed(ctx, item.ID, store.ReviewRejected, reviewedAt), store.ErrNotFound)
}

func TestReviewQueueStore_ListFiltersByStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewReviewQueueStore()
	pending := store.ReviewQueueProduct{ID: uuid.New(), Name: "Pending", Status: store.ReviewPending}
	approved := store.ReviewQueueProduct{ID: uuid.New(), Name: "Approved", Status: store.ReviewApproved}
	require.NoError(t, s.Stage(ctx, pending))
	require.NoError(t, s.Stage(ctx, approved))

	items, err := s.List(ctx, store.ReviewPending, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Pending", items[0].Name)
}
