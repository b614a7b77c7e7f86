package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

func TestCreateProduct_ValidationFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.request(t, http.MethodPost, "/api/products",
		[]byte(`{"price":-1,"externalUrl":"not-a-url"}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "Validation failed", body["error"])
	details := body["details"].([]any)
	require.Contains(t, details, "Name is required")
	require.Contains(t, details, "Price must be at least 0")
	require.Contains(t, details, "ExternalURL must be a valid URL")
}

func TestProduct_CRUDViaAPI(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := f.request(t, http.MethodPost, "/api/products", []byte(`{
		"name": "CompareBot",
		"description": "AI comparison assistant",
		"price": 19.99,
		"category": "ai-tools",
		"tags": ["ai"],
		"externalUrl": "https://example.com/comparebot",
		"hasTrial": true
	}`), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeBody(t, rec)["product"].(map[string]any)
	require.Equal(t, "CompareBot", created["name"])
	id := created["id"].(string)
	require.NotEmpty(t, id)

	rec = f.request(t, http.MethodGet, "/api/products/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodPut, "/api/products/"+id, []byte(`{
		"name": "CompareBot Pro",
		"price": 29.99
	}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)["product"].(map[string]any)
	require.Equal(t, "CompareBot Pro", updated["name"])
	require.Equal(t, 29.99, updated["price"])

	rec = f.request(t, http.MethodDelete, "/api/products/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodGet, "/api/products/"+id, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
}

func TestListProducts_FiltersByCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	now := time.Now()
	require.NoError(t, f.products.Create(context.Background(), store.Product{
		ID: uuid.New(), Name: "A", Category: "ai-tools", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, f.products.Create(context.Background(), store.Product{
		ID: uuid.New(), Name: "B", Category: "analytics", CreatedAt: now, UpdatedAt: now,
	}))

	rec := f.request(t, http.MethodGet, "/api/products?category=ai-tools", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	products := body["products"].([]any)
	require.Len(t, products, 1)
	require.Equal(t, "A", products[0].(map[string]any)["name"])
	pagination := body["pagination"].(map[string]any)
	require.Equal(t, float64(1), pagination["total"])
}

func stageCandidate(t *testing.T, f *fixture) store.ReviewQueueProduct {
	t.Helper()
	candidate := store.ReviewQueueProduct{
		ID:          uuid.New(),
		Name:        "Scraped Tool",
		Description: "found by the crawler",
		Price:       9.99,
		Category:    "ai-tools",
		ExternalURL: "https://example.com/tool",
		Status:      store.ReviewPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.queue.Stage(context.Background(), candidate))
	return candidate
}

func TestListReviewQueue_DefaultsToPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := stageCandidate(t, f)
	reviewed := stageCandidate(t, f)
	require.NoError(t, f.queue.MarkReviewed(context.Background(), reviewed.ID, store.ReviewRejected, time.Now()))

	rec := f.request(t, http.MethodGet, "/api/review-queue", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	candidates := decodeBody(t, rec)["candidates"].([]any)
	require.Len(t, candidates, 1)
	require.Equal(t, candidate.ID.String(), candidates[0].(map[string]any)["id"])
}

func TestApproveCandidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := stageCandidate(t, f)

	rec := f.request(t, http.MethodPost, "/api/review-queue/"+candidate.ID.String()+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	product := body["product"].(map[string]any)
	require.Equal(t, "Scraped Tool", product["name"])

	// The staged row is marked approved and a real product exists.
	item, err := f.queue.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	require.Equal(t, store.ReviewApproved, item.Status)

	productID, err := uuid.Parse(product["id"].(string))
	require.NoError(t, err)
	_, err = f.products.GetByID(context.Background(), productID)
	require.NoError(t, err)

	// Approving the same candidate again is rejected.
	rec = f.request(t, http.MethodPost, "/api/review-queue/"+candidate.ID.String()+"/approve", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"Candidate has already been reviewed"}`, rec.Body.String())
}

func TestRejectCandidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := stageCandidate(t, f)

	rec := f.request(t, http.MethodPost, "/api/review-queue/"+candidate.ID.String()+"/reject", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())

	item, err := f.queue.GetByID(context.Background(), candidate.ID)
	require.NoError(t, err)
	require.Equal(t, store.ReviewRejected, item.Status)

	rec = f.request(t, http.MethodPost, "/api/review-queue/"+uuid.NewString()+"/reject", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Candidate not found"}`, rec.Body.String())
}
