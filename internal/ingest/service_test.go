package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/comparee-ai/landing-ingest/internal/storage/memory"
	"github.com/comparee-ai/landing-ingest/internal/store"
)

func newTestID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type serviceFixture struct {
	svc   *Service
	pages *memory.LandingStore
	idem  *memory.IdempotencyStore
	logs  *memory.WebhookLogStore
	now   time.Time
}

func newServiceFixture(t *testing.T, primarySecret string) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		pages: memory.NewLandingStore(),
		idem:  memory.NewIdempotencyStore(),
		logs:  memory.NewWebhookLogStore(),
		now:   time.Date(2025, 6, 2, 15, 4, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Auth:  NewAuthenticator(primarySecret, "", 5*time.Minute),
		Pages: f.pages,
		Idem:  f.idem,
		Logs:  f.logs,
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func aiBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	obj := map[string]any{
		"title":       "Best AI Tools",
		"slug":        "best-ai-tools",
		"contentHtml": "<p>" + strings.Repeat("content ", 20) + "</p>",
		"keywords":    []any{"ai", "tools"},
		"language":    "en",
	}
	for k, v := range overrides {
		if v == nil {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	buf, err := json.Marshal(obj)
	require.NoError(t, err)
	return buf
}

func TestService_UnauthorizedCall(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "secret")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, nil),
		Auth: AuthInput{Secret: "wrong"},
	})
	require.Equal(t, 401, out.Status)
	require.JSONEq(t, `{"error":"Unauthorized webhook call"}`, string(out.Body))
}

func TestService_InvalidJSON(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{Body: []byte(`{broken`)})
	require.Equal(t, 400, out.Status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(out.Body, &body))
	require.Equal(t, "Invalid JSON payload", body["error"])
}

func TestService_AICreate(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{Body: aiBody(t, nil)})
	require.Equal(t, 201, out.Status)
	require.JSONEq(t, `{"status":"ok","url":"/landing/best-ai-tools","slug":"best-ai-tools"}`, string(out.Body))

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)
	require.Equal(t, "Best AI Tools", page.Title)
	require.Equal(t, "html", page.Format)
	require.Equal(t, []string{"ai", "tools"}, page.MetaKeywords)
}

func TestService_AISanitizesContent(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	content := "<p onclick=\"evil()\">" + strings.Repeat("text ", 30) + "</p><script>alert(1)</script>"
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"contentHtml": content}),
	})
	require.Equal(t, 201, out.Status)

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)
	require.NotContains(t, page.ContentHTML, "script")
	require.NotContains(t, page.ContentHTML, "onclick")
	require.Contains(t, page.ContentHTML, "text")
}

func TestService_AIGeneratesSlugFromTitle(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"slug": nil, "title": "Srovnání nástrojů"}),
	})
	require.Equal(t, 201, out.Status)

	var resp AIResponse
	require.NoError(t, json.Unmarshal(out.Body, &resp))
	require.Equal(t, "srovnani-nastroju-021504", resp.Slug)
}

func TestService_AIMetaDescriptionFallback(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	longText := strings.Repeat("z", 200)
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"contentHtml": "<p>" + longText + "</p>"}),
	})
	require.Equal(t, 201, out.Status)

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("z", 160)+"...", page.MetaDescription)
}

func TestService_AIValidationFailure(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"language": "xx"}),
	})
	require.Equal(t, 422, out.Status)

	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &body))
	require.Equal(t, "Validation failed", body.Error)
	require.Contains(t, body.Details, "language must be one of: cs, en, de, fr, es")
}

func TestService_AISlugConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newServiceFixture(t, "")
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.pages.Create(ctx, store.LandingPage{
		ID:        newTestID(t),
		Slug:      "best-ai-tools",
		Title:     "Existing",
		Language:  "en",
		CreatedAt: created,
	}))

	out := f.svc.Ingest(ctx, Request{Body: aiBody(t, nil)})
	require.Equal(t, 409, out.Status)

	var body struct {
		Error           string `json:"error"`
		Details         string `json:"details"`
		ConflictingPage struct {
			Title    string `json:"title"`
			Language string `json:"language"`
		} `json:"conflictingPage"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &body))
	require.Equal(t, "Slug and language conflict", body.Error)
	require.Equal(t, "A landing page with slug 'best-ai-tools' and language 'en' already exists", body.Details)
	require.Equal(t, "Existing", body.ConflictingPage.Title)
}

func TestService_AISameSlugOtherLanguage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newServiceFixture(t, "")
	require.NoError(t, f.pages.Create(ctx, store.LandingPage{
		ID:       newTestID(t),
		Slug:     "best-ai-tools",
		Title:    "Existing",
		Language: "cs",
	}))

	out := f.svc.Ingest(ctx, Request{Body: aiBody(t, nil)})
	require.Equal(t, 201, out.Status)
}

func TestService_LegacyCreate(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	body := []byte(`{
		"title":"Srovnání nástrojů",
		"language":"cs",
		"meta":{"description":"desc","keywords":["k1","k2"]},
		"content_html":"<p>obsah</p>"
	}`)
	out := f.svc.Ingest(context.Background(), Request{Body: body})
	require.Equal(t, 201, out.Status)

	var resp LegacyResponse
	require.NoError(t, json.Unmarshal(out.Body, &resp))
	require.Equal(t, "srovnani-nastroju", resp.Slug)
	require.Equal(t, "srovnani-nastroju", resp.FinalSlug)
	require.Equal(t, "desc", resp.MetaDescription)
	require.Equal(t, []string{"k1", "k2"}, resp.MetaKeywords)
	require.Equal(t, "html", resp.Format)
}

func TestService_LegacySlugCounter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newServiceFixture(t, "")
	require.NoError(t, f.pages.Create(ctx, store.LandingPage{
		ID:       newTestID(t),
		Slug:     "taken",
		Title:    "Existing",
		Language: "cs",
	}))

	body := []byte(`{
		"title":"Ignored",
		"slug":"taken",
		"language":"cs",
		"meta":{"description":"d","keywords":[]},
		"content_html":"<p>x</p>"
	}`)
	out := f.svc.Ingest(ctx, Request{Body: body})
	require.Equal(t, 201, out.Status)

	var resp LegacyResponse
	require.NoError(t, json.Unmarshal(out.Body, &resp))
	require.Equal(t, "taken-1", resp.FinalSlug)
}

func TestService_LegacyValidationFailure(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{Body: []byte(`{"title":"only"}`)})
	require.Equal(t, 400, out.Status)

	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &body))
	require.Equal(t, "Validation failed", body.Error)
	require.Contains(t, body.Details, "content_html is required and must be a string")
}

func TestService_IdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	req := Request{Body: aiBody(t, nil), IdempotencyKey: "key-1"}

	first := f.svc.Ingest(context.Background(), req)
	require.Equal(t, 201, first.Status)
	require.False(t, first.Replayed)

	second := f.svc.Ingest(context.Background(), req)
	require.Equal(t, 201, second.Status)
	require.True(t, second.Replayed)
	require.Equal(t, first.Body, second.Body)
}

func TestService_IdempotencyMismatch(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	first := f.svc.Ingest(context.Background(), Request{
		Body:           aiBody(t, nil),
		IdempotencyKey: "key-1",
	})
	require.Equal(t, 201, first.Status)

	out := f.svc.Ingest(context.Background(), Request{
		Body:           aiBody(t, map[string]any{"title": "Different", "slug": "different"}),
		IdempotencyKey: "key-1",
	})
	require.Equal(t, 409, out.Status)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Body, &body))
	require.Equal(t, "Idempotency Mismatch", body.Error)
}

func TestService_FailedRequestsAreNotSaved(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	bad := f.svc.Ingest(context.Background(), Request{
		Body:           aiBody(t, map[string]any{"language": "xx"}),
		IdempotencyKey: "key-1",
	})
	require.Equal(t, 422, bad.Status)

	// The key stays free for a corrected payload.
	good := f.svc.Ingest(context.Background(), Request{
		Body:           aiBody(t, nil),
		IdempotencyKey: "key-1",
	})
	require.Equal(t, 201, good.Status)
	require.False(t, good.Replayed)
}

func TestService_ScrubsInvisibleCharacters(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"title": "Wa\u200Btermarked\u00AD Title"}),
	})
	require.Equal(t, 201, out.Status)

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)
	require.Equal(t, "Watermarked Title", page.Title)
}

func TestService_WritesAuditRow(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "secret")
	out := f.svc.Ingest(context.Background(), Request{
		Body:      aiBody(t, nil),
		Endpoint:  "/api/landing-pages",
		RequestID: "req-1",
		Auth:      AuthInput{Secret: "secret"},
	})
	require.Equal(t, 201, out.Status)

	require.Eventually(t, func() bool {
		entries, err := f.logs.List(context.Background(), store.WebhookLogFilter{})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := f.logs.List(context.Background(), store.WebhookLogFilter{})
	require.NoError(t, err)
	entry := entries[0]
	require.Equal(t, "/api/landing-pages", entry.Endpoint)
	require.Equal(t, "req-1", entry.RequestID)
	require.Equal(t, 201, entry.StatusCode)
	require.NotNil(t, entry.Slug)
	require.Equal(t, "best-ai-tools", *entry.Slug)
	require.NotNil(t, entry.SecretID)
	require.Equal(t, "primary", *entry.SecretID)
	require.NotNil(t, entry.PayloadHash)
}

func TestService_AuditRecordsErrorMessage(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "secret")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, nil),
		Auth: AuthInput{Secret: "wrong"},
	})
	require.Equal(t, 401, out.Status)

	require.Eventually(t, func() bool {
		entries, err := f.logs.List(context.Background(), store.WebhookLogFilter{})
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	entries, err := f.logs.List(context.Background(), store.WebhookLogFilter{})
	require.NoError(t, err)
	require.NotNil(t, entries[0].Error)
	require.Equal(t, "Unauthorized webhook call", *entries[0].Error)
}

type recordingRefresher struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *recordingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestService_RefreshesSitemapAfterCreate(t *testing.T) {
	t.Parallel()

	refresher := &recordingRefresher{}
	f := newServiceFixture(t, "")
	f.svc.sitemap = refresher

	out := f.svc.Ingest(context.Background(), Request{Body: aiBody(t, nil)})
	require.Equal(t, 201, out.Status)

	require.Eventually(t, func() bool {
		return refresher.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_VisualsEnvelope(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{
			"imageUrl": "https://img.example.com/hero.png",
			"imageAlt": "hero",
		}),
	})
	require.Equal(t, 201, out.Status)

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)

	var env struct {
		HeroImage *struct {
			ImageURL string `json:"imageUrl"`
			ImageAlt string `json:"imageAlt"`
		} `json:"heroImage"`
		ComparisonTables []any `json:"comparisonTables"`
		PricingTables    []any `json:"pricingTables"`
	}
	require.NoError(t, json.Unmarshal(page.Visuals, &env))
	require.NotNil(t, env.HeroImage)
	require.Equal(t, "https://img.example.com/hero.png", env.HeroImage.ImageURL)
	require.NotNil(t, env.ComparisonTables)
	require.Empty(t, env.ComparisonTables)
	require.NotNil(t, env.PricingTables)
}

func TestService_PublishedAtParsing(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, "")
	out := f.svc.Ingest(context.Background(), Request{
		Body: aiBody(t, map[string]any{"publishedAt": "2024-12-24T10:30:00Z"}),
	})
	require.Equal(t, 201, out.Status)

	page, err := f.pages.GetBySlug(context.Background(), "best-ai-tools", "en")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 12, 24, 10, 30, 0, 0, time.UTC), page.PublishedAt)
}
