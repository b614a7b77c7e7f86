package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/metrics"
	"github.com/comparee-ai/landing-ingest/internal/store"
)

const (
	defaultIdempotencyTTL = 30 * 24 * time.Hour
	sideEffectTimeout     = 10 * time.Second
	auditTimeout          = 5 * time.Second
)

var htmlTags = regexp.MustCompile(`<[^>]*>`)

// Refresher regenerates the sitemap after a page is created.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Pinger notifies search engines that the sitemap changed.
type Pinger interface {
	PingAll(ctx context.Context)
}

// PageCreatedEvent is emitted on the event bus for each persisted page.
type PageCreatedEvent struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	Dialect   string    `json:"dialect"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventPublisher emits page-created events for downstream consumers.
type EventPublisher interface {
	PublishPageCreated(ctx context.Context, ev PageCreatedEvent) error
}

// Request is one ingestion call: the raw body plus the headers the pipeline
// consumes. The HTTP layer fills it and writes the Outcome back.
type Request struct {
	Body           []byte
	Endpoint       string
	RequestID      string
	IdempotencyKey string
	Auth           AuthInput
}

// Outcome is the fully rendered response. Body is the exact JSON to write, so
// idempotent replays stay byte-identical.
type Outcome struct {
	Status   int
	Body     []byte
	Replayed bool
}

// Deps are the collaborators the Service needs. Sitemap, Pinger and Events are
// optional; a nil value disables that side effect.
type Deps struct {
	Auth    *Authenticator
	Pages   store.LandingPageRepository
	Idem    store.IdempotencyRepository
	Logs    store.WebhookLogRepository
	Sitemap Refresher
	Pinger  Pinger
	Events  EventPublisher
	Logger  *zap.Logger
	IdemTTL time.Duration
}

// Service runs the ingestion pipeline: authenticate, scrub, detect the payload
// dialect, validate, resolve the slug, persist, then fire the best-effort side
// effects. Every request also leaves one audit row.
type Service struct {
	auth    *Authenticator
	pages   store.LandingPageRepository
	idem    store.IdempotencyRepository
	logs    store.WebhookLogRepository
	sitemap Refresher
	pinger  Pinger
	events  EventPublisher
	logger  *zap.Logger
	idemTTL time.Duration
	now     func() time.Time
	newID   func() uuid.UUID
}

// NewService wires the pipeline. Logger defaults to a no-op, the idempotency
// TTL to 30 days.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := d.IdemTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	metrics.Init()
	return &Service{
		auth:    d.Auth,
		pages:   d.Pages,
		idem:    d.Idem,
		logs:    d.Logs,
		sitemap: d.Sitemap,
		pinger:  d.Pinger,
		events:  d.Events,
		logger:  logger,
		idemTTL: ttl,
		now:     time.Now,
		newID:   uuid.New,
	}
}

// audit accumulates the webhook_logs row while the pipeline runs.
type audit struct {
	slug               *string
	language           *string
	secretID           *string
	signatureTimestamp *string
	signatureValid     *bool
	payloadHash        *string
	errMsg             *string
}

// Ingest processes one POST /api/landing-pages request end to end. It never
// returns an error: every failure mode renders as an Outcome.
func (s *Service) Ingest(ctx context.Context, req Request) Outcome {
	start := s.now()
	var a audit
	if req.Auth.SignatureTimestamp != "" {
		a.signatureTimestamp = &req.Auth.SignatureTimestamp
	}

	out := s.ingest(ctx, req, &a)
	s.writeAudit(req, out.Status, time.Since(start), a)
	return out
}

func (s *Service) ingest(ctx context.Context, req Request, a *audit) Outcome {
	authRes, err := s.auth.Verify(req.Auth)
	a.secretID = authRes.Verification.SecretLabel()
	a.signatureValid = authRes.SignatureValid
	if err != nil {
		metrics.ObserveIngest("unknown", 401)
		return s.fail(a, errorOutcome(401, "Unauthorized webhook call", nil))
	}

	hash := payloadHash(req.Body)
	a.payloadHash = &hash

	if req.IdempotencyKey != "" {
		if out, done := s.checkIdempotency(ctx, req.IdempotencyKey, hash, a); done {
			return out
		}
	}

	body := ScrubInvisible(req.Body)
	dialect, err := DetectDialect(body)
	if err != nil {
		metrics.ObserveIngest("unknown", 400)
		return s.fail(a, errorOutcome(400, "Invalid JSON payload", err.Error()))
	}

	var out Outcome
	switch dialect {
	case DialectAI:
		out = s.ingestAI(ctx, body, a)
	default:
		out = s.ingestLegacy(ctx, body, a)
	}
	metrics.ObserveIngest(string(dialect), out.Status)

	if out.Status == 201 && req.IdempotencyKey != "" {
		s.saveIdempotency(ctx, req.IdempotencyKey, hash, out)
	}
	return out
}

func (s *Service) ingestAI(ctx context.Context, body []byte, a *audit) Outcome {
	obj, err := ExtractAIObject(body)
	if err != nil {
		return s.fail(a, errorOutcome(400, "Invalid JSON payload", err.Error()))
	}

	if !truthy(obj["slug"]) {
		title, _ := obj["title"].(string)
		obj["slug"] = GenerateSlug(title, s.now())
	}

	validation := ValidateAI(obj)
	if !validation.Valid() {
		return s.fail(a, s.respond(422, validationResponse{
			Error:    "Validation failed",
			Details:  validation.Errors,
			Warnings: validation.Warnings,
		}))
	}
	if len(validation.Warnings) > 0 {
		s.logger.Info("payload validation warnings", zap.Strings("warnings", validation.Warnings))
	}

	payload, err := PayloadFromObject(obj)
	if err != nil {
		return s.fail(a, internalOutcome("Failed to create landing page", err, s.now()))
	}
	a.slug = &payload.Slug
	a.language = &payload.Language

	existing, err := s.pages.GetBySlug(ctx, payload.Slug, payload.Language)
	switch {
	case err == nil:
		return s.fail(a, s.respond(409, conflictResponse{
			Error: "Slug and language conflict",
			Details: fmt.Sprintf("A landing page with slug '%s' and language '%s' already exists",
				payload.Slug, payload.Language),
			ConflictingPage: &conflictingPage{
				Title:     existing.Title,
				Language:  existing.Language,
				CreatedAt: existing.CreatedAt,
			},
		}))
	case !errors.Is(err, store.ErrNotFound):
		return s.fail(a, internalOutcome("Failed to create landing page", err, s.now()))
	}

	now := s.now()
	publishedAt := now
	if payload.PublishedAt != "" {
		if t, parseErr := time.Parse(time.RFC3339, payload.PublishedAt); parseErr == nil {
			publishedAt = t
		}
	}

	visuals, err := buildVisuals(payload)
	if err != nil {
		return s.fail(a, internalOutcome("Failed to create landing page", err, now))
	}

	page := store.LandingPage{
		ID:              s.newID(),
		Slug:            payload.Slug,
		Title:           payload.Title,
		Summary:         optional(payload.Summary),
		Language:        payload.Language,
		ContentHTML:     SanitizeHTML(payload.ContentHTML),
		ImageURL:        optional(payload.ImageURL),
		Category:        optional(payload.Category),
		MetaDescription: deriveMetaDescription(payload.Summary, payload.ContentHTML),
		MetaKeywords:    payload.Keywords,
		Visuals:         visuals,
		FAQ:             marshalFAQ(payload.FAQ),
		Format:          "html",
		PublishedAt:     publishedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.pages.Create(ctx, page); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race to a concurrent creation; the constraint decides.
			return s.fail(a, s.respond(409, raceConflictResponse{
				Error:   "Slug and language conflict",
				Details: "A landing page with this slug and language combination already exists",
				Field:   []string{"slug", "language"},
			}))
		}
		return s.fail(a, internalOutcome("Failed to create landing page", err, now))
	}

	metrics.ObservePageCreated(page.Language)
	go s.notifyCreated(page, DialectAI)

	return s.respond(201, AIResponse{
		Status: "ok",
		URL:    "/landing/" + page.Slug,
		Slug:   page.Slug,
	})
}

func (s *Service) ingestLegacy(ctx context.Context, body []byte, a *audit) Outcome {
	var payload LegacyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return s.fail(a, errorOutcome(400, "Invalid JSON payload", err.Error()))
	}

	validation := ValidateLegacy(payload)
	if !validation.Valid() {
		return s.fail(a, s.respond(400, validationResponse{
			Error:   "Validation failed",
			Details: validation.Errors,
		}))
	}
	a.language = &payload.Language

	base := payload.Slug
	if base == "" {
		base = payload.Title
	}
	slug, err := ResolveUniqueSlug(ctx, s.pages, NormalizeSlug(base), payload.Language)
	if err != nil {
		return s.fail(a, internalOutcome("Failed to create landing page", err, s.now()))
	}
	a.slug = &slug

	now := s.now()
	format := payload.Format
	if format == "" {
		format = "html"
	}
	page := store.LandingPage{
		ID:              s.newID(),
		Slug:            slug,
		Title:           payload.Title,
		Language:        payload.Language,
		ContentHTML:     SanitizeHTML(payload.ContentHTML),
		MetaDescription: payload.Meta.Description,
		MetaKeywords:    payload.Meta.Keywords,
		SchemaOrg:       optional(payload.SchemaOrg),
		Visuals:         payload.Visuals,
		FAQ:             payload.FAQ,
		Format:          format,
		PublishedAt:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.pages.Create(ctx, page); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return s.fail(a, errorOutcome(409, "Slug conflict",
				"A landing page with this slug already exists"))
		}
		return s.fail(a, internalOutcome("Failed to create landing page", err, now))
	}

	metrics.ObservePageCreated(page.Language)
	go s.notifyCreated(page, DialectLegacy)

	resp := LegacyResponse{
		ID:              page.ID.String(),
		Slug:            page.Slug,
		Title:           page.Title,
		Language:        page.Language,
		ContentHTML:     page.ContentHTML,
		MetaDescription: page.MetaDescription,
		MetaKeywords:    page.MetaKeywords,
		SchemaOrg:       payload.SchemaOrg,
		Visuals:         page.Visuals,
		FAQ:             page.FAQ,
		Format:          page.Format,
		PublishedAt:     page.PublishedAt,
		CreatedAt:       page.CreatedAt,
		UpdatedAt:       page.UpdatedAt,
		FinalSlug:       page.Slug,
	}
	return s.respond(201, resp)
}

// checkIdempotency replays a stored response or rejects a key reuse with a
// different payload. done=false means the pipeline should proceed.
func (s *Service) checkIdempotency(ctx context.Context, key, hash string, a *audit) (Outcome, bool) {
	rec, err := s.idem.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			// Degrade to non-idempotent rather than failing the request.
			s.logger.Warn("idempotency lookup failed", zap.Error(err))
		}
		return Outcome{}, false
	}
	if rec.PayloadHash != hash {
		return s.fail(a, errorOutcome(409, "Idempotency Mismatch",
			"Idempotency-Key was reused with a different payload")), true
	}
	metrics.ObserveReplay()
	return Outcome{Status: rec.StatusCode, Body: rec.Response, Replayed: true}, true
}

func (s *Service) saveIdempotency(ctx context.Context, key, hash string, out Outcome) {
	now := s.now()
	rec := store.IdempotencyRecord{
		Key:         key,
		PayloadHash: hash,
		StatusCode:  out.Status,
		Response:    out.Body,
		ExpiresAt:   now.Add(s.idemTTL),
		CreatedAt:   now,
	}
	if err := s.idem.Put(ctx, rec); err != nil && !errors.Is(err, store.ErrConflict) {
		s.logger.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
	}

	go func() {
		gcCtx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if _, err := s.idem.DeleteExpired(gcCtx, s.now()); err != nil {
			s.logger.Warn("idempotency gc failed", zap.Error(err))
		}
	}()
}

// notifyCreated runs the fire-and-forget side effects. Failures are logged and
// dropped; nothing here may fail the request that triggered it.
func (s *Service) notifyCreated(page store.LandingPage, dialect Dialect) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if s.sitemap != nil {
		if err := s.sitemap.Refresh(ctx); err != nil {
			metrics.ObserveSideEffectFailure("sitemap")
			s.logger.Warn("sitemap refresh failed", zap.Error(err))
		}
	}
	if s.pinger != nil {
		s.pinger.PingAll(ctx)
	}
	if s.events != nil {
		ev := PageCreatedEvent{
			ID:        page.ID.String(),
			Slug:      page.Slug,
			Title:     page.Title,
			Language:  page.Language,
			Dialect:   string(dialect),
			CreatedAt: page.CreatedAt,
		}
		if err := s.events.PublishPageCreated(ctx, ev); err != nil {
			metrics.ObserveSideEffectFailure("publish")
			s.logger.Warn("page-created publish failed", zap.String("slug", page.Slug), zap.Error(err))
		}
	}
}

func (s *Service) writeAudit(req Request, status int, elapsed time.Duration, a audit) {
	if s.logs == nil {
		return
	}
	entry := store.WebhookLog{
		ID:                 s.newID(),
		CreatedAt:          s.now(),
		Endpoint:           req.Endpoint,
		RequestID:          req.RequestID,
		StatusCode:         status,
		DurationMs:         elapsed.Milliseconds(),
		IdempotencyKey:     optional(req.IdempotencyKey),
		Slug:               a.slug,
		Language:           a.language,
		SecretID:           a.secretID,
		SignatureTimestamp: a.signatureTimestamp,
		SignatureValid:     a.signatureValid,
		PayloadHash:        a.payloadHash,
		Error:              a.errMsg,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := s.logs.Insert(ctx, entry); err != nil {
			s.logger.Warn("webhook audit insert failed", zap.Error(err))
		}
	}()
}

// fail records the outcome's error message for the audit row and passes the
// outcome through.
func (s *Service) fail(a *audit, out Outcome) Outcome {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(out.Body, &body); err == nil && body.Error != "" {
		a.errMsg = &body.Error
	}
	return out
}

func (s *Service) respond(status int, payload any) Outcome {
	buf, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("response marshal failed", zap.Error(err))
		return Outcome{Status: 500, Body: []byte(`{"error":"Failed to process request"}`)}
	}
	return Outcome{Status: status, Body: buf}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type validationResponse struct {
	Error    string   `json:"error"`
	Details  []string `json:"details"`
	Warnings []string `json:"warnings,omitempty"`
}

type conflictingPage struct {
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
}

type conflictResponse struct {
	Error           string           `json:"error"`
	Details         string           `json:"details"`
	ConflictingPage *conflictingPage `json:"conflictingPage,omitempty"`
}

type raceConflictResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details"`
	Field   []string `json:"field"`
}

type internalResponse struct {
	Error     string    `json:"error"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

func errorOutcome(status int, msg string, details any) Outcome {
	buf, _ := json.Marshal(errorResponse{Error: msg, Details: details})
	return Outcome{Status: status, Body: buf}
}

func internalOutcome(msg string, err error, now time.Time) Outcome {
	buf, _ := json.Marshal(internalResponse{
		Error:     msg,
		Details:   err.Error(),
		Timestamp: now,
	})
	return Outcome{Status: 500, Body: buf}
}

func payloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// deriveMetaDescription falls back from the summary to the first 160 runes of
// the tag-stripped content.
func deriveMetaDescription(summary, contentHTML string) string {
	if summary != "" {
		return summary
	}
	stripped := []rune(htmlTags.ReplaceAllString(contentHTML, ""))
	if len(stripped) > 160 {
		stripped = stripped[:160]
	}
	return string(stripped) + "..."
}

type heroImage struct {
	ImageURL        string  `json:"imageUrl"`
	ImageAlt        string  `json:"imageAlt,omitempty"`
	ImageSourceName string  `json:"imageSourceName,omitempty"`
	ImageSourceURL  string  `json:"imageSourceUrl,omitempty"`
	ImageLicense    string  `json:"imageLicense,omitempty"`
	ImageWidth      float64 `json:"imageWidth,omitempty"`
	ImageHeight     float64 `json:"imageHeight,omitempty"`
	ImageType       string  `json:"imageType,omitempty"`
}

type visualsEnvelope struct {
	HeroImage        *heroImage  `json:"heroImage,omitempty"`
	ComparisonTables []TableData `json:"comparisonTables"`
	PricingTables    []TableData `json:"pricingTables"`
	FeatureTables    []TableData `json:"featureTables"`
	DataTables       []TableData `json:"dataTables"`
}

// buildVisuals packs the hero image metadata and the structured tables into
// the visuals JSONB column. Table slices serialize as [] rather than null.
func buildVisuals(p AIPayload) (json.RawMessage, error) {
	env := visualsEnvelope{
		ComparisonTables: coalesceTables(p.ComparisonTables),
		PricingTables:    coalesceTables(p.PricingTables),
		FeatureTables:    coalesceTables(p.FeatureTables),
		DataTables:       coalesceTables(p.DataTables),
	}
	if p.ImageURL != "" {
		env.HeroImage = &heroImage{
			ImageURL:        p.ImageURL,
			ImageAlt:        p.ImageAlt,
			ImageSourceName: p.ImageSourceName,
			ImageSourceURL:  p.ImageSourceURL,
			ImageLicense:    p.ImageLicense,
			ImageWidth:      p.ImageWidth,
			ImageHeight:     p.ImageHeight,
			ImageType:       p.ImageType,
		}
	}
	buf, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal visuals: %w", err)
	}
	return buf, nil
}

func coalesceTables(in []TableData) []TableData {
	if in == nil {
		return []TableData{}
	}
	return in
}

func marshalFAQ(items []FAQItem) json.RawMessage {
	if len(items) == 0 {
		return nil
	}
	buf, err := json.Marshal(items)
	if err != nil {
		return nil
	}
	return buf
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
