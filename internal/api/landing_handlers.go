package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/ingest"
	"github.com/comparee-ai/landing-ingest/internal/ping"
	"github.com/comparee-ai/landing-ingest/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 4 << 20
)

func (s *Server) createLandingPage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	out := s.service.Ingest(r.Context(), ingest.Request{
		Body:           body,
		Endpoint:       "/api/landing-pages",
		RequestID:      RequestID(r.Context()),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Auth: ingest.AuthInput{
			Secret:             r.Header.Get("x-webhook-secret"),
			SecretID:           r.Header.Get("x-secret-id"),
			Signature:          r.Header.Get("x-signature"),
			SignatureTimestamp: r.Header.Get("x-signature-timestamp"),
			Body:               body,
		},
	})
	if out.Replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}
	writeRawJSON(w, out.Status, out.Body)
}

type pageSummaryDTO struct {
	ID              string                 `json:"id"`
	Slug            string                 `json:"slug"`
	Title           string                 `json:"title"`
	Language        string                 `json:"language"`
	MetaDescription string                 `json:"metaDescription"`
	Format          string                 `json:"format"`
	PublishedAt     time.Time              `json:"publishedAt"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	PingStatus      map[string]ping.Result `json:"pingStatus,omitempty"`
}

type paginationDTO struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func (s *Server) listLandingPages(w http.ResponseWriter, r *http.Request) {
	page := positiveQueryInt(r, "page", 1)
	pageSize := positiveQueryInt(r, "pageSize", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	rows, total, err := s.pages.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("list landing pages failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch landing pages")
		return
	}

	// Ping results are global to the sitemap; each row carries the latest
	// best-effort snapshot.
	var pingStatus map[string]ping.Result
	if s.pinger != nil {
		pingStatus = s.pinger.Status()
	}

	dtos := make([]pageSummaryDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, pageSummaryDTO{
			ID:              row.ID.String(),
			Slug:            row.Slug,
			Title:           row.Title,
			Language:        row.Language,
			MetaDescription: row.MetaDescription,
			Format:          row.Format,
			PublishedAt:     row.PublishedAt,
			CreatedAt:       row.CreatedAt,
			UpdatedAt:       row.UpdatedAt,
			PingStatus:      pingStatus,
		})
	}

	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"landingPages": dtos,
		"pagination": paginationDTO{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

type landingPageDTO struct {
	ID              string          `json:"id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Summary         *string         `json:"summary,omitempty"`
	Language        string          `json:"language"`
	ContentHTML     string          `json:"contentHtml"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	Category        *string         `json:"category,omitempty"`
	MetaDescription string          `json:"metaDescription"`
	MetaKeywords    []string        `json:"metaKeywords"`
	SchemaOrg       *string         `json:"schemaOrg,omitempty"`
	Visuals         json.RawMessage `json:"visuals,omitempty"`
	FAQ             json.RawMessage `json:"faq,omitempty"`
	Format          string          `json:"format"`
	PublishedAt     time.Time       `json:"publishedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toLandingPageDTO(p store.LandingPage) landingPageDTO {
	return landingPageDTO{
		ID:              p.ID.String(),
		Slug:            p.Slug,
		Title:           p.Title,
		Summary:         p.Summary,
		Language:        p.Language,
		ContentHTML:     p.ContentHTML,
		ImageURL:        p.ImageURL,
		Category:        p.Category,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		SchemaOrg:       p.SchemaOrg,
		Visuals:         p.Visuals,
		FAQ:             p.FAQ,
		Format:          p.Format,
		PublishedAt:     p.PublishedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (s *Server) getLandingPage(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.pages.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Landing page not found")
			return
		}
		s.logger.Error("get landing page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch landing page")
		return
	}
	writeJSON(w, http.StatusOK, toLandingPageDTO(page))
}

type updatePageRequest struct {
	Title           string          `json:"title"`
	Summary         *string         `json:"summary"`
	ContentHTML     string          `json:"contentHtml"`
	Slug            string          `json:"slug"`
	Language        string          `json:"language"`
	MetaDescription string          `json:"metaDescription"`
	Keywords        []string        `json:"keywords"`
	FAQ             json.RawMessage `json:"faq"`
	Visuals         json.RawMessage `json:"visuals"`
}

func (s *Server) updateLandingPage(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req updatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title == "" || req.ContentHTML == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	existing, err := s.pages.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Landing page not found")
			return
		}
		s.logger.Error("load landing page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update landing page")
		return
	}

	slug := existing.Slug
	if req.Slug != "" {
		slug = req.Slug
	}
	language := existing.Language
	if req.Language != "" {
		language = req.Language
	}

	if slug != existing.Slug || language != existing.Language {
		holder, err := s.pages.FindBySlugExcluding(r.Context(), slug, language, id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": "A landing page with slug '" + slug + "' and language '" + language + "' already exists",
				"conflictingPage": map[string]any{
					"id":        holder.ID.String(),
					"title":     holder.Title,
					"language":  holder.Language,
					"createdAt": holder.CreatedAt,
				},
			})
			return
		case !errors.Is(err, store.ErrNotFound):
			s.logger.Error("slug conflict check failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to update landing page")
			return
		}
	}

	updated := existing
	updated.Title = req.Title
	updated.Summary = req.Summary
	updated.ContentHTML = req.ContentHTML
	updated.Slug = slug
	updated.Language = language
	updated.MetaDescription = resolveMetaDescription(req)
	if req.Keywords != nil {
		updated.MetaKeywords = req.Keywords
	}
	if req.FAQ != nil {
		updated.FAQ = req.FAQ
	}
	if req.Visuals != nil {
		updated.Visuals = req.Visuals
	}
	updated.UpdatedAt = time.Now()

	if err := s.pages.Update(r.Context(), updated); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "A landing page with this slug and language combination already exists")
			return
		}
		s.logger.Error("update landing page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update landing page")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Landing page updated successfully",
		"landingPage": toLandingPageDTO(updated),
		"url":         "/" + updated.Language + "/landing/" + updated.Slug,
	})
}

func resolveMetaDescription(req updatePageRequest) string {
	if req.MetaDescription != "" {
		return req.MetaDescription
	}
	if req.Summary != nil && *req.Summary != "" {
		return *req.Summary
	}
	return req.Title + " - Comparee.ai"
}

func (s *Server) deleteLandingPage(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := s.pages.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Landing page not found")
			return
		}
		s.logger.Error("load landing page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete landing page")
		return
	}
	if err := s.pages.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Landing page not found")
			return
		}
		s.logger.Error("delete landing page failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete landing page")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Landing page deleted successfully",
		"deletedPage": map[string]string{
			"id":       page.ID.String(),
			"title":    page.Title,
			"slug":     page.Slug,
			"language": page.Language,
		},
	})
}

func parsePageID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return uuid.UUID{}, errors.New("id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid id")
	}
	return id, nil
}

func positiveQueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}
