package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

const (
	defaultListLimit   = 200
	maxListLimit       = 1000
	defaultExportLimit = 5000
	maxExportLimit     = 20000
)

type ingestLogDTO struct {
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"createdAt"`
	Endpoint           string    `json:"endpoint"`
	RequestID          string    `json:"requestId"`
	StatusCode         int       `json:"statusCode"`
	DurationMs         int64     `json:"durationMs"`
	IdempotencyKey     *string   `json:"idempotencyKey,omitempty"`
	Slug               *string   `json:"slug,omitempty"`
	Language           *string   `json:"language,omitempty"`
	SecretID           *string   `json:"secretId,omitempty"`
	SignatureTimestamp *string   `json:"signatureTimestamp,omitempty"`
	SignatureValid     *bool     `json:"signatureValid,omitempty"`
	PayloadHash        *string   `json:"payloadHash,omitempty"`
	Error              *string   `json:"error,omitempty"`
}

func logFilter(r *http.Request, defaultLimit, maxLimit int) store.WebhookLogFilter {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	var statusCode int
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		if code, err := strconv.Atoi(raw); err == nil {
			statusCode = code
		}
	}
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			limit = val
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return store.WebhookLogFilter{Query: q, StatusCode: statusCode, Limit: limit}
}

func (s *Server) listIngestLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.logs.List(r.Context(), logFilter(r, defaultListLimit, maxListLimit))
	if err != nil {
		s.logger.Error("list ingest logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch ingest logs")
		return
	}
	dtos := make([]ingestLogDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, ingestLogDTO{
			ID:                 e.ID.String(),
			CreatedAt:          e.CreatedAt,
			Endpoint:           e.Endpoint,
			RequestID:          e.RequestID,
			StatusCode:         e.StatusCode,
			DurationMs:         e.DurationMs,
			IdempotencyKey:     e.IdempotencyKey,
			Slug:               e.Slug,
			Language:           e.Language,
			SecretID:           e.SecretID,
			SignatureTimestamp: e.SignatureTimestamp,
			SignatureValid:     e.SignatureValid,
			PayloadHash:        e.PayloadHash,
			Error:              e.Error,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": dtos})
}

var exportHeader = []string{
	"createdAt", "statusCode", "endpoint", "requestId", "idempotencyKey",
	"slug", "language", "secretId", "signatureTimestamp", "signatureValid",
	"payloadHash", "error",
}

func (s *Server) exportIngestLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.logs.List(r.Context(), logFilter(r, defaultExportLimit, maxExportLimit))
	if err != nil {
		s.logger.Error("export ingest logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, strings.Join(exportHeader, ","))
	for _, e := range entries {
		fields := []string{
			csvEscape(e.CreatedAt.UTC().Format(time.RFC3339)),
			csvEscape(strconv.Itoa(e.StatusCode)),
			csvEscape(e.Endpoint),
			csvEscape(e.RequestID),
			csvEscape(strDeref(e.IdempotencyKey)),
			csvEscape(strDeref(e.Slug)),
			csvEscape(strDeref(e.Language)),
			csvEscape(strDeref(e.SecretID)),
			csvEscape(strDeref(e.SignatureTimestamp)),
			csvEscape(boolDeref(e.SignatureValid)),
			csvEscape(strDeref(e.PayloadHash)),
			csvEscape(strDeref(e.Error)),
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	filename := "ingest-logs-" + time.Now().UTC().Format("2006-01-02-15-04-05") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write([]byte(strings.Join(lines, "\n"))); err != nil {
		s.logger.Error("write csv failed", zap.Error(err))
	}
}

// csvEscape quotes a field when it contains a quote, comma or line break.
func csvEscape(value string) string {
	if strings.ContainsAny(value, "\",\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolDeref(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
