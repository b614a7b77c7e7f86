package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/ingest"
)

type dbHealth struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type ingestHealthResponse struct {
	Status           string    `json:"status"`
	Time             time.Time `json:"time"`
	BaseURLSet       bool      `json:"baseUrlSet"`
	DB               dbHealth  `json:"db"`
	IdempotencyTable bool      `json:"idempotencyTable"`
	SecretID         *string   `json:"secretId"`
}

// ingestHealth is the webhook producer's probe: it checks the same secrets the
// ingestion endpoint enforces, then reports database and idempotency-table
// reachability.
func (s *Server) ingestHealth(w http.ResponseWriter, r *http.Request) {
	authRes, err := s.auth.Verify(ingest.AuthInput{
		Secret:   r.Header.Get("x-webhook-secret"),
		SecretID: r.Header.Get("x-secret-id"),
	})
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized health check")
		return
	}

	resp := ingestHealthResponse{
		Status:     "ok",
		Time:       time.Now(),
		BaseURLSet: s.cfg.Server.BaseURL != "",
		SecretID:   authRes.Verification.SecretLabel(),
	}

	if err := s.pages.Ping(r.Context()); err != nil {
		resp.DB = dbHealth{Connected: false, Error: err.Error()}
	} else {
		resp.DB = dbHealth{Connected: true}
	}

	exists, err := s.idem.TableExists(r.Context())
	if err != nil {
		s.logger.Warn("idempotency table check failed", zap.Error(err))
	}
	resp.IdempotencyTable = exists

	writeJSON(w, http.StatusOK, resp)
}
