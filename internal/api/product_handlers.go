package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

var validate = validator.New()

type productRequest struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Price         float64         `json:"price" validate:"gte=0"`
	Category      string          `json:"category"`
	Tags          []string        `json:"tags"`
	Advantages    []string        `json:"advantages"`
	Disadvantages []string        `json:"disadvantages"`
	PricingInfo   json.RawMessage `json:"pricingInfo"`
	ExternalURL   string          `json:"externalUrl" validate:"omitempty,url"`
	HasTrial      bool            `json:"hasTrial"`
	ImageURL      *string         `json:"imageUrl" validate:"omitempty,url"`
}

type productDTO struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Price               float64         `json:"price"`
	Category            string          `json:"category"`
	Tags                []string        `json:"tags"`
	Advantages          []string        `json:"advantages"`
	Disadvantages       []string        `json:"disadvantages"`
	PricingInfo         json.RawMessage `json:"pricingInfo,omitempty"`
	ExternalURL         string          `json:"externalUrl"`
	HasTrial            bool            `json:"hasTrial"`
	ImageURL            *string         `json:"imageUrl,omitempty"`
	PendingImageURL     *string         `json:"pendingImageUrl,omitempty"`
	ImageApprovalStatus string          `json:"imageApprovalStatus,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func toProductDTO(p store.Product) productDTO {
	return productDTO{
		ID:                  p.ID.String(),
		Name:                p.Name,
		Description:         p.Description,
		Price:               p.Price,
		Category:            p.Category,
		Tags:                p.Tags,
		Advantages:          p.Advantages,
		Disadvantages:       p.Disadvantages,
		PricingInfo:         p.PricingInfo,
		ExternalURL:         p.ExternalURL,
		HasTrial:            p.HasTrial,
		ImageURL:            p.ImageURL,
		PendingImageURL:     p.PendingImageURL,
		ImageApprovalStatus: p.ImageApprovalStatus,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// validationMessages flattens validator errors into readable strings.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required", fe.Field()))
		case "url":
			out = append(out, fmt.Sprintf("%s must be a valid URL", fe.Field()))
		case "gte":
			out = append(out, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return out
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": validationMessages(err),
		})
		return
	}

	now := time.Now()
	product := store.Product{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		Tags:          req.Tags,
		Advantages:    req.Advantages,
		Disadvantages: req.Disadvantages,
		PricingInfo:   req.PricingInfo,
		ExternalURL:   req.ExternalURL,
		HasTrial:      req.HasTrial,
		ImageURL:      req.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(r.Context(), product); err != nil {
		s.logger.Error("create product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": toProductDTO(product)})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	page := positiveQueryInt(r, "page", 1)
	pageSize := positiveQueryInt(r, "pageSize", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	category := r.URL.Query().Get("category")

	rows, total, err := s.products.List(r.Context(), category, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch products")
		return
	}
	dtos := make([]productDTO, 0, len(rows))
	for _, p := range rows {
		dtos = append(dtos, toProductDTO(p))
	}
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": dtos,
		"pagination": paginationDTO{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := s.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.Error("get product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductDTO(product)})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": validationMessages(err),
		})
		return
	}

	existing, err := s.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.Error("load product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	updated := existing
	updated.Name = req.Name
	updated.Description = req.Description
	updated.Price = req.Price
	updated.Category = req.Category
	updated.Tags = req.Tags
	updated.Advantages = req.Advantages
	updated.Disadvantages = req.Disadvantages
	updated.PricingInfo = req.PricingInfo
	updated.ExternalURL = req.ExternalURL
	updated.HasTrial = req.HasTrial
	if req.ImageURL != nil {
		updated.ImageURL = req.ImageURL
	}
	updated.UpdatedAt = time.Now()

	if err := s.products.Update(r.Context(), updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.Error("update product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductDTO(updated)})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		s.logger.Error("delete product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type candidateDTO struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	Advantages    []string   `json:"advantages"`
	Disadvantages []string   `json:"disadvantages"`
	ExternalURL   string     `json:"externalUrl"`
	HasTrial      bool       `json:"hasTrial"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	Status        string     `json:"status"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toCandidateDTO(c store.ReviewQueueProduct) candidateDTO {
	return candidateDTO{
		ID:            c.ID.String(),
		Name:          c.Name,
		Description:   c.Description,
		Price:         c.Price,
		Category:      c.Category,
		Tags:          c.Tags,
		Advantages:    c.Advantages,
		Disadvantages: c.Disadvantages,
		ExternalURL:   c.ExternalURL,
		HasTrial:      c.HasTrial,
		ImageURL:      c.ImageURL,
		Status:        c.Status,
		ReviewedAt:    c.ReviewedAt,
		CreatedAt:     c.CreatedAt,
	}
}

func (s *Server) listReviewQueue(w http.ResponseWriter, r *http.Request) {
	page := positiveQueryInt(r, "page", 1)
	pageSize := positiveQueryInt(r, "pageSize", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.ReviewPending
	}

	rows, err := s.queue.List(r.Context(), status, pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error("list review queue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch review queue")
		return
	}
	dtos := make([]candidateDTO, 0, len(rows))
	for _, c := range rows {
		dtos = append(dtos, toCandidateDTO(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": dtos})
}

// approveCandidate promotes a staged candidate to a full product and marks the
// staging row approved.
func (s *Server) approveCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	candidate, err := s.queue.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Candidate not found")
			return
		}
		s.logger.Error("load candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to approve candidate")
		return
	}
	if candidate.Status != store.ReviewPending {
		writeError(w, http.StatusConflict, "Candidate has already been reviewed")
		return
	}

	now := time.Now()
	product := store.Product{
		ID:            uuid.New(),
		Name:          candidate.Name,
		Description:   candidate.Description,
		Price:         candidate.Price,
		Category:      candidate.Category,
		Tags:          candidate.Tags,
		Advantages:    candidate.Advantages,
		Disadvantages: candidate.Disadvantages,
		ExternalURL:   candidate.ExternalURL,
		HasTrial:      candidate.HasTrial,
		ImageURL:      candidate.ImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(r.Context(), product); err != nil {
		s.logger.Error("promote candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to approve candidate")
		return
	}
	if err := s.queue.MarkReviewed(r.Context(), id, store.ReviewApproved, now); err != nil {
		s.logger.Error("mark candidate approved failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to approve candidate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": toProductDTO(product),
	})
}

func (s *Server) rejectCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parsePageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.queue.MarkReviewed(r.Context(), id, store.ReviewRejected, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Candidate not found")
			return
		}
		s.logger.Error("reject candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reject candidate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
