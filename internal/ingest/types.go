// Package ingest implements the landing-page webhook pipeline: secret and
// signature verification, payload dialect detection, validation, slug
// resolution, idempotent persistence and the fire-and-forget side effects.
package ingest

import (
	"encoding/json"
	"time"
)

// Dialect identifies which payload schema a request uses.
type Dialect string

const (
	// DialectAI is the newer schema (contentHtml/keywords/language).
	DialectAI Dialect = "ai"
	// DialectLegacy is the older schema (content_html/meta.{description,keywords}).
	DialectLegacy Dialect = "legacy"
)

// Locales accepted in the language field.
var Locales = []string{"cs", "en", "de", "fr", "es"}

// IsValidLocale reports whether lang is one of the supported locales.
func IsValidLocale(lang string) bool {
	for _, l := range Locales {
		if l == lang {
			return true
		}
	}
	return false
}

// FAQItem is one question/answer pair attached to a page.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TableRow is one row of a structured content table.
type TableRow struct {
	Feature   string            `json:"feature"`
	Values    []json.RawMessage `json:"values"`
	Highlight []int             `json:"highlight,omitempty"`
	Type      string            `json:"type,omitempty"`
}

// TableData is a structured table block (comparison, pricing, features, specs).
type TableData struct {
	Type             string     `json:"type"`
	Title            string     `json:"title"`
	Subtitle         string     `json:"subtitle,omitempty"`
	Headers          []string   `json:"headers"`
	Rows             []TableRow `json:"rows"`
	HighlightColumns []int      `json:"highlightColumns,omitempty"`
	Style            string     `json:"style,omitempty"`
}

// AIPayload is the normalized AI-dialect payload after extraction. Fields may
// arrive at the top level or nested under a "data" object.
type AIPayload struct {
	Slug             string      `json:"slug,omitempty"`
	Title            string      `json:"title"`
	Summary          string      `json:"summary,omitempty"`
	ContentHTML      string      `json:"contentHtml"`
	ImageURL         string      `json:"imageUrl,omitempty"`
	ImageAlt         string      `json:"imageAlt,omitempty"`
	ImageSourceName  string      `json:"imageSourceName,omitempty"`
	ImageSourceURL   string      `json:"imageSourceUrl,omitempty"`
	ImageLicense     string      `json:"imageLicense,omitempty"`
	ImageWidth       float64     `json:"imageWidth,omitempty"`
	ImageHeight      float64     `json:"imageHeight,omitempty"`
	ImageType        string      `json:"imageType,omitempty"`
	PublishedAt      string      `json:"publishedAt,omitempty"`
	Keywords         []string    `json:"keywords"`
	Category         string      `json:"category,omitempty"`
	Language         string      `json:"language"`
	FAQ              []FAQItem   `json:"faq,omitempty"`
	ComparisonTables []TableData `json:"comparisonTables,omitempty"`
	PricingTables    []TableData `json:"pricingTables,omitempty"`
	FeatureTables    []TableData `json:"featureTables,omitempty"`
	DataTables       []TableData `json:"dataTables,omitempty"`
}

// LegacyMeta carries the legacy dialect's metadata block.
type LegacyMeta struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// LegacyVisual is one positioned visual in the legacy dialect.
type LegacyVisual struct {
	Position    string `json:"position"`
	ImagePrompt string `json:"image_prompt"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
}

// LegacyPayload is the older webhook schema kept for backward compatibility.
type LegacyPayload struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug,omitempty"`
	Language    string          `json:"language"`
	Meta        *LegacyMeta     `json:"meta"`
	ContentHTML string          `json:"content_html"`
	Visuals     json.RawMessage `json:"visuals,omitempty"`
	FAQ         json.RawMessage `json:"faq,omitempty"`
	SchemaOrg   string          `json:"schema_org,omitempty"`
	Format      string          `json:"format,omitempty"`
}

// AIResponse is the 201 body for AI-dialect creations.
type AIResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Slug   string `json:"slug"`
}

// LegacyResponse is the 201 body for legacy-dialect creations: the full
// persisted record.
type LegacyResponse struct {
	ID              string          `json:"id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Language        string          `json:"language"`
	ContentHTML     string          `json:"contentHtml"`
	MetaDescription string          `json:"metaDescription"`
	MetaKeywords    []string        `json:"metaKeywords"`
	SchemaOrg       string          `json:"schemaOrg,omitempty"`
	Visuals         json.RawMessage `json:"visuals,omitempty"`
	FAQ             json.RawMessage `json:"faq,omitempty"`
	Format          string          `json:"format"`
	PublishedAt     time.Time       `json:"publishedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	FinalSlug       string          `json:"finalSlug"`
}
