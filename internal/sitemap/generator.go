// Package sitemap regenerates sitemap.xml from the newest landing pages and
// publishes it through a blob store.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

const (
	objectName      = "sitemap.xml"
	defaultMaxPages = 5000
	defaultCooldown = 60 * time.Second
)

// BlobStore is where the generated sitemap lands: a local public directory in
// development, a GCS bucket in production.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Config tunes the generator.
type Config struct {
	// BaseURL prefixes every /landing/<slug> location.
	BaseURL string
	// MaxPages caps how many of the newest pages enter the sitemap.
	MaxPages int
	// Cooldown is the minimum gap between two writes; refreshes inside the
	// window are dropped, the next successful creation picks the change up.
	Cooldown time.Duration
}

// Generator implements the sitemap refresh side effect.
type Generator struct {
	pages    store.LandingPageRepository
	blobs    BlobStore
	logger   *zap.Logger
	baseURL  string
	maxPages int
	cooldown time.Duration

	mu        sync.Mutex
	lastWrite time.Time
	now       func() time.Time
}

// New wires a Generator. Logger defaults to a no-op.
func New(pages store.LandingPageRepository, blobs BlobStore, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Generator{
		pages:    pages,
		blobs:    blobs,
		logger:   logger,
		baseURL:  cfg.BaseURL,
		maxPages: maxPages,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Refresh regenerates and publishes the sitemap unless a write happened within
// the cooldown window.
func (g *Generator) Refresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastWrite.IsZero() && now.Sub(g.lastWrite) < g.cooldown {
		g.logger.Debug("sitemap refresh skipped", zap.Time("last_write", g.lastWrite))
		return nil
	}

	entries, err := g.pages.ListSitemapEntries(ctx, g.maxPages)
	if err != nil {
		return fmt.Errorf("load sitemap entries: %w", err)
	}
	content, err := render(g.baseURL, entries)
	if err != nil {
		return fmt.Errorf("render sitemap: %w", err)
	}
	uri, err := g.blobs.PutObject(ctx, objectName, "application/xml", bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}

	g.lastWrite = now
	g.logger.Info("sitemap updated", zap.Int("pages", len(entries)), zap.String("uri", uri))
	return nil
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	XMLNS   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

func render(baseURL string, entries []store.SitemapEntry) ([]byte, error) {
	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]urlEntry, 0, len(entries)),
	}
	for _, e := range entries {
		lastmod := e.UpdatedAt
		if lastmod.IsZero() {
			lastmod = e.PublishedAt
		}
		set.URLs = append(set.URLs, urlEntry{
			Loc:        baseURL + "/landing/" + url.PathEscape(e.Slug),
			LastMod:    lastmod.UTC().Format(time.RFC3339),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal urlset: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
