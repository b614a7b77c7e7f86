package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/comparee-ai/landing-ingest/internal/store"
)

var (
	nonSlugChars     = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparators   = regexp.MustCompile(`[\s_-]+`)
	edgeHyphens      = regexp.MustCompile(`^-+|-+$`)
	collapsedHyphens = regexp.MustCompile(`-+`)
)

// stripDiacritics decomposes accented characters and drops the combining
// marks, so "Srovnání nástrojů" becomes "Srovnani nastroju".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// GenerateSlug derives an AI-dialect slug from the title: lowercase, ASCII
// fold, URL-safe characters only, truncated to 90 runes, then a day-hour-
// minute suffix for uniqueness of unordered submissions, capped at 100.
func GenerateSlug(title string, now time.Time) string {
	base := strings.ToLower(stripDiacritics(title))
	base = nonSlugChars.ReplaceAllString(base, "")
	base = slugSeparators.ReplaceAllString(base, "-")
	base = collapsedHyphens.ReplaceAllString(base, "-")
	base = edgeHyphens.ReplaceAllString(base, "")
	if len(base) > 90 {
		base = base[:90]
	}

	slug := base + "-" + now.Format("021504")
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return slug
}

// NormalizeSlug applies the legacy-dialect normalization to a provided slug
// or title: transliterate, lowercase, strip specials, collapse separators.
func NormalizeSlug(input string) string {
	s := strings.TrimSpace(strings.ToLower(stripDiacritics(input)))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = edgeHyphens.ReplaceAllString(s, "")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// ResolveUniqueSlug finds a free slug for the language by suffixing a counter:
// base, base-1, base-2, ... Landing pages in other languages may hold the
// same slug; scoping is per (slug, language).
func ResolveUniqueSlug(ctx context.Context, repo store.LandingPageRepository, base, language string) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		_, err := repo.GetBySlug(ctx, candidate, language)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}
