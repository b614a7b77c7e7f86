package ingest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidationResult collects every violation found in one pass so the caller
// can fix the whole payload in a single round trip.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the payload passed (warnings do not fail validation).
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateAI checks the merged AI-dialect object field by field. It never
// short-circuits: all violations are reported together.
func ValidateAI(obj map[string]any) ValidationResult {
	var res ValidationResult
	addErr := func(msg string) { res.Errors = append(res.Errors, msg) }
	addWarn := func(msg string) { res.Warnings = append(res.Warnings, msg) }

	title, titleOK := obj["title"].(string)
	if !titleOK || strings.TrimSpace(title) == "" {
		addErr("title is required and must be a non-empty string")
	} else if len(title) > 200 {
		addWarn("title is longer than 200 characters, consider shortening for SEO")
	}

	if raw, ok := obj["slug"]; ok && raw != nil {
		slug, slugOK := raw.(string)
		switch {
		case !slugOK || strings.TrimSpace(slug) == "":
			addErr("slug must be a non-empty string when provided")
		default:
			if !slugPattern.MatchString(slug) {
				addErr("slug must contain only lowercase letters, numbers, and hyphens")
			}
			if len(slug) > 100 {
				addErr("slug must be 100 characters or less")
			}
		}
	}

	content, contentOK := obj["contentHtml"].(string)
	if !contentOK || strings.TrimSpace(content) == "" {
		addErr("contentHtml is required and must be a non-empty string")
	} else if len(content) < 100 {
		addWarn("contentHtml is shorter than 100 characters, consider adding more content for SEO")
	}

	keywords, keywordsOK := obj["keywords"].([]any)
	if !keywordsOK || len(keywords) == 0 {
		addErr("keywords is required and must be a non-empty array")
	} else {
		for i, kw := range keywords {
			s, ok := kw.(string)
			if !ok || strings.TrimSpace(s) == "" {
				addErr(fmt.Sprintf("keywords[%d] must be a non-empty string", i))
			}
		}
		if len(keywords) > 20 {
			addWarn("more than 20 keywords provided, consider reducing for better SEO focus")
		}
	}

	lang, langOK := obj["language"].(string)
	if !langOK || strings.TrimSpace(lang) == "" {
		addErr("language is required and must be a non-empty string")
	} else if !IsValidLocale(lang) {
		addErr("language must be one of: " + strings.Join(Locales, ", "))
	}

	if raw, ok := obj["summary"]; ok && raw != nil {
		if summary, sOK := raw.(string); !sOK {
			addErr("summary must be a string")
		} else if len(summary) > 300 {
			addWarn("summary is longer than 300 characters, consider shortening for meta description")
		}
	}

	validateOptionalURL(obj, "imageUrl", &res)
	validateOptionalString(obj, "imageAlt", &res)
	validateOptionalString(obj, "imageSourceName", &res)
	validateOptionalURL(obj, "imageSourceUrl", &res)
	validateOptionalString(obj, "imageLicense", &res)
	validateOptionalDimension(obj, "imageWidth", &res)
	validateOptionalDimension(obj, "imageHeight", &res)
	validateOptionalString(obj, "imageType", &res)
	validateOptionalString(obj, "category", &res)

	if raw, ok := obj["publishedAt"]; ok && raw != nil {
		if s, sOK := raw.(string); !sOK {
			res.Errors = append(res.Errors, "publishedAt must be an ISO date string")
		} else if _, err := time.Parse(time.RFC3339, s); err != nil {
			res.Errors = append(res.Errors, "publishedAt must be a valid ISO date string")
		}
	}

	if raw, ok := obj["faq"]; ok && raw != nil {
		items, itemsOK := raw.([]any)
		if !itemsOK {
			addErr("faq must be an array")
		} else {
			for i, item := range items {
				entry, entryOK := item.(map[string]any)
				if !entryOK {
					addErr(fmt.Sprintf("faq[%d] must be an object", i))
					continue
				}
				if q, ok := entry["question"].(string); !ok || strings.TrimSpace(q) == "" {
					addErr(fmt.Sprintf("faq[%d].question is required and must be a non-empty string", i))
				}
				if a, ok := entry["answer"].(string); !ok || strings.TrimSpace(a) == "" {
					addErr(fmt.Sprintf("faq[%d].answer is required and must be a non-empty string", i))
				}
			}
		}
	}

	return res
}

func validateOptionalString(obj map[string]any, field string, res *ValidationResult) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return
	}
	if _, sOK := raw.(string); !sOK {
		res.Errors = append(res.Errors, field+" must be a string")
	}
}

func validateOptionalURL(obj map[string]any, field string, res *ValidationResult) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return
	}
	s, sOK := raw.(string)
	if !sOK {
		res.Errors = append(res.Errors, field+" must be a string")
		return
	}
	if u, err := url.Parse(s); err != nil || u.Scheme == "" || u.Host == "" {
		res.Errors = append(res.Errors, field+" must be a valid URL")
	}
}

func validateOptionalDimension(obj map[string]any, field string, res *ValidationResult) {
	raw, ok := obj[field]
	if !ok || raw == nil {
		return
	}
	n, nOK := raw.(float64)
	if !nOK || n <= 0 {
		res.Errors = append(res.Errors, field+" must be a positive number")
	}
}

// ValidateLegacy checks the legacy-dialect payload. Violations are collected,
// never short-circuited.
func ValidateLegacy(p LegacyPayload) ValidationResult {
	var res ValidationResult
	if p.Title == "" {
		res.Errors = append(res.Errors, "title is required and must be a string")
	}
	if p.Language == "" {
		res.Errors = append(res.Errors, "language is required and must be a string")
	}
	if p.Meta == nil {
		res.Errors = append(res.Errors, "meta is required and must be an object")
	} else {
		if p.Meta.Description == "" {
			res.Errors = append(res.Errors, "meta.description is required and must be a string")
		}
		if p.Meta.Keywords == nil {
			res.Errors = append(res.Errors, "meta.keywords is required and must be an array")
		}
	}
	if p.ContentHTML == "" {
		res.Errors = append(res.Errors, "content_html is required and must be a string")
	}
	return res
}
