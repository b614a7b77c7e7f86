package ingest

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// contentPolicy is the whitelist applied to contentHtml before persistence.
// It drops <script>/<style> blocks with their contents, inline event-handler
// attributes and javascript: URIs while leaving article markup alone. It is
// an XSS mitigation, not a full sanitizer.
var contentPolicy = newContentPolicy()

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	p.AllowElements("section", "article", "figure", "figcaption")
	return p
}

// SanitizeHTML runs the content policy over untrusted page HTML.
func SanitizeHTML(html string) string {
	return contentPolicy.Sanitize(html)
}

// ScrubInvisible removes invisible, zero-width and control characters that
// LLM pipelines leave behind as watermark artifacts, without touching
// meaningful whitespace. Applied to the raw JSON text before parsing.
func ScrubInvisible(raw []byte) []byte {
	scrubbed := strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		switch {
		case r < 0x20 || r == 0x7f: // C0 controls and DEL
			return -1
		case r == '\u00AD': // soft hyphen
			return -1
		case r >= '\u200B' && r <= '\u200F': // zero-width chars, direction marks
			return -1
		case r >= '\u202A' && r <= '\u202E': // bidi embedding controls
			return -1
		case r == '\u2060' || r == '\uFEFF': // word joiner, BOM
			return -1
		}
		return r
	}, string(raw))
	return []byte(scrubbed)
}
