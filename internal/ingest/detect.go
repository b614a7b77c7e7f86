package ingest

import (
	"encoding/json"
	"fmt"
)

// DetectDialect inspects the decoded payload shape and picks the schema
// dialect. The AI dialect is recognized by contentHtml plus keywords, either
// at the top level, nested under "data", or with keywords tucked into a meta
// block. A top-level content_html always wins for the legacy dialect.
func DetectDialect(raw []byte) (Dialect, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	var data map[string]json.RawMessage
	if nested, ok := top["data"]; ok {
		// A non-object "data" value is ignored, matching lenient intake.
		_ = json.Unmarshal(nested, &data)
	}

	hasContentHTML := hasKey(top, "contentHtml") || hasKey(data, "contentHtml")
	hasKeywords := hasKey(top, "keywords") ||
		hasKey(data, "keywords") ||
		hasMetaKeywords(data) ||
		hasMetaKeywords(top)
	hasLegacyContentHTML := hasKey(top, "content_html")

	if hasContentHTML && hasKeywords && !hasLegacyContentHTML {
		return DialectAI, nil
	}
	return DialectLegacy, nil
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}

func hasMetaKeywords(m map[string]json.RawMessage) bool {
	meta, ok := m["meta"]
	if !ok {
		return false
	}
	var metaMap map[string]json.RawMessage
	if err := json.Unmarshal(meta, &metaMap); err != nil {
		return false
	}
	return hasKey(metaMap, "keywords")
}

// aiFields are the AI-dialect field names that may arrive either at the top
// level or nested under "data"; nested values win.
var aiFields = []string{
	"title", "slug", "summary", "contentHtml",
	"imageUrl", "imageAlt", "imageSourceName", "imageSourceUrl",
	"imageLicense", "imageWidth", "imageHeight", "imageType",
	"publishedAt", "keywords", "category", "language", "faq",
	"comparisonTables", "pricingTables", "featureTables", "dataTables",
}

// ExtractAIObject flattens the optional "data" envelope into one generic
// object for validation. Keywords fall back through data.meta.keywords,
// meta.keywords, data.keywords and finally top-level keywords.
func ExtractAIObject(raw []byte) (map[string]any, error) {
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode ai payload: %w", err)
	}

	data, _ := top["data"].(map[string]any)
	if data == nil {
		if kw := metaKeywords(top); kw != nil {
			if !truthy(top["keywords"]) {
				top["keywords"] = kw
			}
		}
		return top, nil
	}

	out := make(map[string]any, len(aiFields))
	for _, f := range aiFields {
		if v, ok := data[f]; ok && truthy(v) {
			out[f] = v
		} else if v, ok := top[f]; ok && truthy(v) {
			out[f] = v
		}
	}
	if kw := metaKeywords(data); kw != nil {
		out["keywords"] = kw
	} else if kw := metaKeywords(top); kw != nil {
		out["keywords"] = kw
	}
	return out, nil
}

func metaKeywords(m map[string]any) any {
	meta, ok := m["meta"].(map[string]any)
	if !ok {
		return nil
	}
	kw, ok := meta["keywords"]
	if !ok || !truthy(kw) {
		return nil
	}
	return kw
}

// truthy mirrors the loose presence semantics of the intake contract: empty
// strings, zero numbers, nil and empty arrays all fall through to fallbacks.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// PayloadFromObject decodes the merged generic object into the typed AI
// payload. Callers validate the object first, so mismatches are internal
// errors rather than client errors.
func PayloadFromObject(obj map[string]any) (AIPayload, error) {
	buf, err := json.Marshal(obj)
	if err != nil {
		return AIPayload{}, fmt.Errorf("remarshal ai payload: %w", err)
	}
	var p AIPayload
	if err := json.Unmarshal(buf, &p); err != nil {
		return AIPayload{}, fmt.Errorf("decode ai payload: %w", err)
	}
	return p, nil
}
