package provider

import "encoding/json"

// The provider's success payload has shifted shape across versions:
// sometimes the link sits under data.properties, sometimes under data,
// sometimes at the top level, and older builds return a bare "url".
// Extraction is therefore a fixed-priority contract - each extractor is
// tried in order and the first non-empty link wins.
type linkExtractor struct {
	name string
	fn   func(map[string]any) string
}

var linkExtractors = []linkExtractor{
	{"data.properties.action_link", func(m map[string]any) string {
		return str(dig(m, "data", "properties"), "action_link")
	}},
	{"data.action_link", func(m map[string]any) string {
		return str(dig(m, "data"), "action_link")
	}},
	{"action_link", func(m map[string]any) string {
		return str(m, "action_link")
	}},
	{"url", func(m map[string]any) string {
		return str(m, "url")
	}},
}

// extractActionLink probes the known response shapes in priority order.
// Unparsable bodies collapse to "".
func extractActionLink(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return ""
	}
	for _, extractor := range linkExtractors {
		if link := extractor.fn(m); link != "" {
			return link
		}
	}
	return ""
}

func dig(m map[string]any, path ...string) map[string]any {
	for _, key := range path {
		if m == nil {
			return nil
		}
		next, _ := m[key].(map[string]any)
		m = next
	}
	return m
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
