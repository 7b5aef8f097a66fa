package transport

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formstate/pkg/form"
)

// Sanitizer strips markup from string values before they leave the client
// or enter the server.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer wraps policy; a nil policy uses bluemonday.StrictPolicy.
func NewSanitizer(policy *bluemonday.Policy) *Sanitizer {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return &Sanitizer{policy: policy}
}

// String removes every tag from raw. Entities the policy escapes are
// decoded again so plain text survives unchanged.
func (s *Sanitizer) String(raw string) string {
	if s == nil || !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// Payload returns a sanitised copy of p. Nested maps and slices are walked;
// non-string leaves are kept as is.
func (s *Sanitizer) Payload(p form.Payload) form.Payload {
	if s == nil || p == nil {
		return p
	}
	out := make(form.Payload, len(p))
	for k, v := range p {
		out[k] = s.value(v)
	}
	return out
}

func (s *Sanitizer) value(v any) any {
	switch typed := v.(type) {
	case string:
		return s.String(typed)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = s.value(item)
		}
		return out
	case form.Payload:
		return map[string]any(s.Payload(typed))
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, item := range typed {
			out[k] = s.String(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = s.value(item)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		for i, item := range typed {
			out[i] = s.String(item)
		}
		return out
	default:
		return v
	}
}
