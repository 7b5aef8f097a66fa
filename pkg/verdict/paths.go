package verdict

import (
	"strconv"
	"strings"
)

// MapErrors turns a server error payload keyed by field paths into a field
// verdict. Paths may be JSON pointers ("/email"), dotted ("body.email") or
// indexed ("items[0].sku"); each is resolved to the longest known field name
// it starts with. Unresolvable and form-level keys become form messages. A
// payload with no resolvable field rejects without marking anything.
func MapErrors(known []string, payload map[string][]string) Verdict {
	names := make(map[string]struct{}, len(known))
	for _, k := range known {
		if k = strings.TrimSpace(k); k != "" {
			names[k] = struct{}{}
		}
	}

	fieldMessages := make(map[string][]string)
	var fields, form []string
	for _, rawPath := range sortedKeys(payload) {
		messages := normalizeMessages(payload[rawPath])
		name, ok := resolvePath(rawPath, names)
		if !ok {
			form = append(form, messages...)
			continue
		}
		if _, seen := fieldMessages[name]; !seen {
			fields = append(fields, name)
		}
		fieldMessages[name] = append(fieldMessages[name], messages...)
	}

	if len(fields) == 0 {
		return Reject().WithMessages(nil, form)
	}
	return Fields(fields...).WithMessages(fieldMessages, form)
}

func resolvePath(raw string, names map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", false
	}

	best := ""
	for _, variant := range segmentVariants(segments) {
		if path := longestMatch(variant, names); len(path) > len(best) {
			best = path
		}
	}
	return best, best != ""
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for _, prefix := range []string{"#/", "$/", "$."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.TrimLeft(clean, "#/.$")
	clean = strings.NewReplacer("[", ".", "]", "", "//", "/").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

func segmentVariants(segments []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)
	add := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, append([]string(nil), candidate...))
	}

	unwrapped := segments
	for len(unwrapped) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(unwrapped[0])]; !ok {
			break
		}
		unwrapped = unwrapped[1:]
	}

	add(segments)
	add(unwrapped)
	add(dropNumeric(segments))
	add(dropNumeric(unwrapped))
	return variants
}

func dropNumeric(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

// longestMatch tries progressively shorter prefixes, both dotted and
// bracketed, against the known names.
func longestMatch(segments []string, names map[string]struct{}) string {
	for end := len(segments); end > 0; end-- {
		prefix := segments[:end]
		if candidate := strings.Join(prefix, "."); hasName(names, candidate) {
			return candidate
		}
		if candidate := bracketed(prefix); hasName(names, candidate) {
			return candidate
		}
	}
	return ""
}

func bracketed(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(segments[0])
	for _, s := range segments[1:] {
		b.WriteString("[" + s + "]")
	}
	return b.String()
}

func hasName(names map[string]struct{}, candidate string) bool {
	_, ok := names[candidate]
	return ok
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
