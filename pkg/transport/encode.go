package transport

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Encoding selects the request body format.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// ParseEncoding maps a configuration value to an Encoding.
func ParseEncoding(raw string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return EncodingJSON, nil
	case "form", "urlencoded", "x-www-form-urlencoded":
		return EncodingForm, nil
	default:
		return "", fmt.Errorf("transport: unknown encoding %q", raw)
	}
}

func (e Encoding) contentType() string {
	if e == EncodingForm {
		return contentTypeForm
	}
	return contentTypeJSON
}

func encode(e Encoding, payload form.Payload) ([]byte, error) {
	if e == EncodingForm {
		return []byte(flatten(payload).Encode()), nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("transport: encode payload: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// flatten renders payload with bracketed keys: data[token], tags[].
func flatten(payload form.Payload) url.Values {
	out := url.Values{}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flattenValue(out, k, payload[k])
	}
	return out
}

func flattenValue(out url.Values, key string, v any) {
	switch typed := v.(type) {
	case map[string]any:
		for k, item := range typed {
			flattenValue(out, key+"["+k+"]", item)
		}
	case form.Payload:
		flattenValue(out, key, map[string]any(typed))
	case map[string]string:
		for k, item := range typed {
			out.Add(key+"["+k+"]", item)
		}
	case []any:
		for _, item := range typed {
			flattenValue(out, key+"[]", item)
		}
	case []string:
		for _, item := range typed {
			out.Add(key+"[]", item)
		}
	case bool:
		if typed {
			out.Add(key, "true")
		} else {
			out.Add(key, "false")
		}
	default:
		out.Add(key, rule.Stringify(v))
	}
}

// submission is a decoded request body: control values by name plus the
// opaque data attached under form.DataKey.
type submission struct {
	values map[string]string
	data   any
}

func decodeJSONSubmission(body []byte) (submission, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return submission{}, fmt.Errorf("transport: decode json body: %w", err)
	}
	sub := submission{values: make(map[string]string, len(raw))}
	for k, v := range raw {
		if k == form.DataKey {
			sub.data = v
			continue
		}
		switch typed := v.(type) {
		case nil:
		case bool:
			if typed {
				sub.values[k] = "yes"
			} else {
				sub.values[k] = "no"
			}
		case json.Number:
			sub.values[k] = typed.String()
		default:
			sub.values[k] = rule.Stringify(typed)
		}
	}
	return sub, nil
}

func decodeFormSubmission(values url.Values) submission {
	sub := submission{values: make(map[string]string, len(values))}
	data := make(map[string]any)
	prefix := form.DataKey + "["
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, "]") {
			data[strings.TrimSuffix(strings.TrimPrefix(k, prefix), "]")] = vs[0]
			continue
		}
		if k == form.DataKey {
			sub.data = vs[0]
			continue
		}
		sub.values[k] = vs[0]
	}
	if len(data) > 0 {
		sub.data = data
	}
	return sub
}
