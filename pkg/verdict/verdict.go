// Package verdict models the server's answer to a submission: accept the
// whole form, reject it, or reject specific fields.
package verdict

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Kind distinguishes verdict shapes.
type Kind int

const (
	KindRejected Kind = iota
	KindAccepted
	KindFields
)

func (k Kind) String() string {
	switch k {
	case KindAccepted:
		return "accepted"
	case KindFields:
		return "fields"
	default:
		return "rejected"
	}
}

// Verdict is immutable once built. The zero value rejects with no fields.
type Verdict struct {
	kind     Kind
	fields   []string
	messages map[string][]string
	form     []string
}

// Accept builds a verdict that resets the form.
func Accept() Verdict { return Verdict{kind: KindAccepted} }

// Reject builds a verdict that marks nothing.
func Reject() Verdict { return Verdict{kind: KindRejected} }

// Fields builds a verdict that marks the named fields custom-invalid. Blank
// and duplicate names are dropped.
func Fields(names ...string) Verdict {
	return Verdict{kind: KindFields, fields: normalizeNames(names)}
}

// WithMessages returns a copy of v carrying per-field and form-level
// messages. Messages never change how the verdict is applied.
func (v Verdict) WithMessages(fields map[string][]string, form []string) Verdict {
	out := v
	out.fields = append([]string(nil), v.fields...)
	if len(fields) > 0 {
		out.messages = make(map[string][]string, len(fields))
		for k, msgs := range fields {
			if n := normalizeMessages(msgs); len(n) > 0 {
				out.messages[k] = n
			}
		}
	}
	out.form = normalizeMessages(form)
	return out
}

func (v Verdict) Kind() Kind { return v.kind }

// Accepted reports a global accept.
func (v Verdict) Accepted() bool { return v.kind == KindAccepted }

// FieldNames returns the fields to mark, in the order supplied.
func (v Verdict) FieldNames() []string { return append([]string(nil), v.fields...) }

// Messages returns per-field messages keyed by field name.
func (v Verdict) Messages() map[string][]string {
	out := make(map[string][]string, len(v.messages))
	for k, msgs := range v.messages {
		out[k] = append([]string(nil), msgs...)
	}
	return out
}

// FormMessages returns messages not attached to any field.
func (v Verdict) FormMessages() []string { return append([]string(nil), v.form...) }

func (v Verdict) String() string {
	if v.kind == KindFields {
		return "fields(" + strings.Join(v.fields, ",") + ")"
	}
	return v.kind.String()
}

// From converts a loosely typed verdict (as handed to an acknowledgment
// callback) into a Verdict. Booleans accept or reject, string lists name
// fields, anything else rejects with no fields marked.
func From(raw any) Verdict {
	switch v := raw.(type) {
	case Verdict:
		return v
	case *Verdict:
		if v == nil {
			return Reject()
		}
		return *v
	case bool:
		if v {
			return Accept()
		}
		return Reject()
	case []string:
		return Fields(v...)
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return Reject()
			}
			names = append(names, s)
		}
		return Fields(names...)
	default:
		return Reject()
	}
}

// Response is the object form of a verdict on the wire.
type Response struct {
	Valid    bool                `json:"valid"`
	Fields   []string            `json:"fields,omitempty"`
	Messages map[string][]string `json:"messages,omitempty"`
	Form     []string            `json:"form,omitempty"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

// Response renders v in object form.
func (v Verdict) Response() Response {
	return Response{
		Valid:    v.Accepted(),
		Fields:   v.FieldNames(),
		Messages: v.messages,
		Form:     v.form,
	}
}

// MarshalJSON encodes the object form.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Response())
}

// Decode parses a server reply. It accepts a bare boolean, an array of field
// names, or a Response object whose "errors" map uses JSON pointer or dotted
// paths resolved against known field names. Malformed input rejects.
func Decode(data []byte, known ...string) Verdict {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Reject()
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return From(raw)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Reject()
	}
	if len(resp.Errors) > 0 {
		mapped := MapErrors(known, resp.Errors)
		return mapped.WithMessages(mergeMessages(mapped.messages, resp.Messages), append(mapped.form, resp.Form...))
	}
	if len(resp.Fields) > 0 {
		return Fields(resp.Fields...).WithMessages(resp.Messages, resp.Form)
	}
	if _, hasValid := obj["valid"]; hasValid && resp.Valid {
		return Accept().WithMessages(resp.Messages, resp.Form)
	}
	return Reject().WithMessages(resp.Messages, resp.Form)
}

func mergeMessages(maps ...map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range maps {
		for k, msgs := range m {
			out[k] = append(out[k], msgs...)
		}
	}
	return out
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
