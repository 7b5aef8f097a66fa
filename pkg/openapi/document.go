package openapi

import (
	"errors"
	"sort"
)

// Document is a raw OpenAPI payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument wraps raw. Both arguments are required.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("openapi: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("openapi: raw document is empty")
	}
	return Document{source: src, raw: append([]byte(nil), raw...)}, nil
}

// MustNewDocument panics when NewDocument fails. Intended for fixtures.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin of the document.
func (d Document) Source() Source { return d.source }

// Raw returns a copy of the payload.
func (d Document) Raw() []byte { return append([]byte(nil), d.raw...) }

// Location returns the origin identifier, or "" for a zero Document.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Operation is the subset of an OpenAPI operation a form is derived from.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	MediaType   string
	RequestBody Schema
}

// Schema is a trimmed JSON schema node. Ref is kept when a reference cycle
// stops expansion.
type Schema struct {
	Ref         string
	Type        string
	Format      string
	Title       string
	Description string
	Pattern     string
	Required    []string
	Enum        []any
	Default     any
	MaxLength   *int
	ReadOnly    bool
	Properties  map[string]Schema
}

// PropertyNames returns the property names, sorted.
func (s Schema) PropertyNames() []string {
	out := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsRequired reports whether name is listed in Required.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}
