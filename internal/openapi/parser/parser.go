// Package parser extracts operations and request body schemas from OpenAPI 3
// documents using kin-openapi.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
)

// Form-friendly media types, in order of preference.
var mediaTypes = []string{
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"application/json",
}

// Parser implements pkgopenapi.Parser.
type Parser struct {
	options pkgopenapi.ParserOptions
}

var _ pkgopenapi.Parser = (*Parser)(nil)

// New constructs a Parser.
func New(options pkgopenapi.ParserOptions) *Parser {
	return &Parser{options: options}
}

// Operations returns every operation of doc keyed by operation id.
func (p *Parser) Operations(ctx context.Context, doc pkgopenapi.Document) (map[string]pkgopenapi.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: p.options.ResolveReferences,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if p.options.ResolveReferences {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}

	operations := make(map[string]pkgopenapi.Operation)
	if spec.Paths != nil {
		for path, item := range spec.Paths.Map() {
			if item == nil {
				continue
			}
			for method, op := range item.Operations() {
				collect(operations, strings.ToUpper(method), path, op)
			}
		}
	}
	if len(operations) == 0 && !p.options.AllowPartialDocuments {
		return nil, errors.New("openapi parser: no operations extracted")
	}
	return operations, nil
}

func collect(target map[string]pkgopenapi.Operation, method, path string, op *openapi3.Operation) {
	if op == nil {
		return
	}
	id := op.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	mediaType, body := requestSchema(op.RequestBody)
	target[id] = pkgopenapi.Operation{
		ID:          id,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		MediaType:   mediaType,
		RequestBody: body,
	}
}

func requestSchema(body *openapi3.RequestBodyRef) (string, pkgopenapi.Schema) {
	if body == nil {
		return "", pkgopenapi.Schema{}
	}
	if body.Value == nil {
		return "", pkgopenapi.Schema{Ref: body.Ref}
	}
	content := body.Value.Content
	for _, mt := range mediaTypes {
		if media, ok := content[mt]; ok && media != nil {
			return mt, convert(media.Schema, nil)
		}
	}
	for mt, media := range content {
		if media != nil {
			return mt, convert(media.Schema, nil)
		}
	}
	return "", pkgopenapi.Schema{}
}

// convert copies the fields forms care about. visiting guards reference
// cycles: a schema already on the current path is returned as its Ref only.
func convert(ref *openapi3.SchemaRef, visiting map[*openapi3.Schema]struct{}) pkgopenapi.Schema {
	if ref == nil {
		return pkgopenapi.Schema{}
	}
	if ref.Value == nil {
		return pkgopenapi.Schema{Ref: ref.Ref}
	}
	src := ref.Value
	if _, cycle := visiting[src]; cycle {
		return pkgopenapi.Schema{Ref: ref.Ref}
	}
	if visiting == nil {
		visiting = make(map[*openapi3.Schema]struct{})
	}
	visiting[src] = struct{}{}
	defer delete(visiting, src)

	out := pkgopenapi.Schema{
		Ref:         ref.Ref,
		Type:        firstType(src.Type),
		Format:      src.Format,
		Title:       src.Title,
		Description: src.Description,
		Pattern:     src.Pattern,
		Default:     src.Default,
		ReadOnly:    src.ReadOnly,
	}
	if len(src.Required) > 0 {
		out.Required = append([]string(nil), src.Required...)
	}
	if len(src.Enum) > 0 {
		out.Enum = append([]any(nil), src.Enum...)
	}
	if src.MaxLength != nil {
		n := int(*src.MaxLength)
		out.MaxLength = &n
	}
	for name, prop := range src.Properties {
		if out.Properties == nil {
			out.Properties = make(map[string]pkgopenapi.Schema, len(src.Properties))
		}
		out.Properties[name] = convert(prop, visiting)
	}
	for _, part := range src.AllOf {
		merged := convert(part, visiting)
		if out.Type == "" {
			out.Type = merged.Type
		}
		out.Required = append(out.Required, merged.Required...)
		for name, prop := range merged.Properties {
			if out.Properties == nil {
				out.Properties = make(map[string]pkgopenapi.Schema)
			}
			if _, exists := out.Properties[name]; !exists {
				out.Properties[name] = prop
			}
		}
	}
	return out
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}
