// Package formstate is the entry point of the form validation engine. It
// re-exports the types most callers need and offers one-call helpers for
// building registries from spec files or OpenAPI operations.
package formstate

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-formstate/pkg/control"
	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/registry"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

// Registry aliases registry.Registry.
type Registry = registry.Registry

// FormSpec aliases spec.FormSpec.
type FormSpec = spec.FormSpec

// FieldSpec aliases spec.FieldSpec.
type FieldSpec = spec.FieldSpec

// Verdict aliases verdict.Verdict.
type Verdict = verdict.Verdict

// New builds a registry over source.
func New(source control.Source, options ...registry.Option) *Registry {
	return registry.New(source, options...)
}

// LoadCatalog reads every JSON/YAML form spec under fsys.
func LoadCatalog(fsys fs.FS) (*spec.Catalog, error) {
	return spec.LoadFS(fsys)
}

// FromOpenAPI loads the OpenAPI source, finds operationID and derives a
// self-contained form spec from its request body.
func FromOpenAPI(ctx context.Context, source pkgopenapi.Source, operationID string, loaderOptions []pkgopenapi.LoaderOption, deriveOptions ...pkgopenapi.DeriveOption) (pkgopenapi.Form, error) {
	doc, err := NewLoader(loaderOptions...).Load(ctx, source)
	if err != nil {
		return pkgopenapi.Form{}, fmt.Errorf("formstate: load %s: %w", source.Location(), err)
	}
	ops, err := NewParser().Operations(ctx, doc)
	if err != nil {
		return pkgopenapi.Form{}, fmt.Errorf("formstate: parse %s: %w", source.Location(), err)
	}
	op, err := pkgopenapi.Lookup(ops, operationID)
	if err != nil {
		return pkgopenapi.Form{}, err
	}
	return pkgopenapi.Derive(op, deriveOptions...)
}
