// Package testsupport holds fixtures and helpers shared by the package
// tests: sample form specs, an OpenAPI document, golden files and an
// observed logger.
package testsupport

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-formstate/pkg/control"
	pkgopenapi "github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/spec"
)

//go:embed testdata
var fixtures embed.FS

// OpenAPIFixture is the path of the bundled OpenAPI document inside Fixtures.
const OpenAPIFixture = "openapi/signup.yaml"

// Fixtures exposes the bundled testdata tree.
func Fixtures() fs.FS {
	sub, err := fs.Sub(fixtures, "testdata")
	if err != nil {
		panic(err)
	}
	return sub
}

// Forms returns the directory of sample form specs.
func Forms() fs.FS {
	sub, err := fs.Sub(Fixtures(), "forms")
	if err != nil {
		panic(err)
	}
	return sub
}

// MustCatalog loads every sample form spec.
func MustCatalog(t *testing.T) *spec.Catalog {
	t.Helper()

	catalog, err := spec.LoadFS(Forms())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

// MustForm returns one sample spec by name.
func MustForm(t *testing.T, name string) spec.FormSpec {
	t.Helper()

	f, ok := MustCatalog(t).Form(name)
	if !ok {
		t.Fatalf("fixture form %q not found", name)
	}
	return f
}

// MustDocument renders specs into a fresh document.
func MustDocument(t *testing.T, specs ...spec.FormSpec) *control.Document {
	t.Helper()

	doc, err := spec.Document(specs...)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	return doc
}

// LoadDocument reads the bundled OpenAPI fixture into a Document.
func LoadDocument(t *testing.T) pkgopenapi.Document {
	t.Helper()

	doc, err := LoadDocumentFromFS(Fixtures(), OpenAPIFixture)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromFS returns a Document without requiring testing.T, for
// callers wiring fixtures in setup functions.
func LoadDocumentFromFS(fsys fs.FS, path string) (pkgopenapi.Document, error) {
	if path == "" {
		return pkgopenapi.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return pkgopenapi.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := pkgopenapi.NewDocument(pkgopenapi.SourceFromFS(path), data)
	if err != nil {
		return pkgopenapi.Document{}, fmt.Errorf("testsupport: new document: %w", err)
	}
	return doc, nil
}

// ObservedLogger returns a logger whose entries at level and above can be
// asserted on.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set and
// reports whether it did.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CompareGolden decodes the golden JSON at path into a value of want's
// shape and returns a diff against got.
func CompareGolden[T any](t *testing.T, path string, got T) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	var want T
	if err := json.Unmarshal(data, &want); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
	return cmp.Diff(want, got)
}
