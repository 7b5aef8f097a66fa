package openapi

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// SourceKind enumerates where a document can be read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies where an OpenAPI document lives.
type Source interface {
	Kind() SourceKind
	Location() string
}

type location struct {
	kind SourceKind
	path string
}

func (l location) Kind() SourceKind { return l.kind }
func (l location) Location() string { return l.path }

// SourceFromFile points at a document on disk.
func SourceFromFile(path string) Source {
	return location{kind: SourceKindFile, path: filepath.Clean(path)}
}

// SourceFromFS points at a document inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return location{kind: SourceKindFS, path: name}
}

// SourceFromURL points at a remote document. Invalid URLs are reported as
// errors rather than deferred to load time.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("openapi: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("openapi: invalid URL %q: %w", raw, err)
	}
	return location{kind: SourceKindURL, path: raw}, nil
}

// SourceFromArg picks a URL or file source from a command-line argument.
func SourceFromArg(arg string) Source {
	if u, err := url.Parse(arg); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return location{kind: SourceKindURL, path: arg}
	}
	return SourceFromFile(arg)
}
