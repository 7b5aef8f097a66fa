package spec

import (
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Catalog is a set of form specs keyed by form name.
type Catalog struct {
	forms map[string]FormSpec
}

type documentFile struct {
	Forms []FormSpec `json:"forms" yaml:"forms"`
}

// Parse decodes a JSON or YAML document holding either a single form spec or
// a `forms` list. Every decoded spec is validated.
func Parse(data []byte, source string) ([]FormSpec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file %s is empty", ErrInvalidSpec, source)
	}

	forms, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: invalid JSON or YAML", ErrInvalidSpec, source)
	}
	if len(forms) == 0 {
		return nil, fmt.Errorf("%w: file %s defines no forms", ErrInvalidSpec, source)
	}
	for i := range forms {
		forms[i].Source = source
		if err := forms[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}
	return forms, nil
}

func decode(data []byte) ([]FormSpec, error) {
	var doc documentFile
	var single FormSpec
	if err := json.Unmarshal(data, &doc); err == nil && len(doc.Forms) > 0 {
		return doc.Forms, nil
	}
	if err := json.Unmarshal(data, &single); err == nil {
		return []FormSpec{single}, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Forms) > 0 {
		return doc.Forms, nil
	}
	single = FormSpec{}
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, err
	}
	return []FormSpec{single}, nil
}

// LoadFS walks fsys and parses every JSON/YAML spec file. A nil fsys yields
// an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := &Catalog{forms: make(map[string]FormSpec)}
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSpecFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("spec: read %s: %w", path, err)
		}
		forms, err := Parse(data, path)
		if err != nil {
			return err
		}
		for _, f := range forms {
			if err := catalog.Add(f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Add validates f and stores it. Duplicate names are rejected.
func (c *Catalog) Add(f FormSpec) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if c.forms == nil {
		c.forms = make(map[string]FormSpec)
	}
	if prior, exists := c.forms[f.Name]; exists {
		return fmt.Errorf("%w: duplicate form %q (files %s and %s)", ErrInvalidSpec, f.Name, prior.Source, f.Source)
	}
	c.forms[f.Name] = f
	return nil
}

// Form returns the spec registered under name.
func (c *Catalog) Form(name string) (FormSpec, bool) {
	if c == nil {
		return FormSpec{}, false
	}
	f, ok := c.forms[name]
	return f, ok
}

// Names returns the form names, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.forms))
	for name := range c.forms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the catalog holds any forms.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.forms) == 0
}

func isSpecFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
