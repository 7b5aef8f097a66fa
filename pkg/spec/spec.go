// Package spec holds the declarative description of a form registration:
// per-field overrides, the form-wide trigger mode, the submit control and
// region visibility rules. Specs are plain data and can be loaded from JSON
// or YAML.
package spec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// ErrInvalidSpec is returned for specs that cannot be registered.
var ErrInvalidSpec = errors.New("spec: invalid form spec")

// FormSpec describes one form registration.
type FormSpec struct {
	Name string `json:"name" yaml:"name"`
	// Submit names the control whose activation submits the form.
	Submit string `json:"submit,omitempty" yaml:"submit,omitempty"`
	// StartValidation is the form-wide trigger mode ("input" or "change").
	StartValidation string               `json:"startValidation,omitempty" yaml:"startValidation,omitempty"`
	Fields          map[string]FieldSpec `json:"fields,omitempty" yaml:"fields,omitempty"`
	Regions         []RegionSpec         `json:"regions,omitempty" yaml:"regions,omitempty"`
	// Controls describes the markup of the form. It is optional when the
	// form is registered against an existing document.
	Controls []ControlSpec `json:"controls,omitempty" yaml:"controls,omitempty"`

	// Source records the file the spec was loaded from, if any.
	Source string `json:"-" yaml:"-"`
}

// FieldSpec overrides what the control itself declares. Nil flags defer to
// the control.
type FieldSpec struct {
	Required *bool `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled *bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// ValidTemplate and BlockedTemplate accept the inline template syntax
	// ("/regexp/", a literal string or a number).
	ValidTemplate   any    `json:"validTemplate,omitempty" yaml:"validTemplate,omitempty"`
	BlockedTemplate any    `json:"blockedTemplate,omitempty" yaml:"blockedTemplate,omitempty"`
	StartValidation string `json:"startValidation,omitempty" yaml:"startValidation,omitempty"`
	Label           string `json:"label,omitempty" yaml:"label,omitempty"`

	OnValid func() `json:"-" yaml:"-"`
}

// RegionSpec declares a hidden-region marker. With VisibleWhen set, the
// region is shown while the expression holds.
type RegionSpec struct {
	Name        string `json:"name" yaml:"name"`
	Parent      string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Hidden      bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	VisibleWhen string `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
}

// Bool is a convenience for the optional flags of FieldSpec.
func Bool(v bool) *bool { return &v }

// Mode returns the parsed form-wide trigger mode.
func (s FormSpec) Mode() (field.Mode, error) {
	mode, ok := field.ParseMode(s.StartValidation)
	if !ok {
		return field.ModeNone, fmt.Errorf("%w: form %q: unknown startValidation %q", ErrInvalidSpec, s.Name, s.StartValidation)
	}
	return mode, nil
}

// Field returns the overrides for name; the zero FieldSpec when absent.
func (s FormSpec) Field(name string) FieldSpec {
	return s.Fields[name]
}

// FieldNames returns the names with overrides, sorted.
func (s FormSpec) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Labels maps field names to their configured labels.
func (s FormSpec) Labels() map[string]string {
	out := make(map[string]string)
	for name, f := range s.Fields {
		if label := strings.TrimSpace(f.Label); label != "" {
			out[name] = label
		}
	}
	return out
}

// VisibilityRules converts the region list for the visibility package.
func (s FormSpec) VisibilityRules() []visibility.Rule {
	out := make([]visibility.Rule, 0, len(s.Regions))
	for _, r := range s.Regions {
		if strings.TrimSpace(r.VisibleWhen) == "" {
			continue
		}
		out = append(out, visibility.Rule{Region: r.Name, When: r.VisibleWhen})
	}
	return out
}

// Validate checks everything that can be checked without the document:
// the name, trigger modes, region rules and template syntax.
func (s FormSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: form name is required", ErrInvalidSpec)
	}
	if _, err := s.Mode(); err != nil {
		return err
	}
	for _, name := range s.FieldNames() {
		f := s.Fields[name]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: form %q: empty field name", ErrInvalidSpec, s.Name)
		}
		if _, err := f.Mode(); err != nil {
			return fmt.Errorf("form %q field %q: %w", s.Name, name, err)
		}
		if _, _, err := f.Rules(""); err != nil {
			return fmt.Errorf("%w: form %q field %q: %v", ErrInvalidSpec, s.Name, name, err)
		}
	}
	seen := make(map[string]struct{}, len(s.Regions))
	for _, r := range s.Regions {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return fmt.Errorf("%w: form %q: region without a name", ErrInvalidSpec, s.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: form %q: duplicate region %q", ErrInvalidSpec, s.Name, name)
		}
		seen[name] = struct{}{}
	}
	for _, r := range s.Regions {
		if r.Parent == "" {
			continue
		}
		if _, ok := seen[r.Parent]; !ok || r.Parent == r.Name {
			return fmt.Errorf("%w: form %q region %q: unknown parent %q", ErrInvalidSpec, s.Name, r.Name, r.Parent)
		}
	}
	if len(s.Controls) > 0 {
		if _, err := s.Elements(); err != nil {
			return err
		}
	}
	return nil
}

// Mode returns the parsed field-level trigger mode.
func (f FieldSpec) Mode() (field.Mode, error) {
	mode, ok := field.ParseMode(f.StartValidation)
	if !ok {
		return field.ModeNone, fmt.Errorf("%w: unknown startValidation %q", ErrInvalidSpec, f.StartValidation)
	}
	return mode, nil
}

// Rules builds the templates for a control of the given HTML type.
func (f FieldSpec) Rules(controlType string) (valid, blocked rule.Rule, err error) {
	valid, err = rule.FromValue(f.ValidTemplate, controlType)
	if err != nil {
		return rule.Rule{}, rule.Rule{}, fmt.Errorf("valid template: %w", err)
	}
	blocked, err = rule.FromValue(f.BlockedTemplate, controlType)
	if err != nil {
		return rule.Rule{}, rule.Rule{}, fmt.Errorf("blocked template: %w", err)
	}
	return valid, blocked, nil
}
