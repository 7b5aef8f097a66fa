package openapi

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/spec"
)

// ErrNoFields is returned for operations whose request body has no
// properties a control can be derived from.
var ErrNoFields = errors.New("openapi: operation has no form fields")

const (
	defaultSubmitName   = "submit"
	textAreaLengthLimit = 255
)

// Form is a registration derived from one operation. The spec carries the
// controls a renderer would produce, so it is self-contained.
type Form struct {
	Spec spec.FormSpec
	// Warnings lists schema details that could not be carried over.
	Warnings []string
}

// DeriveOption customises Derive.
type DeriveOption func(*deriveConfig)

type deriveConfig struct {
	name            string
	submit          string
	startValidation string
}

// WithFormName overrides the form name (the operation id by default).
func WithFormName(name string) DeriveOption {
	return func(c *deriveConfig) {
		c.name = name
	}
}

// WithSubmitName overrides the submit control name ("submit" by default).
func WithSubmitName(name string) DeriveOption {
	return func(c *deriveConfig) {
		c.submit = name
	}
}

// WithStartValidation sets the form-wide trigger mode on the derived spec.
func WithStartValidation(mode string) DeriveOption {
	return func(c *deriveConfig) {
		c.startValidation = mode
	}
}

// Derive maps the top-level request body properties of op onto controls.
// Booleans become checkboxes, enums become selects, numbers become number
// inputs, and string formats select the input type. Required properties are
// required controls; patterns become valid templates.
func Derive(op Operation, opts ...DeriveOption) (Form, error) {
	cfg := deriveConfig{name: op.ID, submit: defaultSubmitName}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if strings.TrimSpace(cfg.name) == "" {
		return Form{}, fmt.Errorf("openapi: operation %s %s has no id", op.Method, op.Path)
	}

	body := op.RequestBody
	out := Form{
		Spec: spec.FormSpec{
			Name:            cfg.name,
			Submit:          cfg.submit,
			StartValidation: cfg.startValidation,
			Fields:          make(map[string]spec.FieldSpec),
		},
	}
	for _, name := range body.PropertyNames() {
		prop := body.Properties[name]
		if prop.ReadOnly {
			continue
		}
		c, ok := controlFor(name, prop, body.IsRequired(name))
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s properties are not supported", name, describeType(prop)))
			continue
		}
		out.Spec.Controls = append(out.Spec.Controls, c)

		fs := spec.FieldSpec{Label: labelFor(prop)}
		if prop.Pattern != "" && c.Type != "select" && c.Type != "checkbox" {
			if _, err := regexp.Compile(prop.Pattern); err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s: pattern %q is not supported: %v", name, prop.Pattern, err))
			} else {
				fs.ValidTemplate = "/" + prop.Pattern + "/"
			}
		}
		if fs.Label != "" || fs.ValidTemplate != nil {
			out.Spec.Fields[name] = fs
		}
	}
	if len(out.Spec.Controls) == 0 {
		return Form{}, fmt.Errorf("%w: %q", ErrNoFields, cfg.name)
	}
	if cfg.submit != "" {
		out.Spec.Controls = append(out.Spec.Controls, spec.ControlSpec{Name: cfg.submit, Type: "submit"})
	}
	if len(out.Spec.Fields) == 0 {
		out.Spec.Fields = nil
	}
	return out, nil
}

// Document renders the derived controls into a fresh in-memory document.
func (f Form) Document() (*control.Document, error) {
	return spec.Document(f.Spec)
}

func controlFor(name string, prop Schema, required bool) (spec.ControlSpec, bool) {
	c := spec.ControlSpec{Name: name, Required: required}

	switch {
	case prop.Type == "boolean":
		if b, ok := prop.Default.(bool); ok && b {
			c.Checked = true
		}
		c.Type = "checkbox"
		return c, true
	case len(prop.Enum) > 0:
		c.Type = "select"
		for _, v := range prop.Enum {
			c.Options = append(c.Options, rule.Stringify(v))
		}
		if prop.Default != nil {
			c.Value = rule.Stringify(prop.Default)
		}
		return c, true
	}

	if prop.Default != nil {
		c.Value = rule.Stringify(prop.Default)
	}
	switch prop.Type {
	case "integer", "number":
		c.Type = "number"
		return c, true
	case "string", "":
		if prop.Type == "" && prop.Format == "" && prop.Pattern == "" {
			return spec.ControlSpec{}, false
		}
		if prop.MaxLength != nil && *prop.MaxLength > textAreaLengthLimit {
			c.Type = "textarea"
			return c, true
		}
		c.Type = inputType(prop.Format)
		return c, true
	default:
		return spec.ControlSpec{}, false
	}
}

func inputType(format string) string {
	switch strings.ToLower(format) {
	case "email", "idn-email":
		return "email"
	case "password":
		return "password"
	case "date":
		return "date"
	case "date-time":
		return "datetime-local"
	case "time":
		return "time"
	case "uri", "url", "iri":
		return "url"
	case "phone", "tel":
		return "tel"
	default:
		return "text"
	}
}

func labelFor(prop Schema) string {
	if t := strings.TrimSpace(prop.Title); t != "" {
		return t
	}
	return strings.TrimSpace(prop.Description)
}

func describeType(prop Schema) string {
	if prop.Type != "" {
		return prop.Type
	}
	if prop.Ref != "" {
		return "recursive"
	}
	return "untyped"
}

// OperationIDs returns the keys of ops, sorted.
func OperationIDs(ops map[string]Operation) []string {
	out := make([]string, 0, len(ops))
	for id := range ops {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the operation with the given id.
func Lookup(ops map[string]Operation, id string) (Operation, error) {
	op, ok := ops[id]
	if !ok {
		return Operation{}, fmt.Errorf("openapi: operation %q not found (have %s)", id, strings.Join(OperationIDs(ops), ", "))
	}
	return op, nil
}
