package spec

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formstate/pkg/control"
)

// ControlSpec describes one control of a self-contained form. Type selects
// the element: "textarea", "select", "checkbox", "radio", "submit" and
// "button" map to their own kinds, anything else is an input type.
type ControlSpec struct {
	Name     string            `json:"name" yaml:"name"`
	Type     string            `json:"type,omitempty" yaml:"type,omitempty"`
	Value    string            `json:"value,omitempty" yaml:"value,omitempty"`
	Options  []string          `json:"options,omitempty" yaml:"options,omitempty"`
	Required bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Checked  bool              `json:"checked,omitempty" yaml:"checked,omitempty"`
	Region   string            `json:"region,omitempty" yaml:"region,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Elements builds the document elements described by Controls. A radio
// control expands into one member per option; the member matching Value
// starts checked.
func (s FormSpec) Elements() ([]*control.Element, error) {
	regions := make(map[string]struct{}, len(s.Regions))
	for _, r := range s.Regions {
		regions[r.Name] = struct{}{}
	}

	var out []*control.Element
	seen := make(map[string]struct{}, len(s.Controls))
	for i, c := range s.Controls {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: form %q: control %d has no name", ErrInvalidSpec, s.Name, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: form %q: duplicate control %q", ErrInvalidSpec, s.Name, name)
		}
		seen[name] = struct{}{}
		if c.Region != "" {
			if _, ok := regions[c.Region]; !ok {
				return nil, fmt.Errorf("%w: form %q control %q: undeclared region %q", ErrInvalidSpec, s.Name, name, c.Region)
			}
		}

		opts := c.options()
		typ := strings.ToLower(strings.TrimSpace(c.Type))
		switch typ {
		case "radio":
			if len(c.Options) == 0 {
				return nil, fmt.Errorf("%w: form %q control %q: radio needs options", ErrInvalidSpec, s.Name, name)
			}
			for _, option := range c.Options {
				memberOpts := opts
				if option == c.Value {
					memberOpts = append(append([]control.ElementOption(nil), opts...), control.WithChecked())
				}
				out = append(out, control.Radio(name, option, memberOpts...))
			}
			continue
		case "textarea":
			out = append(out, control.TextArea(name, append(opts, control.WithValue(c.Value))...))
		case "select":
			opts = append(opts, control.WithOptions(c.Options...), control.WithValue(c.Value))
			out = append(out, control.Select(name, opts...))
		case "checkbox":
			if c.Checked {
				opts = append(opts, control.WithChecked())
			}
			out = append(out, control.Checkbox(name, append(opts, control.WithValue(c.Value))...))
		case "submit":
			out = append(out, control.SubmitButton(name, opts...))
		case "button":
			out = append(out, control.NewElement(control.KindButton, name, "button", opts...))
		default:
			out = append(out, control.Input(name, typ, append(opts, control.WithValue(c.Value))...))
		}
	}
	return out, nil
}

func (c ControlSpec) options() []control.ElementOption {
	var opts []control.ElementOption
	if c.Required {
		opts = append(opts, control.WithRequired())
	}
	if c.Disabled {
		opts = append(opts, control.WithDisabled())
	}
	if c.Region != "" {
		opts = append(opts, control.InRegion(c.Region))
	}
	for name, value := range c.Attrs {
		opts = append(opts, control.WithAttr(name, value))
	}
	return opts
}

// Document renders the forms into a fresh in-memory document, declaring
// their regions. Specs without controls produce empty forms.
func Document(specs ...FormSpec) (*control.Document, error) {
	doc := control.NewDocument()
	for _, s := range specs {
		elements, err := s.Elements()
		if err != nil {
			return nil, err
		}
		node := doc.AddForm(s.Name, elements...)
		for _, r := range s.Regions {
			node.AddRegion(r.Name, r.Parent, r.Hidden)
		}
	}
	return doc, nil
}
