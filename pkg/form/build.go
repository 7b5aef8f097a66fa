package form

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/field"
)

// Configure returns the field configuration for a named control group.
type Configure func(name string) field.Config

// BuildFields turns a form's controls into fields in document order. Radios
// sharing a name collapse into one group; buttons and unnamed controls are
// skipped.
func BuildFields(controls []control.Control, configure Configure) ([]field.Field, error) {
	type group struct {
		name     string
		controls []control.Control
	}
	var order []*group
	byName := make(map[string]*group)

	for _, c := range controls {
		if c == nil || c.Name() == "" || !c.Kind().Validatable() {
			continue
		}
		g, seen := byName[c.Name()]
		if !seen {
			g = &group{name: c.Name()}
			byName[c.Name()] = g
			order = append(order, g)
		} else if c.Kind() != control.KindRadio || g.controls[0].Kind() != control.KindRadio {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateControl, c.Name())
		}
		g.controls = append(g.controls, c)
	}

	out := make([]field.Field, 0, len(order))
	for _, g := range order {
		var cfg field.Config
		if configure != nil {
			cfg = configure(g.name)
		}
		fld, err := field.New(g.controls, cfg)
		if err != nil {
			return nil, fmt.Errorf("form: field %q: %w", g.name, err)
		}
		out = append(out, fld)
	}
	return out, nil
}
