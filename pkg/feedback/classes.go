package feedback

import (
	"errors"
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// Token names looked up in a theme manifest when deriving indicator classes.
const (
	TokenRequiredClass = "validation.required-class"
	TokenPatternClass  = "validation.pattern-class"
	TokenServerClass   = "validation.server-class"
)

// Classes names the CSS classes toggled for each violation signal.
type Classes struct {
	Required string
	Pattern  string
	Server   string
}

// DefaultClasses mirrors the conventional class names used by the browser
// runtime.
func DefaultClasses() Classes {
	return Classes{
		Required: "empty",
		Pattern:  "invalid",
		Server:   "invalid-server",
	}
}

func (c Classes) withDefaults() Classes {
	def := DefaultClasses()
	if strings.TrimSpace(c.Required) == "" {
		c.Required = def.Required
	}
	if strings.TrimSpace(c.Pattern) == "" {
		c.Pattern = def.Pattern
	}
	if strings.TrimSpace(c.Server) == "" {
		c.Server = def.Server
	}
	return c
}

// ClassTarget applies classes to the element(s) backing a field. The
// in-memory control.Document satisfies it.
type ClassTarget interface {
	AddClass(form, field, class string)
	RemoveClass(form, field, class string)
}

// ClassSink renders signals as class toggles on a ClassTarget.
type ClassSink struct {
	target  ClassTarget
	classes Classes
}

// NewClassSink constructs a sink. Empty class names fall back to
// DefaultClasses.
func NewClassSink(target ClassTarget, classes Classes) *ClassSink {
	return &ClassSink{target: target, classes: classes.withDefaults()}
}

// Classes returns the effective class names.
func (s *ClassSink) Classes() Classes {
	return s.classes
}

// Signal implements Sink. A server rejection is additive; local signals
// replace every indicator.
func (s *ClassSink) Signal(form, field string, signal Signal) {
	if s == nil || s.target == nil {
		return
	}
	switch signal {
	case ServerRejected:
		s.target.AddClass(form, field, s.classes.Server)
		return
	case RequiredViolation:
		s.target.AddClass(form, field, s.classes.Required)
		s.target.RemoveClass(form, field, s.classes.Pattern)
	case PatternViolation:
		s.target.RemoveClass(form, field, s.classes.Required)
		s.target.AddClass(form, field, s.classes.Pattern)
	default:
		s.target.RemoveClass(form, field, s.classes.Required)
		s.target.RemoveClass(form, field, s.classes.Pattern)
	}
	s.target.RemoveClass(form, field, s.classes.Server)
}

// ThemeClasses resolves indicator classes from a theme selection. Variant
// tokens override base manifest tokens; missing tokens keep the defaults.
func ThemeClasses(selector theme.ThemeSelector, name, variant string) (Classes, error) {
	if selector == nil {
		return Classes{}, errors.New("feedback: theme selector is nil")
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return Classes{}, fmt.Errorf("feedback: select theme %q: %w", name, err)
	}
	if selection == nil || selection.Manifest == nil {
		return DefaultClasses(), nil
	}
	variantName := selection.Variant
	if variantName == "" {
		variantName = variant
	}
	return ManifestClasses(selection.Manifest, variantName), nil
}

// ManifestClasses reads indicator classes straight from a manifest.
func ManifestClasses(manifest *theme.Manifest, variant string) Classes {
	tokens := map[string]string{}
	if manifest != nil {
		for k, v := range manifest.Tokens {
			tokens[k] = v
		}
		if v, ok := manifest.Variants[variant]; ok {
			for k, val := range v.Tokens {
				tokens[k] = val
			}
		}
	}
	return Classes{
		Required: tokens[TokenRequiredClass],
		Pattern:  tokens[TokenPatternClass],
		Server:   tokens[TokenServerClass],
	}.withDefaults()
}
