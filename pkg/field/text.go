package field

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/rule"
)

// Text wraps an <input> (any non-choice type) or a <textarea>.
type Text struct {
	base
	ctrl       control.Control
	templates  rule.Templates
	valid      rule.Rule
	blocked    rule.Rule
	startValue string
	value      any
}

var (
	_ Field    = (*Text)(nil)
	_ Admitter = (*Text)(nil)
)

// NewText builds a text field. Inline template attributes are parsed here so
// malformed patterns fail at registration.
func NewText(ctrl control.Control, cfg Config) (*Text, error) {
	t := &Text{
		base:      newBase(ctrl.Name(), KindText, ctrl.Type(), cfg),
		ctrl:      ctrl,
		templates: cfg.Templates,
		valid:     cfg.ValidTemplate,
		blocked:   cfg.BlockedTemplate,
	}
	if t.templates.Valid == nil && t.templates.Blocked == nil {
		t.templates = rule.DefaultTemplates()
	}

	attrs := cfg.attributes()
	if t.valid.IsZero() {
		r, err := inlineRule(ctrl, attrs.ValidTemplate)
		if err != nil {
			return nil, fmt.Errorf("field: %s: valid template: %w", t.name, err)
		}
		t.valid = r
	}
	if t.blocked.IsZero() {
		r, err := inlineRule(ctrl, attrs.BlockedTemplate)
		if err != nil {
			return nil, fmt.Errorf("field: %s: blocked template: %w", t.name, err)
		}
		t.blocked = r
	}

	if raw := ctrl.Value(); raw != " " {
		t.startValue = raw
	}
	t.remember(ctrl)
	t.startRequired = cfg.Required || ctrl.Required()
	t.startDisabled = cfg.Disabled || ctrl.Disabled()
	t.unhide()

	_, hasTypeValid := t.templates.ValidFor(t.controlType)
	_, hasTypeBlocked := t.templates.BlockedFor(t.controlType)
	validates := t.startRequired || !t.valid.IsZero() || hasTypeValid
	modes := cfg.modes(ctrl)
	t.triggers = Triggers{
		Live:   validates && hasMode(modes, ModeLive),
		Commit: validates && hasMode(modes, ModeCommit),
		Admit:  !t.blocked.IsZero() || hasTypeBlocked,
	}
	return t, nil
}

func inlineRule(ctrl control.Control, attr string) (rule.Rule, error) {
	if attr == "" {
		return rule.Rule{}, nil
	}
	raw, ok := ctrl.Attr(attr)
	if !ok || raw == "" {
		return rule.Rule{}, nil
	}
	return rule.ParseTemplate(raw, ctrl.Type())
}

// ValidTemplate returns the field-specific validity rule.
func (t *Text) ValidTemplate() rule.Rule { return t.valid }

// BlockedTemplate returns the field-specific admission rule.
func (t *Text) BlockedTemplate() rule.Rule { return t.blocked }

func (t *Text) Evaluate() State {
	raw := t.ctrl.Value()
	if raw == " " {
		raw = ""
	}
	t.value = t.coerce(raw)
	if t.hidden {
		return t.concludeHidden()
	}

	if t.required && !t.disabled && raw == "" {
		return t.conclude(InvalidRequired)
	}
	if raw != "" {
		if !t.valid.IsZero() && !rule.Matches(t.valid, raw) {
			return t.conclude(InvalidPattern)
		}
		if typeRule, ok := t.templates.ValidFor(t.controlType); ok && !rule.Matches(typeRule, raw) {
			return t.conclude(InvalidPattern)
		}
	}
	return t.conclude(Valid)
}

func (t *Text) RawInput() string { return t.ctrl.Value() }

// AdmitInput gates a keystroke. A value failing the blocked rule rolls the
// control back to the last accepted value.
func (t *Text) AdmitInput(raw string) (string, bool) {
	if raw == " " {
		raw = ""
		t.ctrl.SetValue("")
	}
	gate := t.blocked
	if gate.IsZero() {
		gate, _ = t.templates.BlockedFor(t.controlType)
	}
	if rule.Matches(gate, raw) {
		t.value = t.coerce(raw)
		return raw, true
	}
	rollback := ""
	if t.value != nil {
		rollback = rule.Stringify(t.value)
	}
	t.ctrl.SetValue(rollback)
	return rollback, false
}

func (t *Text) Value() (any, bool) {
	if t.hidden || rule.IsEmpty(t.value) {
		return nil, false
	}
	return t.value, true
}

func (t *Text) SetHidden() {
	t.hide()
	t.mirror()
}

func (t *Text) Unhide() {
	t.unhide()
	t.mirror()
}

func (t *Text) Reset() {
	t.clear()
	t.value = nil
	t.ctrl.SetValue(t.startValue)
}

func (t *Text) mirror() {
	t.ctrl.SetRequired(t.required)
	t.ctrl.SetDisabled(t.disabled)
}

func (t *Text) coerce(raw string) any {
	if raw == "" {
		return nil
	}
	if t.controlType == "number" {
		if n, ok := rule.ToNumber(raw); ok {
			return n
		}
	}
	return raw
}
