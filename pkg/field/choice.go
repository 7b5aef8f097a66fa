package field

import "github.com/goliatone/go-formstate/pkg/control"

// Select wraps a single <select>. It has required semantics only.
type Select struct {
	base
	ctrl       control.Control
	startValue string
	value      string
}

var _ Field = (*Select)(nil)

// NewSelect builds a select field.
func NewSelect(ctrl control.Control, cfg Config) *Select {
	s := &Select{
		base:       newBase(ctrl.Name(), KindSelect, ctrl.Type(), cfg),
		ctrl:       ctrl,
		startValue: ctrl.Value(),
	}
	s.remember(ctrl)
	s.startRequired = cfg.Required || ctrl.Required()
	s.startDisabled = cfg.Disabled || ctrl.Disabled()
	s.unhide()
	s.triggers = Triggers{Commit: s.startRequired && hasMode(cfg.modes(ctrl), ModeCommit)}
	return s
}

func (s *Select) Evaluate() State {
	s.value = s.ctrl.Value()
	if s.hidden {
		return s.concludeHidden()
	}
	if s.required && !s.disabled && s.value == "" {
		return s.conclude(InvalidRequired)
	}
	return s.conclude(Valid)
}

func (s *Select) Value() (any, bool) {
	if s.hidden || s.value == "" {
		return nil, false
	}
	return s.value, true
}

func (s *Select) SetHidden() {
	s.hide()
	s.mirror()
}

func (s *Select) Unhide() {
	s.unhide()
	s.mirror()
}

func (s *Select) Reset() {
	s.clear()
	s.value = ""
	s.ctrl.SetValue(s.startValue)
}

func (s *Select) mirror() {
	s.ctrl.SetRequired(s.required)
	s.ctrl.SetDisabled(s.disabled)
}

// Checkbox wraps a single checkbox. Its value is always present while
// visible: the control value (or "yes") when checked, "no" otherwise.
type Checkbox struct {
	base
	ctrl         control.Control
	startChecked bool
	checked      bool
}

var _ Field = (*Checkbox)(nil)

// NewCheckbox builds a checkbox field.
func NewCheckbox(ctrl control.Control, cfg Config) *Checkbox {
	c := &Checkbox{
		base:         newBase(ctrl.Name(), KindCheckbox, ctrl.Type(), cfg),
		ctrl:         ctrl,
		startChecked: ctrl.Checked(),
		checked:      ctrl.Checked(),
	}
	c.remember(ctrl)
	c.startRequired = cfg.Required || ctrl.Required()
	c.startDisabled = cfg.Disabled || ctrl.Disabled()
	c.unhide()
	c.triggers = Triggers{Commit: c.startRequired && hasMode(cfg.modes(ctrl), ModeCommit)}
	return c
}

// Checked reports the last evaluated checked state.
func (c *Checkbox) Checked() bool { return c.checked }

func (c *Checkbox) Evaluate() State {
	c.checked = c.ctrl.Checked()
	if c.hidden {
		return c.concludeHidden()
	}
	if c.required && !c.disabled && !c.checked {
		return c.conclude(InvalidRequired)
	}
	return c.conclude(Valid)
}

func (c *Checkbox) Value() (any, bool) {
	if c.hidden {
		return nil, false
	}
	if !c.checked {
		return "no", true
	}
	if v := c.ctrl.Value(); v != "" && v != "on" {
		return v, true
	}
	return "yes", true
}

func (c *Checkbox) SetHidden() {
	c.hide()
	c.mirror()
}

func (c *Checkbox) Unhide() {
	c.unhide()
	c.mirror()
}

func (c *Checkbox) Reset() {
	c.clear()
	c.checked = c.startChecked
	c.ctrl.SetChecked(c.startChecked)
}

func (c *Checkbox) mirror() {
	c.ctrl.SetRequired(c.required)
	c.ctrl.SetDisabled(c.disabled)
}
