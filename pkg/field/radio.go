package field

import (
	"fmt"

	"github.com/goliatone/go-formstate/pkg/control"
)

// RadioGroup collapses every radio sharing a name into one field. Disabled
// state is tracked per member.
type RadioGroup struct {
	base
	members      []control.Control
	startMembers []bool
	memberFlags  []bool
	startValue   string
	value        string
}

var _ Field = (*RadioGroup)(nil)

// NewRadioGroup builds a radio group field from its members.
func NewRadioGroup(members []control.Control, cfg Config) (*RadioGroup, error) {
	if len(members) == 0 {
		return nil, ErrNoControls
	}
	name := members[0].Name()
	for _, m := range members[1:] {
		if m.Name() != name {
			return nil, fmt.Errorf("field: radio group %q: member %q has a different name", name, m.Name())
		}
	}

	g := &RadioGroup{
		base:         newBase(name, KindRadioGroup, members[0].Type(), cfg),
		members:      append([]control.Control(nil), members...),
		startMembers: make([]bool, len(members)),
	}
	g.remember(members...)
	required := cfg.Required
	for i, m := range members {
		g.startMembers[i] = cfg.Disabled || m.Disabled()
		required = required || m.Required()
		if m.Checked() && g.startValue == "" {
			g.startValue = m.Value()
		}
	}
	g.value = g.startValue
	g.startRequired = required
	g.startDisabled = allTrue(g.startMembers)
	g.unhide()
	g.memberFlags = append([]bool(nil), g.startMembers...)

	var modes []Mode
	for _, m := range members {
		modes = append(modes, cfg.modes(m)...)
	}
	g.triggers = Triggers{Commit: g.startRequired && hasMode(modes, ModeCommit)}
	return g, nil
}

// Members returns the member controls in document order.
func (g *RadioGroup) Members() []control.Control {
	return append([]control.Control(nil), g.members...)
}

// DisabledMembers returns the current per-member disabled flags.
func (g *RadioGroup) DisabledMembers() []bool {
	return append([]bool(nil), g.memberFlags...)
}

func (g *RadioGroup) Evaluate() State {
	g.value = g.selected()
	if g.hidden {
		return g.concludeHidden()
	}
	if g.required && g.anyEnabled() && g.value == "" {
		return g.conclude(InvalidRequired)
	}
	return g.conclude(Valid)
}

func (g *RadioGroup) Value() (any, bool) {
	if g.hidden || g.value == "" {
		return nil, false
	}
	return g.value, true
}

func (g *RadioGroup) SetHidden() {
	g.hide()
	g.memberFlags = make([]bool, len(g.members))
	for i, m := range g.members {
		g.memberFlags[i] = true
		m.SetDisabled(true)
		m.SetRequired(false)
	}
}

func (g *RadioGroup) Unhide() {
	g.unhide()
	g.restoreMembers()
}

func (g *RadioGroup) Reset() {
	g.clear()
	g.value = g.startValue
	for _, m := range g.members {
		m.SetChecked(g.startValue != "" && m.Value() == g.startValue)
	}
}

func (g *RadioGroup) restoreMembers() {
	g.memberFlags = append([]bool(nil), g.startMembers...)
	for i, m := range g.members {
		m.SetDisabled(g.memberFlags[i])
		m.SetRequired(g.required)
	}
}

func (g *RadioGroup) selected() string {
	for _, m := range g.members {
		if m.Checked() {
			return m.Value()
		}
	}
	return ""
}

func (g *RadioGroup) anyEnabled() bool {
	for i, m := range g.members {
		if !g.memberFlags[i] && !m.Disabled() {
			return true
		}
	}
	return false
}

func allTrue(flags []bool) bool {
	if len(flags) == 0 {
		return false
	}
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
