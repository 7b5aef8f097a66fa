// Package field models the validity state of a single logical form control.
// Four variants (Text, Select, Checkbox, RadioGroup) share the Field
// capability interface; the form package only talks to that interface.
package field

import (
	"errors"
	"strings"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/rule"
)

var (
	// ErrNoControls is returned when a field is built from an empty control set.
	ErrNoControls = errors.New("field: no controls supplied")
	// ErrUnsupportedControl is returned for buttons and other non-data controls.
	ErrUnsupportedControl = errors.New("field: unsupported control kind")
)

// Kind tags the variant behind a Field.
type Kind int

const (
	KindText Kind = iota
	KindSelect
	KindCheckbox
	KindRadioGroup
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSelect:
		return "select"
	case KindCheckbox:
		return "checkbox"
	case KindRadioGroup:
		return "radio"
	default:
		return "unknown"
	}
}

// State is the outcome of the last local evaluation.
type State int

const (
	Unevaluated State = iota
	Valid
	InvalidRequired
	InvalidPattern
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case InvalidRequired:
		return "invalid-required"
	case InvalidPattern:
		return "invalid-pattern"
	default:
		return "unevaluated"
	}
}

func (s State) signal() feedback.Signal {
	switch s {
	case InvalidRequired:
		return feedback.RequiredViolation
	case InvalidPattern:
		return feedback.PatternViolation
	default:
		return feedback.Clear
	}
}

// Mode selects which event class starts validation.
type Mode string

const (
	ModeNone   Mode = ""
	ModeLive   Mode = "input"
	ModeCommit Mode = "change"
)

// ParseMode accepts "input"/"live" and "change"/"commit".
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "input", "live":
		return ModeLive, true
	case "change", "commit":
		return ModeCommit, true
	case "":
		return ModeNone, true
	default:
		return ModeNone, false
	}
}

// Triggers describes which events a field reacts to.
type Triggers struct {
	// Live evaluates on every keystroke.
	Live bool
	// Commit evaluates when the control loses focus with a changed value.
	Commit bool
	// Admit runs the blocked-template gate on every keystroke.
	Admit bool
}

// Field is the capability interface shared by every variant.
type Field interface {
	Name() string
	Kind() Kind
	// ControlType is the HTML type attribute of the (first) control.
	ControlType() string
	// Evaluate recomputes validity from the control and emits a signal.
	Evaluate() State
	State() State
	// CustomValid is false after a rejecting verdict until the next Evaluate.
	CustomValid() bool
	// Value is the committed value; absent while hidden or empty.
	Value() (any, bool)
	Hidden() bool
	Required() bool
	Disabled() bool
	SetHidden()
	Unhide()
	MarkCustomInvalid()
	Reset()
	Triggers() Triggers
	// Release writes the native flags back to the controls.
	Release()
}

// Admitter is implemented by fields that filter keystrokes. RawInput is the
// control's current (uncommitted) value.
type Admitter interface {
	AdmitInput(raw string) (string, bool)
	RawInput() string
}

// Attributes names the data attributes read from controls.
type Attributes struct {
	ValidTemplate   string
	BlockedTemplate string
	StartValidation string
}

// DefaultAttributes returns the conventional data-* attribute names.
func DefaultAttributes() Attributes {
	return Attributes{
		ValidTemplate:   "data-valid-template",
		BlockedTemplate: "data-blocked-template",
		StartValidation: "data-start-validation",
	}
}

// Config carries the per-field overrides resolved by the caller.
type Config struct {
	Form string
	// Required and Disabled are OR-ed with the native control flags.
	Required bool
	Disabled bool
	// ValidTemplate and BlockedTemplate take precedence over inline
	// attributes. Only text fields use them.
	ValidTemplate   rule.Rule
	BlockedTemplate rule.Rule
	// StartValidation is the field-level trigger mode.
	StartValidation Mode
	// Inherited holds the form-level and registry-level trigger modes.
	Inherited  []Mode
	Templates  rule.Templates
	Attributes Attributes
	Sink       feedback.Sink
	// OnValid runs after every evaluation that ends valid.
	OnValid func()
}

func (c Config) sink() feedback.Sink {
	if c.Sink == nil {
		return feedback.Nop{}
	}
	return c.Sink
}

func (c Config) attributes() Attributes {
	if c.Attributes == (Attributes{}) {
		return DefaultAttributes()
	}
	return c.Attributes
}

// modes unions the field-level mode (or its inline attribute) with the
// inherited ones.
func (c Config) modes(ctrl control.Control) []Mode {
	out := append([]Mode(nil), c.Inherited...)
	mode := c.StartValidation
	if mode == ModeNone {
		if name := c.attributes().StartValidation; name != "" && ctrl != nil {
			if raw, ok := ctrl.Attr(name); ok {
				if parsed, ok := ParseMode(raw); ok {
					mode = parsed
				}
			}
		}
	}
	if mode != ModeNone {
		out = append(out, mode)
	}
	return out
}

func hasMode(modes []Mode, want Mode) bool {
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

// base holds the state every variant shares.
type base struct {
	name        string
	kind        Kind
	controlType string
	form        string
	sink        feedback.Sink
	onValid     func()

	startRequired bool
	startDisabled bool
	required      bool
	disabled      bool
	hidden        bool

	state         State
	customInvalid bool
	triggers      Triggers

	natives []native
}

// native is a control's own flags as found before the field was built.
type native struct {
	ctrl     control.Control
	required bool
	disabled bool
}

func (b *base) Name() string        { return b.name }
func (b *base) Kind() Kind          { return b.kind }
func (b *base) ControlType() string { return b.controlType }
func (b *base) State() State        { return b.state }
func (b *base) CustomValid() bool   { return !b.customInvalid }
func (b *base) Hidden() bool        { return b.hidden }
func (b *base) Required() bool      { return b.required }
func (b *base) Disabled() bool      { return b.disabled }
func (b *base) Triggers() Triggers  { return b.triggers }

// StartRequired and StartDisabled expose the baseline flags.
func (b *base) StartRequired() bool { return b.startRequired }
func (b *base) StartDisabled() bool { return b.startDisabled }

// remember records the native flags of ctrls. Constructors call it before
// the field writes anything to them.
func (b *base) remember(ctrls ...control.Control) {
	for _, c := range ctrls {
		b.natives = append(b.natives, native{ctrl: c, required: c.Required(), disabled: c.Disabled()})
	}
}

func (b *base) Release() {
	for _, n := range b.natives {
		n.ctrl.SetRequired(n.required)
		n.ctrl.SetDisabled(n.disabled)
	}
}

func (b *base) MarkCustomInvalid() {
	b.customInvalid = true
	b.sink.Signal(b.form, b.name, feedback.ServerRejected)
}

// conclude stores the outcome of a visible evaluation.
func (b *base) conclude(state State) State {
	b.state = state
	b.customInvalid = false
	b.sink.Signal(b.form, b.name, state.signal())
	if state == Valid && b.onValid != nil {
		b.onValid()
	}
	return state
}

// concludeHidden short-circuits evaluation for hidden fields.
func (b *base) concludeHidden() State {
	b.state = Valid
	if b.onValid != nil {
		b.onValid()
	}
	return Valid
}

func (b *base) clear() {
	b.state = Unevaluated
	b.customInvalid = false
	b.sink.Signal(b.form, b.name, feedback.Clear)
}

func (b *base) hide() {
	b.hidden = true
	b.required = false
	b.disabled = true
	b.sink.Signal(b.form, b.name, feedback.Clear)
}

func (b *base) unhide() {
	b.hidden = false
	b.required = b.startRequired
	b.disabled = b.startDisabled
}

func newBase(name string, kind Kind, controlType string, cfg Config) base {
	return base{
		name:        name,
		kind:        kind,
		controlType: controlType,
		form:        cfg.Form,
		sink:        cfg.sink(),
		onValid:     cfg.OnValid,
	}
}

// New builds the variant matching the supplied controls. Radio groups pass
// every member; other kinds pass exactly one control.
func New(controls []control.Control, cfg Config) (Field, error) {
	if len(controls) == 0 {
		return nil, ErrNoControls
	}
	first := controls[0]
	switch first.Kind() {
	case control.KindInput, control.KindTextArea:
		return NewText(first, cfg)
	case control.KindSelect:
		return NewSelect(first, cfg), nil
	case control.KindCheckbox:
		return NewCheckbox(first, cfg), nil
	case control.KindRadio:
		return NewRadioGroup(controls, cfg)
	default:
		return nil, ErrUnsupportedControl
	}
}

// Status is a read-only snapshot of a field.
type Status struct {
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	State       string `json:"state" yaml:"state"`
	CustomValid bool   `json:"customValid" yaml:"customValid"`
	Required    bool   `json:"required" yaml:"required"`
	Disabled    bool   `json:"disabled" yaml:"disabled"`
	Hidden      bool   `json:"hidden" yaml:"hidden"`
	Value       any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Describe snapshots f.
func Describe(f Field) Status {
	value, _ := f.Value()
	return Status{
		Name:        f.Name(),
		Kind:        f.Kind().String(),
		State:       f.State().String(),
		CustomValid: f.CustomValid(),
		Required:    f.Required(),
		Disabled:    f.Disabled(),
		Hidden:      f.Hidden(),
		Value:       value,
	}
}
