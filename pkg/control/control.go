package control

// Kind classifies a form control the way the browser does by tag/type.
type Kind string

const (
	KindInput    Kind = "input"
	KindTextArea Kind = "textarea"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
	KindSubmit   Kind = "submit"
	KindButton   Kind = "button"
)

// Validatable reports whether controls of this kind carry form data.
func (k Kind) Validatable() bool {
	switch k {
	case KindInput, KindTextArea, KindSelect, KindCheckbox, KindRadio:
		return true
	default:
		return false
	}
}

// EventClass distinguishes the events a control can emit.
type EventClass int

const (
	// Live fires on every keystroke or selection change ("input").
	Live EventClass = iota
	// Commit fires when the user leaves a control with a changed value
	// ("change").
	Commit
	// Activate fires when a button-like control is clicked.
	Activate
)

func (c EventClass) String() string {
	switch c {
	case Live:
		return "input"
	case Commit:
		return "change"
	case Activate:
		return "click"
	default:
		return "unknown"
	}
}

// Control is a single form control. Radio buttons sharing a name are
// separate Controls; callers group them.
type Control interface {
	Name() string
	Kind() Kind
	// Type is the HTML type attribute ("text", "number", "email"...).
	Type() string
	Value() string
	SetValue(value string)
	Checked() bool
	SetChecked(checked bool)
	Required() bool
	SetRequired(required bool)
	Disabled() bool
	SetDisabled(disabled bool)
	// Attr returns an arbitrary attribute such as data-valid-template.
	Attr(name string) (string, bool)
}

// Source enumerates the controls of a form by form name, in document order.
type Source interface {
	Controls(form string) ([]Control, error)
}

// Handler receives dispatched events.
type Handler func(field string, class EventClass)

// EventSource delivers control events for a form to a single handler.
type EventSource interface {
	Listen(form string, handler Handler) (unsubscribe func())
}

// ScopeResolver maps opaque hidden-region markers to the field names they
// contain.
type ScopeResolver interface {
	// HiddenRegions lists the regions of form that are hidden right now.
	HiddenRegions(form string) []string
	// Scope lists field names inside region. When hidden is false, fields
	// nested in other still-hidden regions are excluded.
	Scope(form, region string, hidden bool) []string
}

// RegionView lets the engine flip a region's rendered visibility when a
// visibility rule changes outcome.
type RegionView interface {
	SetRegionHidden(form, region string, hidden bool)
}
