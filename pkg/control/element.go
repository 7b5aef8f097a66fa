package control

import "sort"

// Element is the Document's Control implementation.
type Element struct {
	name     string
	kind     Kind
	typ      string
	value    string
	checked  bool
	required bool
	disabled bool
	attrs    map[string]string
	options  []string
	region   string
	classes  map[string]struct{}
}

var _ Control = (*Element)(nil)

// ElementOption customises an Element at construction.
type ElementOption func(*Element)

// WithValue seeds the element's value attribute.
func WithValue(value string) ElementOption {
	return func(e *Element) { e.value = value }
}

// WithChecked pre-checks a checkbox or radio element.
func WithChecked() ElementOption {
	return func(e *Element) { e.checked = true }
}

// WithRequired sets the native required flag.
func WithRequired() ElementOption {
	return func(e *Element) { e.required = true }
}

// WithDisabled sets the native disabled flag.
func WithDisabled() ElementOption {
	return func(e *Element) { e.disabled = true }
}

// WithAttr sets an arbitrary attribute (data-valid-template and friends).
func WithAttr(name, value string) ElementOption {
	return func(e *Element) { e.attrs[name] = value }
}

// WithOptions lists the choices of a select element.
func WithOptions(options ...string) ElementOption {
	return func(e *Element) { e.options = append([]string(nil), options...) }
}

// InRegion places the element inside a hidden-region marker.
func InRegion(region string) ElementOption {
	return func(e *Element) { e.region = region }
}

// NewElement constructs an element of the given kind.
func NewElement(kind Kind, name, typ string, opts ...ElementOption) *Element {
	el := &Element{
		name:    name,
		kind:    kind,
		typ:     typ,
		attrs:   make(map[string]string),
		classes: make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(el)
		}
	}
	return el
}

// Input builds an <input> of the given type.
func Input(name, typ string, opts ...ElementOption) *Element {
	if typ == "" {
		typ = "text"
	}
	return NewElement(KindInput, name, typ, opts...)
}

// TextArea builds a <textarea>.
func TextArea(name string, opts ...ElementOption) *Element {
	return NewElement(KindTextArea, name, "textarea", opts...)
}

// Select builds a single <select>; its value is the selected option value.
func Select(name string, opts ...ElementOption) *Element {
	return NewElement(KindSelect, name, "select-one", opts...)
}

// Checkbox builds a checkbox input.
func Checkbox(name string, opts ...ElementOption) *Element {
	return NewElement(KindCheckbox, name, "checkbox", opts...)
}

// Radio builds one member of a radio group.
func Radio(name, value string, opts ...ElementOption) *Element {
	return NewElement(KindRadio, name, "radio", append([]ElementOption{WithValue(value)}, opts...)...)
}

// SubmitButton builds a submit control.
func SubmitButton(name string, opts ...ElementOption) *Element {
	return NewElement(KindSubmit, name, "submit", opts...)
}

func (e *Element) Name() string              { return e.name }
func (e *Element) Kind() Kind                { return e.kind }
func (e *Element) Type() string              { return e.typ }
func (e *Element) Value() string             { return e.value }
func (e *Element) SetValue(value string)     { e.value = value }
func (e *Element) Checked() bool             { return e.checked }
func (e *Element) SetChecked(checked bool)   { e.checked = checked }
func (e *Element) Required() bool            { return e.required }
func (e *Element) SetRequired(required bool) { e.required = required }
func (e *Element) Disabled() bool            { return e.disabled }
func (e *Element) SetDisabled(disabled bool) { e.disabled = disabled }
func (e *Element) Region() string            { return e.region }

func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// Options returns the choices of a select element.
func (e *Element) Options() []string { return append([]string(nil), e.options...) }

// Classes returns the element's class list, sorted.
func (e *Element) Classes() []string {
	out := make([]string, 0, len(e.classes))
	for class := range e.classes {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy without classes, so one element template can
// seed several documents.
func (e *Element) Clone() *Element {
	out := *e
	out.attrs = make(map[string]string, len(e.attrs))
	for k, v := range e.attrs {
		out.attrs[k] = v
	}
	out.options = append([]string(nil), e.options...)
	out.classes = make(map[string]struct{})
	return &out
}
