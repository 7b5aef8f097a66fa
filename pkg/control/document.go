package control

import (
	"fmt"
	"sort"
	"strings"
)

// Document is an in-memory stand-in for a rendered page. It implements
// Source, EventSource, ScopeResolver and RegionView so the engine can run
// headless (tests, terminal sessions, server-side re-validation). A Document
// is not safe for concurrent use, matching the single-threaded event model.
type Document struct {
	forms map[string]*FormNode
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{forms: make(map[string]*FormNode)}
}

// FormNode holds the controls and hidden regions of one form.
type FormNode struct {
	name     string
	elements []*Element
	regions  map[string]*regionNode
	handlers map[int]Handler
	nextID   int
}

type regionNode struct {
	name   string
	parent string
	hidden bool
}

var (
	_ Source        = (*Document)(nil)
	_ EventSource   = (*Document)(nil)
	_ ScopeResolver = (*Document)(nil)
	_ RegionView    = (*Document)(nil)
)

// AddForm registers a form with the supplied elements, replacing any form of
// the same name.
func (d *Document) AddForm(name string, elements ...*Element) *FormNode {
	node := &FormNode{
		name:     name,
		regions:  make(map[string]*regionNode),
		handlers: make(map[int]Handler),
	}
	node.Append(elements...)
	d.forms[name] = node
	return node
}

// FormNode returns the node registered under name.
func (d *Document) FormNode(name string) (*FormNode, bool) {
	node, ok := d.forms[name]
	return node, ok
}

// Append adds elements to the end of the form.
func (f *FormNode) Append(elements ...*Element) *FormNode {
	for _, el := range elements {
		if el != nil {
			f.elements = append(f.elements, el)
		}
	}
	return f
}

// AddRegion declares a hidden-region marker. parent nests the region inside
// another one; elements join a region through InRegion.
func (f *FormNode) AddRegion(name, parent string, hidden bool) *FormNode {
	f.regions[name] = &regionNode{name: name, parent: parent, hidden: hidden}
	return f
}

// Elements returns every element in document order.
func (f *FormNode) Elements() []*Element {
	return append([]*Element(nil), f.elements...)
}

// Element returns the first element named name.
func (f *FormNode) Element(name string) (*Element, bool) {
	for _, el := range f.elements {
		if el.name == name {
			return el, true
		}
	}
	return nil, false
}

// Group returns every element named name (radio groups).
func (f *FormNode) Group(name string) []*Element {
	var out []*Element
	for _, el := range f.elements {
		if el.name == name {
			out = append(out, el)
		}
	}
	return out
}

// RegionHidden reports the current state of a region.
func (f *FormNode) RegionHidden(region string) bool {
	r, ok := f.regions[region]
	return ok && r.hidden
}

// Controls implements Source.
func (d *Document) Controls(form string) ([]Control, error) {
	node, ok := d.forms[form]
	if !ok {
		return nil, fmt.Errorf("control: form %q not found in document", form)
	}
	out := make([]Control, 0, len(node.elements))
	for _, el := range node.elements {
		out = append(out, el)
	}
	return out, nil
}

// Listen implements EventSource.
func (d *Document) Listen(form string, handler Handler) func() {
	node, ok := d.forms[form]
	if !ok || handler == nil {
		return func() {}
	}
	id := node.nextID
	node.nextID++
	node.handlers[id] = handler
	return func() {
		delete(node.handlers, id)
	}
}

// HiddenRegions implements ScopeResolver.
func (d *Document) HiddenRegions(form string) []string {
	node, ok := d.forms[form]
	if !ok {
		return nil
	}
	var out []string
	for name, r := range node.regions {
		if r.hidden {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Scope implements ScopeResolver.
func (d *Document) Scope(form, region string, hidden bool) []string {
	node, ok := d.forms[form]
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, el := range node.elements {
		if el.region == "" || !el.kind.Validatable() {
			continue
		}
		chain := node.chain(el.region)
		idx := indexOf(chain, region)
		if idx < 0 {
			continue
		}
		if !hidden && anyHidden(node, chain[:idx]) {
			continue
		}
		if _, dup := seen[el.name]; dup {
			continue
		}
		seen[el.name] = struct{}{}
		out = append(out, el.name)
	}
	return out
}

// SetRegionHidden implements RegionView.
func (d *Document) SetRegionHidden(form, region string, hidden bool) {
	node, ok := d.forms[form]
	if !ok {
		return
	}
	if r, ok := node.regions[region]; ok {
		r.hidden = hidden
	}
}

// chain lists region then its ancestors, innermost first.
func (f *FormNode) chain(region string) []string {
	var out []string
	seen := make(map[string]struct{})
	for current := region; current != ""; {
		if _, loop := seen[current]; loop {
			break
		}
		seen[current] = struct{}{}
		out = append(out, current)
		r, ok := f.regions[current]
		if !ok {
			break
		}
		current = r.parent
	}
	return out
}

func anyHidden(f *FormNode, regions []string) bool {
	for _, name := range regions {
		if f.RegionHidden(name) {
			return true
		}
	}
	return false
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func (f *FormNode) emit(field string, class EventClass) {
	ids := make([]int, 0, len(f.handlers))
	for id := range f.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if handler, ok := f.handlers[id]; ok {
			handler(field, class)
		}
	}
}

// Input replaces the value of a text-like control and fires a Live event.
func (d *Document) Input(form, name, value string) error {
	node, el, err := d.lookup(form, name)
	if err != nil {
		return err
	}
	el.SetValue(value)
	node.emit(name, Live)
	return nil
}

// Type appends text one rune at a time, firing a Live event per keystroke.
func (d *Document) Type(form, name, text string) error {
	node, el, err := d.lookup(form, name)
	if err != nil {
		return err
	}
	for _, r := range text {
		el.SetValue(el.Value() + string(r))
		node.emit(name, Live)
	}
	return nil
}

// Change fires a Commit event for name.
func (d *Document) Change(form, name string) error {
	node, _, err := d.lookup(form, name)
	if err != nil {
		return err
	}
	node.emit(name, Commit)
	return nil
}

// Fill is Input followed by Change.
func (d *Document) Fill(form, name, value string) error {
	if err := d.Input(form, name, value); err != nil {
		return err
	}
	return d.Change(form, name)
}

// Check toggles a checkbox, or selects the radio member whose value matches,
// then fires Live and Commit.
func (d *Document) Check(form, name, value string, checked bool) error {
	node, ok := d.forms[form]
	if !ok {
		return fmt.Errorf("control: form %q not found in document", form)
	}
	group := node.Group(name)
	if len(group) == 0 {
		return fmt.Errorf("control: form %q has no control %q", form, name)
	}
	switch group[0].kind {
	case KindRadio:
		found := false
		for _, el := range group {
			match := el.value == value
			found = found || match
			el.checked = match && checked
		}
		if !found {
			return fmt.Errorf("control: radio %q has no member %q", name, value)
		}
	default:
		group[0].SetChecked(checked)
	}
	node.emit(name, Live)
	node.emit(name, Commit)
	return nil
}

// Click fires an Activate event (submit buttons).
func (d *Document) Click(form, name string) error {
	node, _, err := d.lookup(form, name)
	if err != nil {
		return err
	}
	node.emit(name, Activate)
	return nil
}

// AddClass, RemoveClass and HasClass expose the class list of every element
// named field so feedback sinks can render indicators onto the document.
func (d *Document) AddClass(form, field, class string) {
	d.eachElement(form, field, func(el *Element) { el.classes[class] = struct{}{} })
}

func (d *Document) RemoveClass(form, field, class string) {
	d.eachElement(form, field, func(el *Element) { delete(el.classes, class) })
}

func (d *Document) HasClass(form, field, class string) bool {
	found := false
	d.eachElement(form, field, func(el *Element) {
		if _, ok := el.classes[class]; ok {
			found = true
		}
	})
	return found
}

func (d *Document) eachElement(form, field string, fn func(*Element)) {
	node, ok := d.forms[form]
	if !ok {
		return
	}
	for _, el := range node.Group(field) {
		fn(el)
	}
}

func (d *Document) lookup(form, name string) (*FormNode, *Element, error) {
	node, ok := d.forms[form]
	if !ok {
		return nil, nil, fmt.Errorf("control: form %q not found in document", form)
	}
	el, ok := node.Element(name)
	if !ok {
		return nil, nil, fmt.Errorf("control: form %q has no control %q", form, strings.TrimSpace(name))
	}
	return node, el, nil
}

// Populate writes submitted values into a form without firing events.
// Checkboxes are checked when their value is present and not "no", "off" or
// "false"; radios check the member whose value matches. Controls missing
// from values are cleared, as a browser would submit them.
func (d *Document) Populate(form string, values map[string]string) error {
	node, ok := d.forms[form]
	if !ok {
		return fmt.Errorf("control: form %q not found in document", form)
	}
	for _, el := range node.elements {
		raw, present := values[el.name]
		switch el.kind {
		case KindCheckbox:
			el.checked = present && isChecked(raw)
		case KindRadio:
			el.checked = present && el.value == raw
		case KindInput, KindTextArea, KindSelect:
			el.value = raw
		}
	}
	return nil
}

func isChecked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "no", "off", "false", "0":
		return false
	default:
		return true
	}
}
