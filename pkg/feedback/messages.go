package feedback

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// DefaultMessageTemplates are the pongo2 sources used when no override is
// supplied. Templates see `field`, `form` and `signal` plus any extra data.
var DefaultMessageTemplates = map[Signal]string{
	RequiredViolation: "{{ field|capfirst }} is required",
	PatternViolation:  "{{ field|capfirst }} has an invalid format",
	ServerRejected:    "{{ field|capfirst }} was rejected by the server",
}

// Messages renders human-readable text for signals.
type Messages struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[Signal]*pongo2.Template
}

// NewMessages compiles the default templates overlaid with overrides. An
// empty override disables the message for that signal.
func NewMessages(overrides map[Signal]string) (*Messages, error) {
	sources := make(map[Signal]string, len(DefaultMessageTemplates))
	for sig, src := range DefaultMessageTemplates {
		sources[sig] = src
	}
	for sig, src := range overrides {
		sources[sig] = src
	}

	m := &Messages{
		set:       pongo2.NewSet("formstate-feedback", pongo2.DefaultLoader),
		templates: make(map[Signal]*pongo2.Template, len(sources)),
	}
	for sig, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		tpl, err := m.set.FromString(src)
		if err != nil {
			return nil, fmt.Errorf("feedback: parse %s message: %w", sig, err)
		}
		m.templates[sig] = tpl
	}
	return m, nil
}

// Render returns the message for signal, or "" when none applies.
func (m *Messages) Render(form, field string, signal Signal, extra map[string]any) (string, error) {
	if m == nil {
		return "", nil
	}
	m.mu.RLock()
	tpl, ok := m.templates[signal]
	m.mu.RUnlock()
	if !ok {
		return "", nil
	}

	ctx := pongo2.Context{
		"form":   form,
		"field":  field,
		"signal": signal.String(),
	}
	for k, v := range extra {
		if _, reserved := ctx[k]; !reserved {
			ctx[k] = v
		}
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("feedback: render %s message for %q: %w", signal, field, err)
	}
	return strings.TrimSpace(out), nil
}

// Board is a Sink that keeps the current message for every field. A Clear
// signal drops the entry.
type Board struct {
	messages *Messages
	labels   map[string]string
	onError  func(error)

	mu      sync.Mutex
	current map[string]map[string]string
}

// BoardOption customises a Board.
type BoardOption func(*Board)

// WithLabels supplies display labels used instead of raw field names.
func WithLabels(labels map[string]string) BoardOption {
	return func(b *Board) {
		for k, v := range labels {
			b.labels[k] = v
		}
	}
}

// WithErrorHandler receives template execution failures.
func WithErrorHandler(fn func(error)) BoardOption {
	return func(b *Board) {
		b.onError = fn
	}
}

// NewBoard constructs a Board backed by messages.
func NewBoard(messages *Messages, opts ...BoardOption) *Board {
	b := &Board{
		messages: messages,
		labels:   make(map[string]string),
		current:  make(map[string]map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Signal implements Sink.
func (b *Board) Signal(form, field string, signal Signal) {
	label := field
	if l, ok := b.labels[field]; ok && l != "" {
		label = l
	}
	text, err := b.messages.Render(form, label, signal, nil)
	if err != nil && b.onError != nil {
		b.onError(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	fields := b.current[form]
	if fields == nil {
		fields = make(map[string]string)
		b.current[form] = fields
	}
	if signal == Clear || text == "" {
		delete(fields, field)
		return
	}
	fields[field] = text
}

// Messages returns a copy of the current messages for a form.
func (b *Board) Messages(form string) map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.current[form]))
	for k, v := range b.current[form] {
		out[k] = v
	}
	return out
}

// Lines returns "field: message" lines sorted by field name.
func (b *Board) Lines(form string) []string {
	msgs := b.Messages(form)
	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+msgs[k])
	}
	return out
}
