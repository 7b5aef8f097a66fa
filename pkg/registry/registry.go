// Package registry keeps the forms registered against one control source and
// dispatches the public operations to them by name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/rule"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/visibility"
	"github.com/goliatone/go-formstate/pkg/visibility/expr"
)

var (
	// ErrFormNotFound is returned for operations on unregistered names.
	ErrFormNotFound = errors.New("registry: form not found")
	// ErrMissingControl is returned when a spec configures a field the form
	// has no control for.
	ErrMissingControl = errors.New("registry: field has no control")
	// ErrMissingSubmitControl is returned when the spec names a submit
	// control the form does not contain.
	ErrMissingSubmitControl = errors.New("registry: submit control not found")
)

// Option customises a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger shared by every registered form.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTemplates overlays type-level templates on the defaults. A zero rule
// removes the default for that type.
func WithTemplates(t rule.Templates) Option {
	return func(r *Registry) {
		r.templates = r.templates.Merge(t)
	}
}

// WithStartValidation sets the registry-wide trigger mode. Defaults to
// field.ModeCommit.
func WithStartValidation(mode field.Mode) Option {
	return func(r *Registry) {
		r.mode = mode
	}
}

// WithFeedback sets the sink receiving every field signal.
func WithFeedback(sink feedback.Sink) Option {
	return func(r *Registry) {
		r.sink = sink
	}
}

// WithScopeResolver overrides the resolver taken from the source.
func WithScopeResolver(resolver control.ScopeResolver) Option {
	return func(r *Registry) {
		r.scope = resolver
	}
}

// WithRegionView overrides the region view taken from the source.
func WithRegionView(view control.RegionView) Option {
	return func(r *Registry) {
		r.view = view
	}
}

// WithEventSource overrides the event source taken from the source.
func WithEventSource(events control.EventSource) Option {
	return func(r *Registry) {
		r.events = events
	}
}

// WithVisibilityEvaluator replaces the expression evaluator used for region
// rules.
func WithVisibilityEvaluator(ev visibility.Evaluator) Option {
	return func(r *Registry) {
		if ev != nil {
			r.evaluator = ev
		}
	}
}

// WithAttributes renames the data attributes read from controls.
func WithAttributes(attrs field.Attributes) Option {
	return func(r *Registry) {
		r.attributes = attrs
	}
}

// Registry maps form names to forms. The map is guarded; the forms
// themselves are single-owner.
type Registry struct {
	mu     sync.RWMutex
	forms  map[string]*entry
	source control.Source

	logger     *zap.Logger
	templates  rule.Templates
	mode       field.Mode
	sink       feedback.Sink
	scope      control.ScopeResolver
	view       control.RegionView
	events     control.EventSource
	evaluator  visibility.Evaluator
	attributes field.Attributes
}

type entry struct {
	spec spec.FormSpec
	form *form.Form
}

// New returns a registry reading controls from source. When source also
// implements ScopeResolver, RegionView or EventSource it is used for those
// roles unless an option says otherwise.
func New(source control.Source, opts ...Option) *Registry {
	r := &Registry{
		forms:      make(map[string]*entry),
		source:     source,
		logger:     zap.NewNop(),
		templates:  rule.DefaultTemplates(),
		mode:       field.ModeCommit,
		attributes: field.DefaultAttributes(),
	}
	if s, ok := source.(control.ScopeResolver); ok {
		r.scope = s
	}
	if v, ok := source.(control.RegionView); ok {
		r.view = v
	}
	if e, ok := source.(control.EventSource); ok {
		r.events = e
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.evaluator == nil {
		r.evaluator = expr.New()
	}
	return r
}

// Register builds a form from s and the controls the source reports for
// s.Name, replacing any prior registration under that name. transport may be
// nil, in which case Submit never hands off.
func (r *Registry) Register(s spec.FormSpec, transport form.Transport) error {
	if r.source == nil {
		return fmt.Errorf("registry: form %q: no control source", s.Name)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	controls, err := r.source.Controls(s.Name)
	if err != nil {
		return fmt.Errorf("registry: form %q: %w", s.Name, err)
	}

	types := make(map[string]string, len(controls))
	for _, c := range controls {
		if _, seen := types[c.Name()]; !seen {
			types[c.Name()] = c.Type()
		}
	}
	for _, name := range s.FieldNames() {
		if _, ok := types[name]; !ok {
			return fmt.Errorf("%w: form %q field %q", ErrMissingControl, s.Name, name)
		}
	}
	if s.Submit != "" {
		if _, ok := types[s.Submit]; !ok {
			return fmt.Errorf("%w: form %q control %q", ErrMissingSubmitControl, s.Name, s.Submit)
		}
	}

	// The prior form hands its controls back before the new fields read
	// their baselines. From here on a failed build leaves no registration.
	r.mu.Lock()
	prior, replaced := r.forms[s.Name]
	if replaced {
		delete(r.forms, s.Name)
	}
	r.mu.Unlock()
	if replaced {
		prior.form.Release()
	}

	formMode, _ := s.Mode()
	inherited := []field.Mode{r.mode}
	if formMode != field.ModeNone {
		inherited = append(inherited, formMode)
	}

	var configErr error
	fields, err := form.BuildFields(controls, func(name string) field.Config {
		fs := s.Field(name)
		cfg := field.Config{
			Form:       s.Name,
			Inherited:  inherited,
			Templates:  r.templates,
			Attributes: r.attributes,
			Sink:       r.sink,
			OnValid:    fs.OnValid,
		}
		if fs.Required != nil {
			cfg.Required = *fs.Required
		}
		if fs.Disabled != nil {
			cfg.Disabled = *fs.Disabled
		}
		cfg.StartValidation, _ = fs.Mode()
		valid, blocked, err := fs.Rules(types[name])
		if err != nil && configErr == nil {
			configErr = fmt.Errorf("registry: form %q field %q: %w", s.Name, name, err)
		}
		cfg.ValidTemplate = valid
		cfg.BlockedTemplate = blocked
		return cfg
	})
	if configErr != nil {
		return configErr
	}
	if err != nil {
		return fmt.Errorf("registry: form %q: %w", s.Name, err)
	}

	opts := []form.Option{
		form.WithLogger(r.logger),
		form.WithTransport(transport),
		form.WithSubmitControl(s.Submit),
		form.WithScopeResolver(r.scope),
		form.WithRegionView(r.view),
	}
	if rules := s.VisibilityRules(); len(rules) > 0 {
		opts = append(opts, form.WithVisibility(r.evaluator, rules...))
	}
	f, err := form.New(s.Name, fields, opts...)
	if err != nil {
		return fmt.Errorf("registry: form %q: %w", s.Name, err)
	}

	r.mu.Lock()
	r.forms[s.Name] = &entry{spec: s, form: f}
	r.mu.Unlock()

	if r.events != nil {
		f.Listen(r.events)
	}
	r.logger.Info("form registered",
		zap.String("form", s.Name),
		zap.Int("fields", len(fields)),
		zap.Bool("replaced", replaced),
	)
	return nil
}

// Form returns the registered form.
func (r *Registry) Form(name string) (*form.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.forms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFormNotFound, name)
	}
	return e.form, nil
}

// Spec returns the spec a form was registered with.
func (r *Registry) Spec(name string) (spec.FormSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.forms[name]
	if !ok {
		return spec.FormSpec{}, fmt.Errorf("%w: %q", ErrFormNotFound, name)
	}
	return e.spec, nil
}

// Names returns the registered form names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.forms))
	for name := range r.forms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AttachData sets the opaque data merged into the form's submissions.
func (r *Registry) AttachData(name string, data any) error {
	f, err := r.Form(name)
	if err != nil {
		return err
	}
	f.AttachData(data)
	return nil
}

// GetData returns the form's current values and attached data.
func (r *Registry) GetData(name string) (form.Payload, error) {
	f, err := r.Form(name)
	if err != nil {
		return nil, err
	}
	return f.GetData(), nil
}

// Validate evaluates every field of the form.
func (r *Registry) Validate(name string) (bool, error) {
	f, err := r.Form(name)
	if err != nil {
		return false, err
	}
	return f.ValidateAll(), nil
}

// Submit validates the form and hands it to its transport.
func (r *Registry) Submit(ctx context.Context, name string) (bool, error) {
	f, err := r.Form(name)
	if err != nil {
		return false, err
	}
	return f.Submit(ctx), nil
}

// Reset restores the form to its baseline.
func (r *Registry) Reset(name string) error {
	f, err := r.Form(name)
	if err != nil {
		return err
	}
	f.Reset()
	return nil
}

// SetHidden hides or reveals a region of the form.
func (r *Registry) SetHidden(name, region string, hidden bool) error {
	f, err := r.Form(name)
	if err != nil {
		return err
	}
	f.SetRegionHidden(region, hidden)
	return nil
}

// Status snapshots every field of the form.
func (r *Registry) Status(name string) ([]field.Status, error) {
	f, err := r.Form(name)
	if err != nil {
		return nil, err
	}
	return f.Status(), nil
}

// Dispatch routes a control event to the form, for callers driving events
// without an EventSource.
func (r *Registry) Dispatch(ctx context.Context, name, fieldName string, class control.EventClass) error {
	f, err := r.Form(name)
	if err != nil {
		return err
	}
	f.Dispatch(ctx, fieldName, class)
	return nil
}

// Close detaches every form from the event source.
func (r *Registry) Close() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.forms {
		e.form.Close()
	}
}
