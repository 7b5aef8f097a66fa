// Package form orchestrates the fields of one registered form: aggregate
// validation, the submit protocol, server verdicts and hidden regions.
//
// A Form is single-owner. Dispatch, Submit, ReceiveVerdict and the Ack
// handed to a Transport must be called from one logical thread of control.
package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/verdict"
	"github.com/goliatone/go-formstate/pkg/visibility"
)

// ErrDuplicateControl is returned when two non-radio controls share a name.
var ErrDuplicateControl = errors.New("form: duplicate control name")

// DataKey is the payload key carrying attached data.
const DataKey = "data"

// Payload is the data handed to a Transport.
type Payload map[string]any

// Form owns the ordered fields of one form.
type Form struct {
	name   string
	fields []field.Field
	index  map[string]field.Field

	submitControl string
	transport     Transport
	data          any
	valid         bool

	logger    *zap.Logger
	scope     control.ScopeResolver
	view      control.RegionView
	evaluator visibility.Evaluator
	regions   []visibility.Rule
	hidden    map[string]bool

	lifecycle   *fsm.FSM
	pending     map[uuid.UUID]struct{}
	lastVerdict verdict.Verdict
	unsubscribe func()
}

// Option customises a Form at construction.
type Option func(*Form)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTransport registers the submit collaborator.
func WithTransport(t Transport) Option {
	return func(f *Form) {
		f.transport = t
	}
}

// WithSubmitControl names the control whose activation submits the form.
func WithSubmitControl(name string) Option {
	return func(f *Form) {
		f.submitControl = name
	}
}

// WithScopeResolver maps hidden regions to field names.
func WithScopeResolver(r control.ScopeResolver) Option {
	return func(f *Form) {
		f.scope = r
	}
}

// WithRegionView receives region visibility changes driven by rules.
func WithRegionView(v control.RegionView) Option {
	return func(f *Form) {
		f.view = v
	}
}

// WithVisibility installs region rules re-evaluated after every dispatched
// event.
func WithVisibility(ev visibility.Evaluator, rules ...visibility.Rule) Option {
	return func(f *Form) {
		f.evaluator = ev
		f.regions = append(f.regions, rules...)
	}
}

// New builds a form from already constructed fields. Regions the scope
// resolver reports hidden at construction are applied immediately.
func New(name string, fields []field.Field, opts ...Option) (*Form, error) {
	f := &Form{
		name:    name,
		index:   make(map[string]field.Field, len(fields)),
		logger:  zap.NewNop(),
		hidden:  make(map[string]bool),
		pending: make(map[uuid.UUID]struct{}),
	}
	for _, fld := range fields {
		if fld == nil {
			continue
		}
		if _, dup := f.index[fld.Name()]; dup {
			return nil, fmt.Errorf("%w: %q in form %q", ErrDuplicateControl, fld.Name(), name)
		}
		f.index[fld.Name()] = fld
		f.fields = append(f.fields, fld)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.logger = f.logger.With(zap.String("form", name))
	f.lifecycle = newLifecycle()

	if f.scope != nil {
		for _, region := range f.scope.HiddenRegions(name) {
			f.hidden[region] = true
			f.ApplyHiddenSubtree(f.scope.Scope(name, region, true), true)
		}
	}
	f.syncRegions()
	return f, nil
}

// Name returns the form name.
func (f *Form) Name() string { return f.name }

// Fields returns the fields in document order.
func (f *Form) Fields() []field.Field {
	return append([]field.Field(nil), f.fields...)
}

// Field looks up a field by name.
func (f *Form) Field(name string) (field.Field, bool) {
	fld, ok := f.index[name]
	return fld, ok
}

// SubmitControl returns the name of the submit control, if any.
func (f *Form) SubmitControl() string { return f.submitControl }

// Valid returns the aggregate computed by the last ValidateAll.
func (f *Form) Valid() bool { return f.valid }

// Status snapshots every field.
func (f *Form) Status() []field.Status {
	out := make([]field.Status, 0, len(f.fields))
	for _, fld := range f.fields {
		out = append(out, field.Describe(fld))
	}
	return out
}

// ValidateAll evaluates every field, without short-circuiting, and stores
// the aggregate. Region rules are re-run on the freshly committed values;
// when a region flips, only the fields it hid or revealed are judged again.
func (f *Form) ValidateAll() bool {
	states := make(map[string]field.State, len(f.fields))
	pending := f.fields
	for pass := 0; pass <= len(f.regions) && len(pending) > 0; pass++ {
		for _, fld := range pending {
			states[fld.Name()] = fld.Evaluate()
		}
		before := make(map[string]bool, len(f.fields))
		for _, fld := range f.fields {
			before[fld.Name()] = fld.Hidden()
		}
		if !f.syncRegions() {
			break
		}
		pending = nil
		for _, fld := range f.fields {
			if fld.Hidden() != before[fld.Name()] {
				pending = append(pending, fld)
			}
		}
	}

	valid := true
	for _, fld := range f.fields {
		if states[fld.Name()] != field.Valid {
			valid = false
		}
	}
	f.valid = valid
	f.logger.Debug("form validated", zap.Bool("valid", valid))
	return valid
}

// AttachData sets the opaque payload merged into submissions under DataKey.
func (f *Form) AttachData(data any) {
	f.data = data
	f.syncRegions()
}

// Data returns the attached data.
func (f *Form) Data() any { return f.data }

// GetData collects the current values without validating.
func (f *Form) GetData() Payload {
	out := f.values()
	if f.data != nil {
		out[DataKey] = f.data
	}
	return out
}

func (f *Form) values() Payload {
	out := make(Payload, len(f.fields))
	for _, fld := range f.fields {
		if v, ok := fld.Value(); ok {
			out[fld.Name()] = v
		}
	}
	return out
}

// Reset drops attached data and restores every field to its baseline.
func (f *Form) Reset() {
	f.data = nil
	for _, fld := range f.fields {
		fld.Reset()
	}
	f.logger.Debug("form reset")
	f.syncRegions()
}

// ApplyHiddenSubtree hides or reveals exactly the named fields. Unknown
// names are ignored.
func (f *Form) ApplyHiddenSubtree(scope []string, hidden bool) {
	for _, name := range scope {
		fld, ok := f.index[name]
		if !ok {
			continue
		}
		if hidden {
			fld.SetHidden()
		} else {
			fld.Unhide()
		}
	}
}

// SetRegionHidden resolves region through the scope resolver, updates the
// view and applies the result.
func (f *Form) SetRegionHidden(region string, hidden bool) {
	f.hidden[region] = hidden
	if f.view != nil {
		f.view.SetRegionHidden(f.name, region, hidden)
	}
	if f.scope == nil {
		f.logger.Warn("no scope resolver; region change ignored", zap.String("region", region))
		return
	}
	f.ApplyHiddenSubtree(f.scope.Scope(f.name, region, hidden), hidden)
}

// Listen subscribes the form to an event source. A previous subscription
// is dropped.
func (f *Form) Listen(events control.EventSource) {
	f.Close()
	if events == nil {
		return
	}
	f.unsubscribe = events.Listen(f.name, func(name string, class control.EventClass) {
		f.Dispatch(context.Background(), name, class)
	})
}

// Close drops the event subscription, if any.
func (f *Form) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}

// Release closes the form and hands every control back with its native
// flags, so a form built on the same controls starts from a clean baseline.
func (f *Form) Release() {
	f.Close()
	for _, fld := range f.fields {
		fld.Release()
	}
	f.logger.Debug("form released")
}

// Dispatch routes one control event. Live events run the admission gate
// and then live validation; Commit events run commit validation; activating
// the submit control submits. Region rules are re-evaluated afterwards.
func (f *Form) Dispatch(ctx context.Context, name string, class control.EventClass) {
	if class == control.Activate {
		if name != "" && name == f.submitControl {
			f.Submit(ctx)
		}
		return
	}

	fld, ok := f.index[name]
	if !ok {
		return
	}
	triggers := fld.Triggers()
	switch class {
	case control.Live:
		if admitter, ok := fld.(field.Admitter); ok && triggers.Admit {
			if value, admitted := admitter.AdmitInput(admitter.RawInput()); !admitted {
				f.logger.Debug("input blocked", zap.String("field", name), zap.String("kept", value))
			}
		}
		if triggers.Live {
			fld.Evaluate()
		}
	case control.Commit:
		if triggers.Commit {
			fld.Evaluate()
		}
	}
	f.syncRegions()
}

func (f *Form) syncRegions() bool {
	if f.evaluator == nil || len(f.regions) == 0 {
		return false
	}
	ctx := visibility.Context{Values: f.values()}
	if m, ok := f.data.(map[string]any); ok {
		ctx.Data = m
	}
	desired, err := visibility.Resolve(f.evaluator, f.regions, ctx)
	if err != nil {
		f.logger.Warn("region rules failed", zap.Error(err))
		return false
	}
	changed := false
	for _, rule := range f.regions {
		hidden := desired[rule.Region]
		if current, known := f.hidden[rule.Region]; known && current == hidden {
			continue
		}
		f.logger.Debug("region visibility changed", zap.String("region", rule.Region), zap.Bool("hidden", hidden))
		f.SetRegionHidden(rule.Region, hidden)
		changed = true
	}
	return changed
}

// RegionHidden reports the last known state of a region.
func (f *Form) RegionHidden(region string) bool { return f.hidden[region] }
