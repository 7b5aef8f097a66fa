package form

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/verdict"
)

// Submission lifecycle states.
const (
	StateIdle     = "idle"
	StatePending  = "pending"
	StateAccepted = "accepted"
	StateRejected = "rejected"
)

const (
	eventSubmit = "submit"
	eventAccept = "accept"
	eventReject = "reject"
)

var allStates = []string{StateIdle, StatePending, StateAccepted, StateRejected}

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventSubmit, Src: allStates, Dst: StatePending},
			{Name: eventAccept, Src: allStates, Dst: StateAccepted},
			{Name: eventReject, Src: allStates, Dst: StateRejected},
		},
		fsm.Callbacks{},
	)
}

// Submission is one hand-off to a Transport.
type Submission struct {
	ID      uuid.UUID
	Form    string
	Payload Payload
}

// Ack delivers the server verdict for a submission. Only the first call has
// an effect.
type Ack func(v verdict.Verdict)

// Transport delivers submissions. It must eventually call ack exactly once;
// retries are its own concern.
type Transport interface {
	Deliver(ctx context.Context, sub Submission, ack Ack)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, sub Submission, ack Ack)

// Deliver implements Transport.
func (fn TransportFunc) Deliver(ctx context.Context, sub Submission, ack Ack) {
	fn(ctx, sub, ack)
}

// Submit validates every field and, when valid and non-empty, hands the
// payload to the transport exactly once. It reports whether a hand-off
// happened.
func (f *Form) Submit(ctx context.Context) bool {
	if !f.ValidateAll() {
		f.logger.Debug("submit rejected: form invalid")
		return false
	}
	payload := f.GetData()
	if len(payload) == 0 {
		f.logger.Debug("submit rejected: empty payload")
		return false
	}
	if f.transport == nil {
		f.logger.Warn("submit rejected: no transport registered")
		return false
	}

	sub := Submission{ID: uuid.New(), Form: f.name, Payload: payload}
	f.pending[sub.ID] = struct{}{}
	f.transition(eventSubmit)
	f.logger.Info("form submitted", zap.Stringer("submission", sub.ID), zap.Int("fields", len(payload)))
	f.transport.Deliver(ctx, sub, f.ackFor(sub.ID))
	return true
}

func (f *Form) ackFor(id uuid.UUID) Ack {
	var once sync.Once
	return func(v verdict.Verdict) {
		fired := false
		once.Do(func() {
			fired = true
			delete(f.pending, id)
			f.logger.Debug("verdict received", zap.Stringer("submission", id), zap.Stringer("verdict", v))
			f.ReceiveVerdict(v)
		})
		if !fired {
			f.logger.Warn("duplicate acknowledgment ignored", zap.Stringer("submission", id))
		}
	}
}

// ReceiveVerdict applies a server verdict. Accept resets the form; a field
// list marks known fields custom-invalid and ignores unknown names; anything
// else rejects without marking.
func (f *Form) ReceiveVerdict(v verdict.Verdict) {
	f.lastVerdict = v
	switch v.Kind() {
	case verdict.KindAccepted:
		f.Reset()
		f.transition(eventAccept)
	case verdict.KindFields:
		for _, name := range v.FieldNames() {
			fld, ok := f.index[name]
			if !ok {
				f.logger.Debug("verdict names unknown field", zap.String("field", name))
				continue
			}
			fld.MarkCustomInvalid()
		}
		f.transition(eventReject)
	default:
		f.transition(eventReject)
	}
}

// SubmitState returns the submission lifecycle state.
func (f *Form) SubmitState() string { return f.lifecycle.Current() }

// Pending counts submissions whose acknowledgment has not arrived.
func (f *Form) Pending() int { return len(f.pending) }

// LastVerdict returns the most recently applied verdict.
func (f *Form) LastVerdict() verdict.Verdict { return f.lastVerdict }

func (f *Form) transition(event string) {
	err := f.lifecycle.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		f.logger.Warn("submit lifecycle transition failed", zap.String("event", event), zap.Error(err))
	}
}
