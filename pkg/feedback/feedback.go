// Package feedback carries field-level validity signals from the engine to
// whatever renders them. The engine decides which signal to emit; sinks decide
// how it looks.
package feedback

import "sync"

// Signal is the visual state a field should present.
type Signal int

const (
	// Clear removes every indicator.
	Clear Signal = iota
	// RequiredViolation marks an enabled required field with no value.
	RequiredViolation
	// PatternViolation marks a value that fails its template.
	PatternViolation
	// ServerRejected marks a field named by a rejecting verdict.
	ServerRejected
)

func (s Signal) String() string {
	switch s {
	case Clear:
		return "clear"
	case RequiredViolation:
		return "required"
	case PatternViolation:
		return "pattern"
	case ServerRejected:
		return "server"
	default:
		return "unknown"
	}
}

// Sink receives signals per field.
type Sink interface {
	Signal(form, field string, signal Signal)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(form, field string, signal Signal)

// Signal implements Sink.
func (fn SinkFunc) Signal(form, field string, signal Signal) {
	if fn != nil {
		fn(form, field, signal)
	}
}

// Nop discards every signal.
type Nop struct{}

func (Nop) Signal(string, string, Signal) {}

// Tee fans a signal out to every non-nil sink in order.
func Tee(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return SinkFunc(func(form, field string, signal Signal) {
		for _, s := range filtered {
			s.Signal(form, field, signal)
		}
	})
}

// Event is one recorded signal.
type Event struct {
	Form   string
	Field  string
	Signal Signal
}

// Recorder keeps every signal it receives. Useful in tests and for
// inspecting a headless session.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Signal implements Sink.
func (r *Recorder) Signal(form, field string, signal Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Form: form, Field: field, Signal: signal})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent signal for a field.
func (r *Recorder) Last(form, field string) (Signal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		ev := r.events[i]
		if ev.Form == form && ev.Field == field {
			return ev.Signal, true
		}
	}
	return Clear, false
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
