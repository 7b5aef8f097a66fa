package feedback

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	theme "github.com/goliatone/go-theme"
)

type classTarget struct {
	classes map[string]map[string]bool
}

func newClassTarget() *classTarget {
	return &classTarget{classes: make(map[string]map[string]bool)}
}

func (c *classTarget) AddClass(_, field, class string) {
	if c.classes[field] == nil {
		c.classes[field] = make(map[string]bool)
	}
	c.classes[field][class] = true
}

func (c *classTarget) RemoveClass(_, field, class string) {
	delete(c.classes[field], class)
}

func (c *classTarget) list(field string) []string {
	out := []string{}
	for class := range c.classes[field] {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

func TestClassSinkTransitions(t *testing.T) {
	t.Parallel()

	target := newClassTarget()
	sink := NewClassSink(target, Classes{})

	steps := []struct {
		signal Signal
		want   []string
	}{
		{RequiredViolation, []string{"empty"}},
		{PatternViolation, []string{"invalid"}},
		{ServerRejected, []string{"invalid", "invalid-server"}},
		{RequiredViolation, []string{"empty"}},
		{ServerRejected, []string{"empty", "invalid-server"}},
		{Clear, []string{}},
	}
	for i, step := range steps {
		sink.Signal("signup", "email", step.signal)
		if diff := cmp.Diff(step.want, target.list("email")); diff != "" {
			t.Fatalf("step %d (%s) classes mismatch (-want +got):\n%s", i, step.signal, diff)
		}
	}
}

func TestRecorderAndTee(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	var forwarded []Signal
	sink := Tee(rec, nil, SinkFunc(func(_, _ string, s Signal) {
		forwarded = append(forwarded, s)
	}))

	sink.Signal("a", "x", RequiredViolation)
	sink.Signal("a", "y", PatternViolation)
	sink.Signal("a", "x", Clear)

	if got, ok := rec.Last("a", "x"); !ok || got != Clear {
		t.Fatalf("expected last signal clear for x, got %s (%v)", got, ok)
	}
	if _, ok := rec.Last("a", "z"); ok {
		t.Fatalf("expected no signal for z")
	}
	if diff := cmp.Diff([]Signal{RequiredViolation, PatternViolation, Clear}, forwarded); diff != "" {
		t.Fatalf("tee mismatch (-want +got):\n%s", diff)
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("expected recorder reset")
	}
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []string
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, name+"/"+variant)
	return s.selection, s.err
}

func TestThemeClasses(t *testing.T) {
	t.Parallel()

	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens: map[string]string{
			TokenRequiredClass: "is-empty",
			TokenPatternClass:  "is-invalid",
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					TokenPatternClass: "is-invalid-dark",
				},
			},
		},
	}
	selector := &stubThemeSelector{selection: &theme.Selection{
		Theme:    "acme",
		Variant:  "dark",
		Manifest: manifest,
	}}

	got, err := ThemeClasses(selector, "acme", "dark")
	if err != nil {
		t.Fatalf("theme classes: %v", err)
	}
	want := Classes{Required: "is-empty", Pattern: "is-invalid-dark", Server: "invalid-server"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"acme/dark"}, selector.calls); diff != "" {
		t.Fatalf("selector calls mismatch (-want +got):\n%s", diff)
	}

	failing := &stubThemeSelector{err: errors.New("boom")}
	if _, err := ThemeClasses(failing, "acme", ""); err == nil {
		t.Fatalf("expected selector error")
	}
}

func TestBoardMessages(t *testing.T) {
	t.Parallel()

	messages, err := NewMessages(map[Signal]string{
		ServerRejected: "{{ field }} rejected ({{ signal }})",
	})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	board := NewBoard(messages, WithLabels(map[string]string{"email": "e-mail"}))

	board.Signal("signup", "email", RequiredViolation)
	board.Signal("signup", "phone", PatternViolation)
	board.Signal("signup", "plan", ServerRejected)

	want := map[string]string{
		"email": "E-mail is required",
		"phone": "Phone has an invalid format",
		"plan":  "plan rejected (server)",
	}
	if diff := cmp.Diff(want, board.Messages("signup")); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	board.Signal("signup", "email", Clear)
	wantLines := []string{"phone: Phone has an invalid format", "plan: plan rejected (server)"}
	if diff := cmp.Diff(wantLines, board.Lines("signup")); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewMessages(map[Signal]string{RequiredViolation: "{{ field "}); err == nil {
		t.Fatalf("expected parse error for broken template")
	}
}
