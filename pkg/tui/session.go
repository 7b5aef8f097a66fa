// Package tui plays a registered form in the terminal. Answers are typed
// into an in-memory document keystroke by keystroke, so blocked templates,
// trigger modes and region rules behave as they would in a browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/registry"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

const defaultMaxRounds = 3

// Result is the outcome of a session.
type Result struct {
	Payload   form.Payload
	Verdict   verdict.Verdict
	Submitted bool
}

// Session asks for every visible field of one form.
type Session struct {
	doc       *control.Document
	spec      spec.FormSpec
	driver    PromptDriver
	transport form.Transport
	messages  *feedback.Messages
	extra     feedback.Sink
	logger    *zap.Logger
	theme     Theme
	maxRounds int

	labels map[string]string
	board  *feedback.Board
	reg    *registry.Registry
	form   *form.Form
}

// New registers s against doc and prepares a session for it.
func New(doc *control.Document, s spec.FormSpec, opts ...Option) (*Session, error) {
	sess := &Session{
		doc:       doc,
		spec:      s,
		logger:    zap.NewNop(),
		maxRounds: defaultMaxRounds,
		labels:    s.Labels(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sess)
		}
	}
	if sess.driver == nil {
		sess.driver = NewSurveyDriver()
	}
	if sess.messages == nil {
		messages, err := feedback.NewMessages(nil)
		if err != nil {
			return nil, err
		}
		sess.messages = messages
	}

	sess.board = feedback.NewBoard(sess.messages, feedback.WithLabels(sess.labels))
	var sink feedback.Sink = sess.board
	if sess.extra != nil {
		sink = feedback.Tee(sess.board, sess.extra)
	}
	sess.reg = registry.New(doc, registry.WithLogger(sess.logger), registry.WithFeedback(sink))
	if err := sess.reg.Register(s, sess.transport); err != nil {
		return nil, err
	}
	f, err := sess.reg.Form(s.Name)
	if err != nil {
		return nil, err
	}
	if len(f.Fields()) == 0 {
		sess.reg.Close()
		return nil, fmt.Errorf("%w: %q", ErrNoControls, s.Name)
	}
	sess.form = f
	return sess, nil
}

// Form exposes the registered form.
func (s *Session) Form() *form.Form { return s.form }

// Close releases the registry subscription.
func (s *Session) Close() { s.reg.Close() }

// Run asks every field, validates, and submits when a transport is set.
// Invalid or server-rejected fields are asked again, up to the round limit.
func (s *Session) Run(ctx context.Context) (Result, error) {
	ask := s.fieldNames()
	for round := 1; ; round++ {
		for _, name := range ask {
			if err := s.prompt(ctx, name); err != nil {
				return Result{}, err
			}
		}

		if !s.form.ValidateAll() {
			if err := s.report(ctx, s.board.Lines(s.spec.Name)); err != nil {
				return Result{}, err
			}
			if round >= s.maxRounds {
				return Result{Payload: s.form.GetData()}, ErrUnresolved
			}
			ask = s.invalidFields()
			continue
		}

		payload := s.form.GetData()
		if s.transport == nil {
			return Result{Payload: payload}, nil
		}
		submit, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Submit %s?", s.spec.Name), Default: true})
		if err != nil {
			return Result{}, err
		}
		if !submit {
			return Result{Payload: payload}, nil
		}
		if !s.form.Submit(ctx) {
			return Result{Payload: payload}, s.info(ctx, "nothing to submit")
		}
		if s.form.Pending() > 0 {
			return Result{Payload: payload, Submitted: true}, s.info(ctx, "submission pending")
		}

		v := s.form.LastVerdict()
		res := Result{Payload: payload, Verdict: v, Submitted: true}
		switch v.Kind() {
		case verdict.KindAccepted:
			return res, s.info(ctx, "submission accepted")
		case verdict.KindFields:
			if err := s.report(ctx, verdictLines(v, s.board.Lines(s.spec.Name))); err != nil {
				return res, err
			}
			ask = s.visible(v.FieldNames())
		default:
			if err := s.report(ctx, append([]string{"submission rejected"}, v.FormMessages()...)); err != nil {
				return res, err
			}
			ask = nil
		}
		if round >= s.maxRounds {
			return res, ErrUnresolved
		}
		again, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if err != nil {
			return res, err
		}
		if !again {
			return res, nil
		}
	}
}

func (s *Session) prompt(ctx context.Context, name string) error {
	fld, ok := s.form.Field(name)
	if !ok || fld.Hidden() || fld.Disabled() {
		return nil
	}
	node, ok := s.doc.FormNode(s.spec.Name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoControls, s.spec.Name)
	}
	label := s.label(name, fld.Required())

	switch fld.Kind() {
	case field.KindCheckbox:
		el, _ := node.Element(name)
		checked, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: el.Checked()})
		if err != nil {
			return err
		}
		return s.doc.Check(s.spec.Name, name, el.Value(), checked)

	case field.KindRadioGroup:
		var options []string
		var memberFlags []bool
		if group, ok := fld.(*field.RadioGroup); ok {
			memberFlags = group.DisabledMembers()
		}
		def := -1
		for i, el := range node.Group(name) {
			if el.Disabled() || (i < len(memberFlags) && memberFlags[i]) {
				continue
			}
			if el.Checked() {
				def = len(options)
			}
			options = append(options, el.Value())
		}
		return s.choose(ctx, fld, label, options, def, func(value string) error {
			return s.doc.Check(s.spec.Name, name, value, true)
		})

	case field.KindSelect:
		el, _ := node.Element(name)
		if options := el.Options(); len(options) > 0 {
			return s.choose(ctx, fld, label, options, indexOf(options, el.Value()), func(value string) error {
				return s.doc.Fill(s.spec.Name, name, value)
			})
		}
	}
	return s.text(ctx, fld, node, label)
}

func (s *Session) choose(ctx context.Context, fld field.Field, label string, options []string, def int, apply func(string) error) error {
	validate := func(i int) error {
		if i < 0 || i >= len(options) {
			return errors.New("pick one of the options")
		}
		if err := apply(options[i]); err != nil {
			return err
		}
		return s.check(fld)
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: label, Options: options, DefaultIndex: def, Validator: validate})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		return nil
	}
	return apply(options[idx])
}

// text types the answer into a cleared control. A keystroke rejected by
// the blocked template rolls the control back, which surfaces as an error
// so the prompt asks again.
func (s *Session) text(ctx context.Context, fld field.Field, node *control.FormNode, label string) error {
	el, ok := node.Element(fld.Name())
	if !ok {
		return nil
	}
	apply := func(answer string) error {
		if err := s.doc.Input(s.spec.Name, el.Name(), ""); err != nil {
			return err
		}
		if err := s.doc.Type(s.spec.Name, el.Name(), answer); err != nil {
			return err
		}
		if err := s.doc.Change(s.spec.Name, el.Name()); err != nil {
			return err
		}
		if kept := el.Value(); kept != answer {
			return fmt.Errorf("%q is not accepted here (kept %q)", answer, kept)
		}
		return s.check(fld)
	}

	var (
		answer string
		err    error
	)
	switch {
	case el.Kind() == control.KindTextArea:
		answer, err = s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: el.Value(), Validator: apply})
	case el.Type() == "password":
		answer, err = s.driver.Password(ctx, InputConfig{Message: label, Validator: apply})
	default:
		answer, err = s.driver.Input(ctx, InputConfig{Message: label, Default: el.Value(), Validator: apply})
	}
	if err != nil {
		return err
	}
	if el.Value() != answer {
		_ = apply(answer)
	}
	return nil
}

// check evaluates fld and turns an invalid outcome into its message.
func (s *Session) check(fld field.Field) error {
	state := fld.Evaluate()
	if state == field.Valid {
		return nil
	}
	if msg, ok := s.board.Messages(s.spec.Name)[fld.Name()]; ok {
		return errors.New(msg)
	}
	return errors.New(state.String())
}

func (s *Session) label(name string, required bool) string {
	label := name
	if l, ok := s.labels[name]; ok {
		label = l
	}
	if required {
		label += " *"
	}
	return label
}

func (s *Session) fieldNames() []string {
	fields := s.form.Fields()
	out := make([]string, 0, len(fields))
	for _, fld := range fields {
		out = append(out, fld.Name())
	}
	return out
}

func (s *Session) invalidFields() []string {
	var out []string
	for _, fld := range s.form.Fields() {
		if !fld.Hidden() && (fld.State() != field.Valid || !fld.CustomValid()) {
			out = append(out, fld.Name())
		}
	}
	return out
}

func (s *Session) visible(names []string) []string {
	var out []string
	for _, name := range names {
		if fld, ok := s.form.Field(name); ok && !fld.Hidden() {
			out = append(out, name)
		}
	}
	return out
}

func (s *Session) report(ctx context.Context, lines []string) error {
	for _, line := range lines {
		if err := s.driver.Info(ctx, s.theme.ErrorPrefix+line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

// verdictLines prefers the server's own messages and falls back to the
// board, which carries the server-rejected signal of every marked field.
func verdictLines(v verdict.Verdict, board []string) []string {
	messages := v.Messages()
	if len(messages) == 0 {
		return board
	}
	names := make([]string, 0, len(messages))
	for name := range messages {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []string
	for _, name := range names {
		for _, msg := range messages[name] {
			out = append(out, name+": "+msg)
		}
	}
	return append(out, v.FormMessages()...)
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return -1
}
