package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formstate/pkg/control"
	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/registry"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

func signupDocument() *control.Document {
	doc := control.NewDocument()
	doc.AddForm("signup",
		control.Input("email", "email"),
		control.Input("code", "text"),
		control.Input("company", "text", control.WithRequired(), control.InRegion("business")),
		control.Select("kind", control.WithRequired(), control.WithValue("personal")),
		control.SubmitButton("send"),
	).AddRegion("business", "", true)
	return doc
}

func signupSpec() spec.FormSpec {
	return spec.FormSpec{
		Name:   "signup",
		Submit: "send",
		Fields: map[string]spec.FieldSpec{
			"email": {Required: spec.Bool(true)},
			"code":  {Required: spec.Bool(true), ValidTemplate: `/^\d{3}$/`},
		},
	}
}

func stateOf(t *testing.T, reg *registry.Registry, form, name string) field.State {
	t.Helper()
	f, err := reg.Form(form)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	fld, ok := f.Field(name)
	if !ok {
		t.Fatalf("field %s missing", name)
	}
	return fld.State()
}

func TestUnknownFormFails(t *testing.T) {
	t.Parallel()

	reg := registry.New(control.NewDocument())
	checks := map[string]error{}
	_, checks["validate"] = reg.Validate("ghost")
	_, checks["submit"] = reg.Submit(context.Background(), "ghost")
	_, checks["data"] = reg.GetData("ghost")
	checks["attach"] = reg.AttachData("ghost", 1)
	checks["reset"] = reg.Reset("ghost")
	checks["hidden"] = reg.SetHidden("ghost", "r", true)
	checks["dispatch"] = reg.Dispatch(context.Background(), "ghost", "x", control.Commit)
	for op, err := range checks {
		if !errors.Is(err, registry.ErrFormNotFound) {
			t.Fatalf("%s: expected ErrFormNotFound, got %v", op, err)
		}
	}
}

func TestRegisterConfigurationErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		spec spec.FormSpec
		want error
	}{
		{
			name: "missing control",
			spec: spec.FormSpec{Name: "signup", Fields: map[string]spec.FieldSpec{"phone": {}}},
			want: registry.ErrMissingControl,
		},
		{
			name: "missing submit",
			spec: spec.FormSpec{Name: "signup", Submit: "go"},
			want: registry.ErrMissingSubmitControl,
		},
		{
			name: "invalid spec",
			spec: spec.FormSpec{Name: "signup", StartValidation: "blur"},
			want: spec.ErrInvalidSpec,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := registry.New(signupDocument())
			if err := reg.Register(tc.spec, nil); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(reg.Names()) != 0 {
				t.Fatalf("failed registration must not be stored")
			}
		})
	}

	reg := registry.New(signupDocument())
	if err := reg.Register(spec.FormSpec{Name: "other"}, nil); err == nil {
		t.Fatalf("expected error for a form the document does not contain")
	}
}

func TestRequiredThenPattern(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	if err := reg.Register(signupSpec(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	_ = doc.Fill("signup", "code", "12")
	if got := stateOf(t, reg, "signup", "code"); got != field.InvalidPattern {
		t.Fatalf("expected pattern violation, got %s", got)
	}
	_ = doc.Fill("signup", "code", "")
	if got := stateOf(t, reg, "signup", "code"); got != field.InvalidRequired {
		t.Fatalf("expected required violation, got %s", got)
	}
	_ = doc.Fill("signup", "code", "123")
	if got := stateOf(t, reg, "signup", "code"); got != field.Valid {
		t.Fatalf("expected valid, got %s", got)
	}
}

func TestTriggerModesUnion(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	s := signupSpec()
	s.StartValidation = "input"
	if err := reg.Register(s, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	_ = doc.Type("signup", "email", "a")
	if got := stateOf(t, reg, "signup", "email"); got != field.InvalidPattern {
		t.Fatalf("form-level input mode should validate on keystrokes, got %s", got)
	}
	_ = doc.Input("signup", "email", "")
	_ = doc.Change("signup", "email")
	if got := stateOf(t, reg, "signup", "email"); got != field.InvalidRequired {
		t.Fatalf("registry-level change mode should still apply, got %s", got)
	}
}

func TestRegistryStartValidationDefault(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc, registry.WithStartValidation(field.ModeLive))
	if err := reg.Register(signupSpec(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = doc.Type("signup", "code", "1")
	if got := stateOf(t, reg, "signup", "code"); got != field.InvalidPattern {
		t.Fatalf("expected live validation, got %s", got)
	}
}

func TestReRegisterReplacesForm(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	if err := reg.Register(signupSpec(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	first, _ := reg.Form("signup")

	if err := reg.Register(spec.FormSpec{Name: "signup"}, nil); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	second, _ := reg.Form("signup")
	if first == second {
		t.Fatalf("expected a new form instance")
	}
	if diff := cmp.Diff([]string{"signup"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	_ = doc.Fill("signup", "code", "12")
	code, _ := first.Field("code")
	if code.State() != field.Unevaluated {
		t.Fatalf("replaced form must stop receiving events")
	}
	if ok, _ := reg.Validate("signup"); !ok {
		t.Fatalf("replacement without overrides should be valid")
	}
}

func TestReRegisterRestoresNativeFlags(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	if err := reg.Register(spec.FormSpec{Name: "signup"}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	// company starts hidden in the business region.
	if err := reg.Register(spec.FormSpec{Name: "signup"}, nil); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := reg.SetHidden("signup", "business", false); err != nil {
		t.Fatalf("set hidden: %v", err)
	}

	type flags struct{ Required, Disabled bool }
	f, _ := reg.Form("signup")
	company, _ := f.Field("company")
	if diff := cmp.Diff(flags{Required: true}, flags{company.Required(), company.Disabled()}); diff != "" {
		t.Fatalf("company field flags mismatch (-want +got):\n%s", diff)
	}
	controls, _ := doc.Controls("signup")
	for _, c := range controls {
		if c.Name() != "company" {
			continue
		}
		if diff := cmp.Diff(flags{Required: true}, flags{c.Required(), c.Disabled()}); diff != "" {
			t.Fatalf("company control flags mismatch (-want +got):\n%s", diff)
		}
	}
	if ok, _ := reg.Validate("signup"); ok {
		t.Fatalf("revealed company is natively required")
	}
}

func TestReRegisterDropsOverrides(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	if err := reg.Register(signupSpec(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(spec.FormSpec{Name: "signup"}, nil); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	controls, _ := doc.Controls("signup")
	for _, c := range controls {
		if (c.Name() == "email" || c.Name() == "code") && c.Required() {
			t.Fatalf("%s kept the required override of the replaced form", c.Name())
		}
	}
	status, _ := reg.Status("signup")
	for _, st := range status {
		if st.Name == "email" && st.Required {
			t.Fatalf("email must not be required after the override is dropped")
		}
	}
}

func TestSubmitAndVerdict(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc, registry.WithFeedback(feedback.NewClassSink(doc, feedback.DefaultClasses())))

	var delivered []form.Payload
	transport := form.TransportFunc(func(_ context.Context, sub form.Submission, ack form.Ack) {
		delivered = append(delivered, sub.Payload)
		ack(verdict.Fields("email"))
	})
	if err := reg.Register(signupSpec(), transport); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.AttachData("signup", map[string]any{"ref": "ad"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if ok, _ := reg.Submit(context.Background(), "signup"); ok {
		t.Fatalf("empty required fields must block submit")
	}
	if !doc.HasClass("signup", "email", "empty") {
		t.Fatalf("expected required indicator on email")
	}

	_ = doc.Fill("signup", "email", "user@example.com")
	_ = doc.Fill("signup", "code", "123")
	_ = doc.Click("signup", "send")

	want := []form.Payload{{
		"email": "user@example.com",
		"code":  "123",
		"kind":  "personal",
		"data":  map[string]any{"ref": "ad"},
	}}
	if diff := cmp.Diff(want, delivered); diff != "" {
		t.Fatalf("delivered payload mismatch (-want +got):\n%s", diff)
	}
	if !doc.HasClass("signup", "email", "invalid-server") {
		t.Fatalf("expected server indicator on email")
	}
	f, _ := reg.Form("signup")
	if f.SubmitState() != form.StateRejected {
		t.Fatalf("expected rejected state, got %s", f.SubmitState())
	}

	if err := reg.Reset("signup"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	data, _ := reg.GetData("signup")
	if _, ok := data["data"]; ok {
		t.Fatalf("reset must drop attached data")
	}
	if doc.HasClass("signup", "email", "invalid-server") {
		t.Fatalf("reset must clear indicators")
	}
}

func TestOnValidCallback(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	calls := 0
	s := signupSpec()
	s.Fields["code"] = spec.FieldSpec{
		Required:      spec.Bool(true),
		ValidTemplate: `/^\d{3}$/`,
		OnValid:       func() { calls++ },
	}
	if err := reg.Register(s, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = doc.Fill("signup", "code", "1")
	_ = doc.Fill("signup", "code", "123")
	_ = doc.Fill("signup", "code", "456")
	if calls != 2 {
		t.Fatalf("expected two valid callbacks, got %d", calls)
	}
}

func TestHiddenRegions(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	if err := reg.Register(spec.FormSpec{Name: "signup"}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if ok, _ := reg.Validate("signup"); !ok {
		t.Fatalf("company is hidden at registration and must not block")
	}
	if err := reg.SetHidden("signup", "business", false); err != nil {
		t.Fatalf("set hidden: %v", err)
	}
	if ok, _ := reg.Validate("signup"); ok {
		t.Fatalf("revealed company is required")
	}
	node, _ := doc.FormNode("signup")
	if node.RegionHidden("business") {
		t.Fatalf("document region should be visible")
	}
}

func TestRegionRules(t *testing.T) {
	t.Parallel()

	doc := signupDocument()
	reg := registry.New(doc)
	s := spec.FormSpec{
		Name:    "signup",
		Regions: []spec.RegionSpec{{Name: "business", VisibleWhen: `kind == "business"`}},
	}
	if err := reg.Register(s, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	_ = doc.Fill("signup", "kind", "business")
	status, _ := reg.Status("signup")
	for _, st := range status {
		if st.Name == "company" && st.Hidden {
			t.Fatalf("company should be revealed by the region rule")
		}
	}
	_ = doc.Fill("signup", "kind", "personal")
	f, _ := reg.Form("signup")
	company, _ := f.Field("company")
	if !company.Hidden() {
		t.Fatalf("company should be hidden again")
	}
}
