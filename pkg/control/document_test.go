package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleDocument() *Document {
	doc := NewDocument()
	doc.AddForm("signup",
		Input("email", "email", WithRequired()),
		Input("phone", "tel", InRegion("contact")),
		Input("extension", "text", InRegion("office")),
		Radio("plan", "free", InRegion("contact")),
		Radio("plan", "pro", InRegion("contact")),
		SubmitButton("send"),
	).
		AddRegion("contact", "", true).
		AddRegion("office", "contact", true)
	return doc
}

func TestDocumentControls(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	controls, err := doc.Controls("signup")
	if err != nil {
		t.Fatalf("controls: %v", err)
	}
	var names []string
	for _, c := range controls {
		names = append(names, c.Name())
	}
	want := []string{"email", "phone", "extension", "plan", "plan", "send"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("control names mismatch (-want +got):\n%s", diff)
	}

	if _, err := doc.Controls("missing"); err == nil {
		t.Fatalf("expected error for unknown form")
	}
}

func TestDocumentScope(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()

	if diff := cmp.Diff([]string{"contact", "office"}, doc.HiddenRegions("signup")); diff != "" {
		t.Fatalf("hidden regions mismatch (-want +got):\n%s", diff)
	}

	hiddenScope := doc.Scope("signup", "contact", true)
	if diff := cmp.Diff([]string{"phone", "extension", "plan"}, hiddenScope); diff != "" {
		t.Fatalf("hidden scope mismatch (-want +got):\n%s", diff)
	}

	// Nested office region is still hidden so its fields stay out.
	visibleScope := doc.Scope("signup", "contact", false)
	if diff := cmp.Diff([]string{"phone", "plan"}, visibleScope); diff != "" {
		t.Fatalf("visible scope mismatch (-want +got):\n%s", diff)
	}

	doc.SetRegionHidden("signup", "office", false)
	visibleScope = doc.Scope("signup", "contact", false)
	if diff := cmp.Diff([]string{"phone", "extension", "plan"}, visibleScope); diff != "" {
		t.Fatalf("scope after reveal mismatch (-want +got):\n%s", diff)
	}
}

type event struct {
	Field string
	Class EventClass
}

func TestDocumentEvents(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	var got []event
	stop := doc.Listen("signup", func(field string, class EventClass) {
		got = append(got, event{Field: field, Class: class})
	})

	if err := doc.Type("signup", "email", "ab"); err != nil {
		t.Fatalf("type: %v", err)
	}
	if err := doc.Change("signup", "email"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if err := doc.Check("signup", "plan", "pro", true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := doc.Click("signup", "send"); err != nil {
		t.Fatalf("click: %v", err)
	}

	want := []event{
		{"email", Live}, {"email", Live}, {"email", Commit},
		{"plan", Live}, {"plan", Commit},
		{"send", Activate},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	node, _ := doc.FormNode("signup")
	if el, _ := node.Element("email"); el.Value() != "ab" {
		t.Fatalf("expected typed value ab, got %q", el.Value())
	}
	group := node.Group("plan")
	if group[0].Checked() || !group[1].Checked() {
		t.Fatalf("expected only pro to be checked")
	}

	stop()
	_ = doc.Click("signup", "send")
	if len(got) != len(want) {
		t.Fatalf("handler fired after unsubscribe")
	}

	if err := doc.Check("signup", "plan", "enterprise", true); err == nil {
		t.Fatalf("expected error for unknown radio member")
	}
}

func TestDocumentClasses(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	doc.AddClass("signup", "plan", "empty")
	if !doc.HasClass("signup", "plan", "empty") {
		t.Fatalf("expected class on radio group")
	}
	node, _ := doc.FormNode("signup")
	for _, el := range node.Group("plan") {
		if diff := cmp.Diff([]string{"empty"}, el.Classes()); diff != "" {
			t.Fatalf("member classes mismatch (-want +got):\n%s", diff)
		}
	}
	doc.RemoveClass("signup", "plan", "empty")
	if doc.HasClass("signup", "plan", "empty") {
		t.Fatalf("expected class removed")
	}
}

func TestDocumentPopulate(t *testing.T) {
	t.Parallel()

	doc := NewDocument()
	doc.AddForm("order",
		Input("qty", "number", WithValue("9")),
		Input("note", "text", WithValue("old")),
		Checkbox("gift", WithChecked()),
		Checkbox("wrap"),
		Radio("ship", "post"),
		Radio("ship", "courier", WithChecked()),
	)
	err := doc.Populate("order", map[string]string{
		"qty":  "3",
		"wrap": "yes",
		"ship": "post",
	})
	if err != nil {
		t.Fatalf("populate: %v", err)
	}

	node, _ := doc.FormNode("order")
	type state struct {
		Value   string
		Checked bool
	}
	var got []state
	for _, el := range node.Elements() {
		got = append(got, state{el.Value(), el.Checked()})
	}
	want := []state{
		{"3", false},
		{"", false},
		{"", false},
		{"", true},
		{"post", true},
		{"courier", false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("populated state mismatch (-want +got):\n%s", diff)
	}

	if err := doc.Populate("missing", nil); err == nil {
		t.Fatalf("expected error for unknown form")
	}
}

func TestElementClone(t *testing.T) {
	t.Parallel()

	orig := Select("plan", WithOptions("free", "pro"), WithAttr("data-start-validation", "change"))
	orig.classes["empty"] = struct{}{}
	clone := orig.Clone()
	clone.SetValue("pro")
	clone.attrs["data-start-validation"] = "input"

	if orig.Value() != "" {
		t.Fatalf("clone must not share value")
	}
	if v, _ := orig.Attr("data-start-validation"); v != "change" {
		t.Fatalf("clone must not share attributes")
	}
	if len(clone.Classes()) != 0 {
		t.Fatalf("clone must start without classes")
	}
	if diff := cmp.Diff([]string{"free", "pro"}, clone.Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}
