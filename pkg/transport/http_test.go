package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/transport"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

type capturedRequest struct {
	Method      string
	Path        string
	ContentType string
	Submission  string
	Body        string
}

func replyServer(t *testing.T, status int, body string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			*seen = capturedRequest{
				Method:      r.Method,
				Path:        r.URL.Path,
				ContentType: r.Header.Get("Content-Type"),
				Submission:  r.Header.Get(transport.HeaderSubmissionID),
				Body:        string(raw),
			}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deliver(t *testing.T, tr *transport.HTTP, sub form.Submission) verdict.Verdict {
	t.Helper()
	var got []verdict.Verdict
	tr.Deliver(context.Background(), sub, func(v verdict.Verdict) { got = append(got, v) })
	if len(got) != 1 {
		t.Fatalf("expected exactly one acknowledgment, got %d", len(got))
	}
	return got[0]
}

func TestHTTPDeliverJSON(t *testing.T) {
	t.Parallel()

	var seen capturedRequest
	srv := replyServer(t, http.StatusNoContent, "", &seen)
	tr, err := transport.NewHTTP(srv.URL + "/forms/{form}/validate")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sub := form.Submission{
		ID:   uuid.New(),
		Form: "signup",
		Payload: form.Payload{
			"email": "<b>a@b.co</b>",
			"qty":   2.0,
			"data":  map[string]any{"token": "t&1"},
		},
	}
	v := deliver(t, tr, sub)
	if !v.Accepted() {
		t.Fatalf("expected accept for an empty 2xx reply, got %s", v)
	}

	if seen.Method != http.MethodPost || seen.Path != "/forms/signup/validate" {
		t.Fatalf("unexpected request line %s %s", seen.Method, seen.Path)
	}
	if seen.ContentType != "application/json" || seen.Submission != sub.ID.String() {
		t.Fatalf("unexpected headers: %+v", seen)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(seen.Body), &body); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	want := map[string]any{
		"email": "a@b.co",
		"qty":   2.0,
		"data":  map[string]any{"token": "t&1"},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPDeliverFormEncoding(t *testing.T) {
	t.Parallel()

	var seen capturedRequest
	srv := replyServer(t, http.StatusOK, `{"valid": true}`, &seen)
	tr, err := transport.NewHTTP(srv.URL, transport.WithEncoding(transport.EncodingForm), transport.WithMethod("put"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := deliver(t, tr, form.Submission{
		ID:      uuid.New(),
		Form:    "signup",
		Payload: form.Payload{"terms": "yes", "data": map[string]any{"token": "abc"}},
	})
	if !v.Accepted() {
		t.Fatalf("expected accept, got %s", v)
	}
	if seen.Method != http.MethodPut || seen.ContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected request: %+v", seen)
	}
	values, err := url.ParseQuery(seen.Body)
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	want := url.Values{"terms": {"yes"}, "data[token]": {"abc"}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("form body mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPReplies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		kind   verdict.Kind
		fields []string
	}{
		{name: "fields list", status: http.StatusUnprocessableEntity, body: `{"valid": false, "fields": ["email"]}`, kind: verdict.KindFields, fields: []string{"email"}},
		{name: "bare array", status: http.StatusOK, body: `["email"]`, kind: verdict.KindFields, fields: []string{"email"}},
		{name: "error paths", status: http.StatusBadRequest, body: `{"errors": {"/body/email": ["taken"]}}`, kind: verdict.KindFields, fields: []string{"email"}},
		{name: "bare false", status: http.StatusOK, body: `false`, kind: verdict.KindRejected},
		{name: "malformed", status: http.StatusOK, body: `{oops`, kind: verdict.KindRejected},
		{name: "empty 422", status: http.StatusUnprocessableEntity, kind: verdict.KindRejected},
		{name: "server error", status: http.StatusInternalServerError, body: `{"valid": true}`, kind: verdict.KindRejected},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := replyServer(t, tc.status, tc.body, nil)
			tr, err := transport.NewHTTP(srv.URL)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			v := deliver(t, tr, form.Submission{ID: uuid.New(), Form: "signup", Payload: form.Payload{"email": "x"}})
			if v.Kind() != tc.kind {
				t.Fatalf("expected %s, got %s", tc.kind, v.Kind())
			}
			if diff := cmp.Diff(tc.fields, v.FieldNames()); len(tc.fields) > 0 && diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHTTPNetworkFailureRejects(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	tr, err := transport.NewHTTP(endpoint)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	v := deliver(t, tr, form.Submission{ID: uuid.New(), Form: "signup", Payload: form.Payload{"email": "x"}})
	if v.Kind() != verdict.KindRejected {
		t.Fatalf("expected reject on network failure, got %s", v)
	}

	if _, err := transport.NewHTTP("  "); !errors.Is(err, transport.ErrEndpointRequired) {
		t.Fatalf("expected ErrEndpointRequired, got %v", err)
	}
}

func TestSanitizer(t *testing.T) {
	t.Parallel()

	s := transport.NewSanitizer(nil)
	got := s.Payload(form.Payload{
		"bio":  `Tom & Jerry <em>now</em>`,
		"tags": []any{"<i>go</i>", 3.0},
		"data": map[string]any{"note": "<a href='x'>hi</a>"},
	})
	want := form.Payload{
		"bio":  "Tom & Jerry now",
		"tags": []any{"go", 3.0},
		"data": map[string]any{"note": "hi"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sanitised payload mismatch (-want +got):\n%s", diff)
	}

	var off *transport.Sanitizer
	if off.String("<b>x</b>") != "<b>x</b>" {
		t.Fatalf("nil sanitizer must pass values through")
	}
}

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]transport.Encoding{"": transport.EncodingJSON, "JSON": transport.EncodingJSON, "urlencoded": transport.EncodingForm} {
		got, err := transport.ParseEncoding(raw)
		if err != nil || got != want {
			t.Fatalf("ParseEncoding(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := transport.ParseEncoding("xml"); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}
