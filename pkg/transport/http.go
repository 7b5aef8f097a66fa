package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

// Request headers set on every submission.
const (
	HeaderSubmissionID = "X-Submission-ID"
	HeaderForm         = "X-Form-Name"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20
	formPlaceholder = "{form}"
)

// ErrEndpointRequired is returned by NewHTTP without an endpoint.
var ErrEndpointRequired = errors.New("transport: endpoint is required")

// HTTP posts submissions to an endpoint and turns the reply into a
// verdict. The endpoint may contain "{form}", replaced by the form name.
//
// A 2xx reply with an empty body accepts. 2xx, 400 and 422 replies with a
// body are decoded as verdicts. Every other status, and network failures,
// reject without marking fields.
type HTTP struct {
	endpoint  string
	method    string
	client    *http.Client
	encoding  Encoding
	headers   http.Header
	sanitizer *Sanitizer
	logger    *zap.Logger
}

var _ form.Transport = (*HTTP)(nil)

// HTTPOption customises an HTTP transport.
type HTTPOption func(*HTTP)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		if client != nil {
			t.client = client
		}
	}
}

// WithMethod overrides the request method (POST by default).
func WithMethod(method string) HTTPOption {
	return func(t *HTTP) {
		if method = strings.ToUpper(strings.TrimSpace(method)); method != "" {
			t.method = method
		}
	}
}

// WithEncoding selects the body encoding.
func WithEncoding(e Encoding) HTTPOption {
	return func(t *HTTP) {
		if e != "" {
			t.encoding = e
		}
	}
}

// WithHeader adds a request header.
func WithHeader(name, value string) HTTPOption {
	return func(t *HTTP) {
		t.headers.Add(name, value)
	}
}

// WithSanitizer replaces the payload sanitiser. Nil disables sanitising.
func WithSanitizer(s *Sanitizer) HTTPOption {
	return func(t *HTTP) {
		t.sanitizer = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) HTTPOption {
	return func(t *HTTP) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewHTTP builds a transport posting to endpoint.
func NewHTTP(endpoint string, opts ...HTTPOption) (*HTTP, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	t := &HTTP{
		endpoint:  endpoint,
		method:    http.MethodPost,
		client:    &http.Client{Timeout: defaultTimeout},
		encoding:  EncodingJSON,
		headers:   make(http.Header),
		sanitizer: NewSanitizer(nil),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

// Deliver implements form.Transport. It blocks until the reply arrives and
// acknowledges before returning.
func (t *HTTP) Deliver(ctx context.Context, sub form.Submission, ack form.Ack) {
	logger := t.logger.With(zap.String("form", sub.Form), zap.Stringer("submission", sub.ID))
	v, err := t.roundTrip(ctx, sub)
	if err != nil {
		logger.Warn("submission failed", zap.Error(err))
		ack(verdict.Reject())
		return
	}
	logger.Debug("submission answered", zap.Stringer("verdict", v))
	ack(v)
}

func (t *HTTP) roundTrip(ctx context.Context, sub form.Submission) (verdict.Verdict, error) {
	payload := t.sanitizer.Payload(sub.Payload)
	body, err := encode(t.encoding, payload)
	if err != nil {
		return verdict.Verdict{}, err
	}

	url := strings.ReplaceAll(t.endpoint, formPlaceholder, sub.Form)
	req, err := http.NewRequestWithContext(ctx, t.method, url, bytes.NewReader(body))
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("transport: build request: %w", err)
	}
	for name, values := range t.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", t.encoding.contentType())
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(HeaderSubmissionID, sub.ID.String())
	req.Header.Set(HeaderForm, sub.Form)

	resp, err := t.client.Do(req)
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("transport: %s %s: %w", t.method, url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("transport: read reply: %w", err)
	}
	return interpret(resp.StatusCode, reply, knownFields(sub.Payload))
}

func interpret(status int, reply []byte, known []string) (verdict.Verdict, error) {
	empty := len(bytes.TrimSpace(reply)) == 0
	switch {
	case status >= 200 && status < 300:
		if empty {
			return verdict.Accept(), nil
		}
		return verdict.Decode(reply, known...), nil
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if empty {
			return verdict.Reject(), nil
		}
		return verdict.Decode(reply, known...), nil
	default:
		return verdict.Verdict{}, fmt.Errorf("transport: unexpected status %d", status)
	}
}

func knownFields(payload form.Payload) []string {
	out := make([]string, 0, len(payload))
	for k := range payload {
		if k != form.DataKey {
			out = append(out, k)
		}
	}
	return out
}
