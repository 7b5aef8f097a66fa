package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/field"
	"github.com/goliatone/go-formstate/pkg/registry"
	"github.com/goliatone/go-formstate/pkg/spec"
	"github.com/goliatone/go-formstate/pkg/verdict"
)

const defaultMaxBodySize = 1 << 20

// ErrNoControls is returned when a form spec declares no controls and so
// cannot be rebuilt on the server.
var ErrNoControls = errors.New("transport: form spec declares no controls")

// Handler serves a spec catalog and re-validates submissions headlessly.
// Every request builds its own document and registry, so requests share no
// model state.
type Handler struct {
	mu        sync.RWMutex
	catalog   *spec.Catalog
	messages  *feedback.Messages
	sanitizer *Sanitizer
	logger    *zap.Logger
	maxBody   int64
	router    chi.Router
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMessages replaces the message templates used in rejection replies.
func WithMessages(messages *feedback.Messages) HandlerOption {
	return func(h *Handler) {
		if messages != nil {
			h.messages = messages
		}
	}
}

// WithHandlerSanitizer replaces the sanitiser applied to incoming values.
// Nil disables sanitising.
func WithHandlerSanitizer(s *Sanitizer) HandlerOption {
	return func(h *Handler) {
		h.sanitizer = s
	}
}

// WithMaxBodySize caps the accepted request body.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler builds a handler over catalog.
func NewHandler(catalog *spec.Catalog, opts ...HandlerOption) (*Handler, error) {
	messages, err := feedback.NewMessages(nil)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		catalog:   catalog,
		messages:  messages,
		sanitizer: NewSanitizer(nil),
		logger:    zap.NewNop(),
		maxBody:   defaultMaxBodySize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.router = h.Routes()
	return h, nil
}

// SetCatalog swaps the served catalog, for reloads.
func (h *Handler) SetCatalog(catalog *spec.Catalog) {
	h.mu.Lock()
	h.catalog = catalog
	h.mu.Unlock()
}

func (h *Handler) lookup(name string) (spec.FormSpec, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalog.Form(name)
}

// Routes returns the handler's router:
//
//	GET  /healthz
//	GET  /forms
//	GET  /forms/{form}
//	POST /forms/{form}/validate
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Route("/forms", func(forms chi.Router) {
		forms.Get("/", h.listForms)
		forms.Get("/{form}", h.showForm)
		forms.Post("/{form}/validate", h.validate)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) listForms(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	names := h.catalog.Names()
	h.mu.RUnlock()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": names})
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(chi.URLParam(r, "form"))
	if !ok {
		writeError(w, http.StatusNotFound, "form not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "form")
	logger := h.logger.With(zap.String("form", name), zap.String("submission", r.Header.Get(HeaderSubmissionID)))

	s, ok := h.lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "form not found")
		return
	}
	sub, err := h.readSubmission(w, r)
	if err != nil {
		logger.Debug("unreadable submission", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.Revalidate(r.Context(), s, sub.values, sub.data)
	if err != nil {
		logger.Warn("revalidation failed", zap.Error(err))
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if !v.Accepted() {
		logger.Info("submission rejected", zap.Strings("fields", v.FieldNames()))
		writeJSON(w, http.StatusUnprocessableEntity, v)
		return
	}
	logger.Info("submission accepted")
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeForm {
		if err := r.ParseForm(); err != nil {
			return submission{}, fmt.Errorf("transport: parse form body: %w", err)
		}
		return decodeFormSubmission(r.PostForm), nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return submission{}, fmt.Errorf("transport: read body: %w", err)
	}
	return decodeJSONSubmission(body)
}

// Revalidate rebuilds s in a fresh document, fills it with values and data,
// and validates every field. Invalid fields come back as a Fields verdict
// carrying one message per field.
func (h *Handler) Revalidate(ctx context.Context, s spec.FormSpec, values map[string]string, data any) (verdict.Verdict, error) {
	if len(s.Controls) == 0 {
		return verdict.Verdict{}, fmt.Errorf("%w: %q", ErrNoControls, s.Name)
	}
	doc, err := spec.Document(s)
	if err != nil {
		return verdict.Verdict{}, err
	}
	clean := make(map[string]string, len(values))
	for k, v := range values {
		clean[k] = h.sanitizer.String(v)
	}
	if err := doc.Populate(s.Name, clean); err != nil {
		return verdict.Verdict{}, err
	}

	board := feedback.NewBoard(h.messages,
		feedback.WithLabels(s.Labels()),
		feedback.WithErrorHandler(func(err error) {
			h.logger.Debug("message render failed", zap.Error(err))
		}),
	)
	reg := registry.New(doc, registry.WithLogger(h.logger), registry.WithFeedback(board))
	defer reg.Close()
	if err := reg.Register(s, nil); err != nil {
		return verdict.Verdict{}, err
	}
	if data != nil {
		if err := reg.AttachData(s.Name, h.sanitizer.value(data)); err != nil {
			return verdict.Verdict{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return verdict.Verdict{}, err
	}

	valid, err := reg.Validate(s.Name)
	if err != nil {
		return verdict.Verdict{}, err
	}
	if valid {
		return verdict.Accept(), nil
	}

	f, err := reg.Form(s.Name)
	if err != nil {
		return verdict.Verdict{}, err
	}
	var invalid []string
	for _, fld := range f.Fields() {
		if fld.State() != field.Valid {
			invalid = append(invalid, fld.Name())
		}
	}
	messages := make(map[string][]string)
	for name, text := range board.Messages(s.Name) {
		messages[name] = []string{text}
	}
	return verdict.Fields(invalid...).WithMessages(messages, nil), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
