package httpform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-formkit/internal/logging"
	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
)

const (
	actionField  = "_action"
	actionSubmit = "submit"
	csrfHeader   = "X-CSRF-Token"
	maxBodyBytes = 1 << 20

	// DefaultSessionTTL is how long an untouched session is kept.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions caps live sessions per server.
	DefaultMaxSessions = 10000
)

// SubmitHandler receives the model of an accepted submission. Returning a
// *ValidationError maps its messages back onto the form.
type SubmitHandler func(ctx context.Context, model form.Record) error

// ValidationError carries server-side messages keyed by field path. Keys may
// use dotted paths or JSON pointers; unmatched keys become form-level errors,
// listed after Form.
type ValidationError struct {
	Fields map[string][]string
	Form   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("httpform: submission rejected with %d field error(s)", len(e.Fields)+len(e.Form))
}

// SeedFunc returns the model a new session is mounted with.
type SeedFunc func(r *http.Request) (form.Record, error)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the host logger. It is also passed to mounted instances.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

// WithRegisterer registers the host counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.registerer = reg
	}
}

// WithName labels metrics and the page title.
func WithName(name string) Option {
	return func(s *Server) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			s.name = trimmed
		}
	}
}

// WithTitle sets the HTML page title.
func WithTitle(title string) Option {
	return func(s *Server) {
		s.title = strings.TrimSpace(title)
	}
}

// WithMountOptions forwards options to every mounted instance.
func WithMountOptions(opts ...form.MountOption) Option {
	return func(s *Server) {
		s.mountOpts = append(s.mountOpts, opts...)
	}
}

// WithSeed sets the model new sessions start from.
func WithSeed(seed SeedFunc) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithSubmitHandler sets the handler for accepted submissions.
func WithSubmitHandler(fn SubmitHandler) Option {
	return func(s *Server) {
		s.onSubmit = fn
	}
}

// WithSessionTTL sets how long a session may sit idle before it is dropped.
// Zero or less keeps sessions until they are deleted or evicted by the cap.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessionTTL = ttl
	}
}

// WithMaxSessions caps live sessions. Mounting past the cap evicts the least
// recently used session. Zero or less removes the cap.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		s.maxSessions = n
	}
}

// WithCSRF emits token(r) in a hidden input called name and rejects POSTs
// whose token (form field or X-CSRF-Token header) does not match.
func WithCSRF(name string, token func(r *http.Request) string) Option {
	return func(s *Server) {
		s.csrfName = strings.TrimSpace(name)
		s.csrfToken = token
	}
}

// Server is an http.Handler serving one form definition.
type Server struct {
	form     *form.Form
	registry *controls.Registry
	sessions *store
	router   chi.Router
	metrics  *metrics

	logger     *slog.Logger
	registerer prometheus.Registerer
	name       string
	title      string
	mountOpts  []form.MountOption
	seed       SeedFunc
	onSubmit   SubmitHandler
	csrfName   string
	csrfToken  func(r *http.Request) string

	sessionTTL  time.Duration
	maxSessions int
}

// New builds a Server for f.
func New(f *form.Form, opts ...Option) (*Server, error) {
	if f == nil {
		return nil, errors.New("httpform: form is required")
	}
	s := &Server{
		form:        f,
		registry:    f.Registry(),
		logger:      logging.NewNop(),
		name:        "form",
		csrfName:    "_csrf",
		sessionTTL:  DefaultSessionTTL,
		maxSessions: DefaultMaxSessions,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.title == "" {
		s.title = s.name
	}

	s.metrics = newMetrics(s.name)
	if err := s.metrics.register(s.registerer); err != nil {
		return nil, fmt.Errorf("httpform: register metrics: %w", err)
	}
	s.sessions = newStore(s.sessionTTL, s.maxSessions, func(id string) {
		s.metrics.evictions.Inc()
		s.logger.Debug("session evicted", "form", s.name, "session", id)
	})

	r := chi.NewRouter()
	r.Get("/", s.handleNew)
	r.Route("/{session}", func(r chi.Router) {
		r.Use(s.sessionContext)
		r.Get("/", s.handleShow)
		r.Post("/", s.handlePost)
		r.Delete("/", s.handleDelete)
		r.Get("/state", s.handleState)
		r.Post("/fields/{field}", s.handleField)
	})
	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sessions reports how many sessions are live. Idle sessions past their TTL
// are dropped first.
func (s *Server) Sessions() int {
	return s.sessions.len()
}

// Mount creates a session seeded with model and returns its id.
func (s *Server) Mount(model form.Record) string {
	sess := s.sessions.create()
	opts := append([]form.MountOption{form.WithLogger(s.logger)}, s.mountOpts...)
	opts = append(opts, form.WithOnSubmit(func(model form.Record, ev *form.SubmitEvent) {
		if s.onSubmit != nil {
			sess.submitErr = s.onSubmit(ev.Context(), model)
		}
	}))
	sess.inst = s.form.Mount(model, opts...)
	s.metrics.sessions.Inc()
	s.logger.Info("session mounted", "form", s.name, "session", sess.id)
	return sess.id
}

// State returns a snapshot of session id.
func (s *Server) State(id string) (State, bool) {
	sess, ok := s.sessions.get(id)
	if !ok {
		return State{}, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state(), true
}

type sessionKey struct{}

func (s *Server) sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.get(chi.URLParam(r, "session"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session {
	sess, _ := r.Context().Value(sessionKey{}).(*session)
	return sess
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	var model form.Record
	if s.seed != nil {
		var err error
		if model, err = s.seed(r); err != nil {
			s.logger.Error("seed model failed", "form", s.name, "error", err)
			http.Error(w, "could not load form data", http.StatusInternalServerError)
			return
		}
	}
	id := s.Mount(model)

	if wantsJSON(r) {
		state, _ := s.State(id)
		writeJSON(w, s.logger, http.StatusCreated, state)
		return
	}
	http.Redirect(w, r, strings.TrimSuffix(r.URL.Path, "/")+"/"+id, http.StatusSeeOther)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.writePage(w, r, sess, http.StatusOK)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, s.logger, http.StatusOK, sess.state())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if !s.validCSRF(r, "") {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	s.sessions.delete(sess.id)
	s.logger.Info("session closed", "form", s.name, "session", sess.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	jsonBody := isJSONRequest(r)
	var action string
	var err error
	if jsonBody {
		if !s.validCSRF(r, "") {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		var body []byte
		body, err = readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		action = jsonAction(body)
		err = s.applyJSON(sess.inst, body)
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form body", http.StatusBadRequest)
			return
		}
		if !s.validCSRF(r, r.PostForm.Get(s.csrfName)) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		action = r.PostForm.Get(actionField)
		err = s.applyForm(sess.inst, r.PostForm)
	}
	if err != nil {
		s.logger.Warn("apply edits failed", "form", s.name, "session", sess.id, "error", err)
		s.writeError(w, jsonBody, http.StatusBadRequest, err)
		return
	}

	status := http.StatusOK
	if action == actionSubmit {
		outcome, err := s.submit(r.Context(), sess)
		if err != nil {
			s.logger.Error("submit handler failed", "form", s.name, "session", sess.id, "error", err)
			s.writeError(w, jsonBody, http.StatusInternalServerError, errors.New("submission failed"))
			return
		}
		if outcome != outcomeAccepted {
			status = http.StatusUnprocessableEntity
		}
	}

	if jsonBody {
		writeJSON(w, s.logger, status, sess.state())
		return
	}
	s.writePage(w, r, sess, status)
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	id := form.FieldID(chi.URLParam(r, "field"))
	field, ok := sess.inst.Field(id)
	if !ok {
		http.Error(w, "field not found", http.StatusNotFound)
		return
	}
	model := sess.inst.Model()
	if !field.Visible.Resolve(model, true) {
		s.writeError(w, true, http.StatusConflict, fmt.Errorf("field %q is hidden", string(id)))
		return
	}
	if field.Readonly.Resolve(model, false) {
		s.writeError(w, true, http.StatusConflict, fmt.Errorf("field %q is read-only", string(id)))
		return
	}

	var value any
	if isJSONRequest(r) {
		if !s.validCSRF(r, "") {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		body, err := readBody(r)
		if err != nil {
			s.writeError(w, true, http.StatusBadRequest, err)
			return
		}
		result, ok := jsonValue(body, "value")
		if !ok {
			s.writeError(w, true, http.StatusBadRequest, errors.New(`body must carry a "value" member`))
			return
		}
		value = result
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeError(w, true, http.StatusBadRequest, err)
			return
		}
		if !s.validCSRF(r, r.PostForm.Get(s.csrfName)) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		decoded, err := s.decode(field, r.PostForm["value"])
		if err != nil {
			s.writeError(w, true, http.StatusBadRequest, err)
			return
		}
		value = decoded
	}

	if err := s.set(sess.inst, field, value); err != nil {
		s.writeError(w, true, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, sess.state())
}

// submit must be called with sess.mu held.
func (s *Server) submit(ctx context.Context, sess *session) (string, error) {
	sess.submitErr = nil
	sess.formErrors = nil
	if !sess.inst.Submit(form.NewSubmitEvent(ctx)) {
		s.metrics.submissions.WithLabelValues(outcomeBlocked).Inc()
		s.logger.Info("submission blocked", "form", s.name, "session", sess.id, "errors", len(sess.inst.Errors()))
		return outcomeBlocked, nil
	}

	if err := sess.submitErr; err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			s.metrics.submissions.WithLabelValues(outcomeError).Inc()
			return outcomeError, err
		}
		sess.formErrors = render.MergeFormErrors(verr.Form, sess.inst.ApplyErrors(verr.Fields)...)
		s.metrics.submissions.WithLabelValues(outcomeRejected).Inc()
		s.logger.Info("submission rejected", "form", s.name, "session", sess.id)
		return outcomeRejected, nil
	}

	sess.submitted = true
	s.metrics.submissions.WithLabelValues(outcomeAccepted).Inc()
	s.logger.Info("submission accepted", "form", s.name, "session", sess.id)
	return outcomeAccepted, nil
}

func (s *Server) validCSRF(r *http.Request, fromForm string) bool {
	if s.csrfToken == nil {
		return true
	}
	expected := s.csrfToken(r)
	if expected == "" {
		return true
	}
	got := r.Header.Get(csrfHeader)
	if got == "" {
		got = fromForm
	}
	return got == expected
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, sess *session, status int) {
	opts := render.Options{
		ID:     "formkit-" + sess.id,
		Action: r.URL.Path,
		Method: http.MethodPost,
		Hidden: []render.HiddenField{render.SessionField("", sess.id)},
	}
	if s.csrfToken != nil {
		if token := s.csrfToken(r); token != "" {
			opts.Hidden = append(opts.Hidden, render.CSRFToken(s.csrfName, token))
		}
	}

	var body bytes.Buffer
	if err := sess.inst.Render(r.Context(), &body, opts); err != nil {
		s.logger.Error("render form failed", "form", s.name, "session", sess.id, "error", err)
		http.Error(w, "could not render form", http.StatusInternalServerError)
		return
	}

	var notices bytes.Buffer
	if sess.submitted {
		notices.WriteString(`<p class="formkit-status" role="status">Submitted</p>`)
	}
	if len(sess.formErrors) > 0 {
		notices.WriteString(`<ul class="formkit-form-errors" role="alert">`)
		for _, message := range sess.formErrors {
			notices.WriteString(`<li>`)
			notices.WriteString(html.EscapeString(message))
			notices.WriteString(`</li>`)
		}
		notices.WriteString(`</ul>`)
	}
	notices.Write(body.Bytes())

	styles, scripts := s.registry.Assets(s.form.Tags())
	var page bytes.Buffer
	render.WritePage(&page, render.Page{
		Title:       s.title,
		Stylesheets: styles,
		Scripts:     scripts,
		Body:        notices.Bytes(),
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(page.Bytes()); err != nil {
		s.logger.Debug("write page failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, asJSON bool, status int, err error) {
	if !asJSON {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, s.logger, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("encode response failed", "error", err)
	}
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
