package httpform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
)

type fixture struct {
	server    *Server
	registry  *prometheus.Registry
	submitted []form.Record
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	kit := htmlcontrols.MustNew()
	f := kit.Builder().MustCreateForm(
		form.NewSection("Person",
			form.Field{ID: "first", Type: "text", Label: form.Static("First name"), Value: form.At("firstName"), Validate: validation.Required()},
			form.Field{ID: "age", Type: "number", Label: form.Static("Age"), Value: form.At("age"), Validate: validation.Min(18)},
			form.Field{ID: "news", Type: "checkbox", Label: form.Static("Newsletter"), Value: form.At("prefs.news")},
		),
		form.NewSection("Account",
			form.Field{ID: "account", Type: "text", Label: form.Static("Account"), Value: form.At("account.id"), Readonly: form.Static(true)},
			form.Field{ID: "email", Type: "email", Label: form.Static("Email"), Value: form.At("contact.email"), Validate: validation.Required()},
		),
	)

	fx := &fixture{registry: prometheus.NewRegistry()}
	base := []Option{
		WithName("person"),
		WithRegisterer(fx.registry),
		WithMountOptions(kit.MountOptions()...),
		WithSeed(func(*http.Request) (form.Record, error) {
			return form.Record{
				"firstName": "Ann",
				"age":       30.0,
				"account":   form.Record{"id": "acc-1"},
			}, nil
		}),
		WithSubmitHandler(func(_ context.Context, model form.Record) error {
			fx.submitted = append(fx.submitted, model)
			return nil
		}),
	}
	server, err := New(f, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	fx.server = server
	return fx
}

func (fx *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fx.server.ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) mount(t *testing.T) string {
	t.Helper()
	rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	return strings.TrimPrefix(rec.Header().Get("Location"), "/")
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) State {
	t.Helper()
	var st State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v\n%s", err, rec.Body.String())
	}
	return st
}

func TestServer_MountAndRender(t *testing.T) {
	fx := newFixture(t)
	id := fx.mount(t)

	rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<title>person</title>`,
		`<form method="post" id="formkit-` + id + `" action="/` + id + `"`,
		`<input type="hidden" name="_session" value="` + id + `">`,
		`name="firstName" value="Ann"`,
		`name="account.id" value="acc-1" readonly`,
		`<legend>Account</legend>`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page:\n%s", want, body)
		}
	}
	if fx.server.Sessions() != 1 {
		t.Fatalf("expected one session, got %d", fx.server.Sessions())
	}
}

func TestServer_BrowserSubmitFlow(t *testing.T) {
	fx := newFixture(t)
	id := fx.mount(t)

	values := url.Values{
		"firstName":     {"Ann"},
		"age":           {"12"},
		"prefs.news":    {"false"},
		"account.id":    {"hijacked"},
		"contact.email": {""},
		"_action":       {"submit"},
	}
	rec := fx.do(t, postForm("/"+id, values))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for blocked submit, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `role="alert">min 18</p>`) {
		t.Fatalf("expected age error in page:\n%s", rec.Body.String())
	}
	if len(fx.submitted) != 0 {
		t.Fatalf("submit handler called for blocked submission")
	}

	st, _ := fx.server.State(id)
	// Only the edited number field was validated; the untouched email was not.
	if diff := cmp.Diff(map[string]string{"age": "min 18"}, st.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got, _ := form.MustPath("account.id").Get(st.Model); got != "acc-1" {
		t.Fatalf("read-only field was written: %v", got)
	}
	// The unchecked box posts its hidden "false", which matches the absent value.
	if diff := cmp.Diff([]string{"age"}, st.Modified); diff != "" {
		t.Fatalf("modified mismatch (-want +got):\n%s", diff)
	}

	values.Set("age", "41")
	rec = fx.do(t, postForm("/"+id, values))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after fix, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<p class="formkit-status" role="status">Submitted</p>`) {
		t.Fatalf("expected submitted notice:\n%s", rec.Body.String())
	}
	if len(fx.submitted) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(fx.submitted))
	}
	want := form.Record{
		"firstName": "Ann",
		"age":       41.0,
		"account":   form.Record{"id": "acc-1"},
	}
	if diff := cmp.Diff(want, fx.submitted[0]); diff != "" {
		t.Fatalf("submitted model mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_JSONEditsArePartial(t *testing.T) {
	fx := newFixture(t)
	id := fx.server.Mount(form.Record{"firstName": "Ann"})

	rec := fx.do(t, postJSON("/"+id, `{"firstName": "", "prefs": {"news": true}}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	st := decodeState(t, rec)
	if diff := cmp.Diff(map[string]string{"first": "required"}, st.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(form.Record{"firstName": "", "prefs": map[string]any{"news": true}}, st.Model); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}

	rec = fx.do(t, postJSON("/"+id, `{"firstName": "Bo", "_action": "submit"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected accepted submit, got %d: %s", rec.Code, rec.Body.String())
	}
	if st := decodeState(t, rec); !st.Submitted || len(st.Errors) != 0 {
		t.Fatalf("unexpected state after submit: %+v", st)
	}
}

func TestServer_FieldEndpoint(t *testing.T) {
	fx := newFixture(t)
	id := fx.server.Mount(nil)

	rec := fx.do(t, postJSON("/"+id+"/fields/age", `{"value": 12}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if st := decodeState(t, rec); st.Errors["age"] != "min 18" {
		t.Fatalf("expected age error, got %+v", st.Errors)
	}

	values := url.Values{"value": {"30"}}
	rec = fx.do(t, postForm("/"+id+"/fields/age", values))
	st := decodeState(t, rec)
	if len(st.Errors) != 0 || st.Model["age"] != 30.0 {
		t.Fatalf("expected decoded number and cleared error, got %+v", st)
	}

	if rec := fx.do(t, postJSON("/"+id+"/fields/nope", `{"value": 1}`)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown field, got %d", rec.Code)
	}
	if rec := fx.do(t, postJSON("/"+id+"/fields/account", `{"value": "x"}`)); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for read-only field, got %d", rec.Code)
	}
	if rec := fx.do(t, postJSON("/"+id+"/fields/age", `{}`)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without value, got %d", rec.Code)
	}
}

func TestServer_ServerSideErrorsAreMapped(t *testing.T) {
	fx := newFixture(t, WithSubmitHandler(func(context.Context, form.Record) error {
		return &ValidationError{
			Fields: map[string][]string{
				"/body/contact/email": {"already taken"},
				"__all__":             {"try again later"},
			},
			Form: []string{"quota reached", "try again later"},
		}
	}))
	id := fx.server.Mount(form.Record{"firstName": "Ann", "contact": form.Record{"email": "a@b.c"}})

	rec := fx.do(t, postJSON("/"+id, `{"_action": "submit"}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	st := decodeState(t, rec)
	if diff := cmp.Diff(map[string]string{"email": "already taken"}, st.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"quota reached", "try again later"}, st.FormErrors); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if st.Submitted {
		t.Fatalf("rejected submission marked as submitted")
	}
}

func TestServer_SubmitHandlerFailure(t *testing.T) {
	fx := newFixture(t, WithSubmitHandler(func(context.Context, form.Record) error {
		return errors.New("database down")
	}))
	id := fx.server.Mount(nil)

	rec := fx.do(t, postJSON("/"+id, `{"_action": "submit"}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "database down") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestServer_CSRF(t *testing.T) {
	fx := newFixture(t, WithCSRF("_csrf", func(*http.Request) string { return "tok" }))
	id := fx.server.Mount(nil)

	page := fx.do(t, httptest.NewRequest(http.MethodGet, "/"+id, nil))
	if !strings.Contains(page.Body.String(), `<input type="hidden" name="_csrf" value="tok">`) {
		t.Fatalf("expected csrf input:\n%s", page.Body.String())
	}

	if rec := fx.do(t, postForm("/"+id, url.Values{"firstName": {"x"}})); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", rec.Code)
	}
	if rec := fx.do(t, postForm("/"+id, url.Values{"firstName": {"x"}, "_csrf": {"tok"}})); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with form token, got %d", rec.Code)
	}
	req := postJSON("/"+id, `{"firstName": "y"}`)
	req.Header.Set("X-CSRF-Token", "tok")
	if rec := fx.do(t, req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with header token, got %d", rec.Code)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	fx := newFixture(t)

	if rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/missing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rec := fx.do(t, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	st := decodeState(t, rec)
	if st.Model["firstName"] != "Ann" {
		t.Fatalf("expected seeded model, got %+v", st.Model)
	}

	if rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/"+st.Session+"/state", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected state, got %d", rec.Code)
	}
	if rec := fx.do(t, httptest.NewRequest(http.MethodDelete, "/"+st.Session, nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := fx.server.State(st.Session); ok {
		t.Fatalf("session survived delete")
	}
}

func TestServer_Metrics(t *testing.T) {
	fx := newFixture(t)
	id := fx.server.Mount(nil)
	fx.do(t, postJSON("/"+id, `{"age": 12, "_action": "submit"}`))
	fx.do(t, postJSON("/"+id, `{"age": 20, "firstName": "Ann", "_action": "submit"}`))

	families, err := fx.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					key += "/" + label.GetValue()
				}
			}
			got[key] = metric.GetCounter().GetValue()
		}
	}
	want := map[string]float64{
		"formkit_http_sessions_total":             1,
		"formkit_http_sessions_evicted_total":     0,
		"formkit_http_edits_total/invalid":        1,
		"formkit_http_edits_total/valid":          2,
		"formkit_http_submissions_total/blocked":  1,
		"formkit_http_submissions_total/accepted": 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}

	// A second server for the same form name reuses the registered collectors.
	if _, err := New(fx.server.form, WithName("person"), WithRegisterer(fx.registry)); err != nil {
		t.Fatalf("second server: %v", err)
	}
}

func TestServer_BrowserPostLeavesUntouchedFieldsAlone(t *testing.T) {
	kit := htmlcontrols.MustNew()
	f := kit.Builder().MustCreateForm(form.NewSection("Account",
		form.Field{ID: "name", Type: "text", Value: form.At("name"), Validate: validation.Required()},
		form.Field{ID: "pw", Type: "password", Value: form.At("password"), Validate: validation.Required()},
		form.Field{ID: "news", Type: "checkbox", Value: form.At("news")},
	))
	var submitted []form.Record
	server, err := New(f, WithSubmitHandler(func(_ context.Context, model form.Record) error {
		submitted = append(submitted, model)
		return nil
	}))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	id := server.Mount(form.Record{"name": "Ann", "password": "secret"})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, postForm("/"+id, url.Values{
		"name":     {"Bob"},
		"password": {""},
		"news":     {"false"},
		"_action":  {"submit"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected accepted submit, got %d:\n%s", rec.Code, rec.Body.String())
	}

	st, _ := server.State(id)
	if len(st.Errors) != 0 {
		t.Fatalf("untouched fields were validated: %v", st.Errors)
	}
	if diff := cmp.Diff([]string{"name"}, st.Modified); diff != "" {
		t.Fatalf("modified mismatch (-want +got):\n%s", diff)
	}
	want := form.Record{"name": "Bob", "password": "secret"}
	if diff := cmp.Diff([]form.Record{want}, submitted); diff != "" {
		t.Fatalf("submitted mismatch (-want +got):\n%s", diff)
	}

	// A typed password and a checked box are real edits.
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, postForm("/"+id, url.Values{"password": {"hunter2"}, "news": {"false", "true"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	st, _ = server.State(id)
	if diff := cmp.Diff([]string{"name", "news", "pw"}, st.Modified); diff != "" {
		t.Fatalf("modified mismatch after edits (-want +got):\n%s", diff)
	}
}

func TestServer_FieldEndpointIgnoresHiddenFields(t *testing.T) {
	kit := htmlcontrols.MustNew()
	f := kit.Builder().MustCreateForm(form.NewSection("Billing",
		form.Field{ID: "plan", Type: "text", Value: form.At("plan")},
		form.Field{
			ID:      "vat",
			Type:    "text",
			Value:   form.At("vat"),
			Visible: form.Computed(func(m form.Record) bool { return m["plan"] == "pro" }),
		},
	))
	server, err := New(f)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	id := server.Mount(form.Record{"plan": "free"})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, postJSON("/"+id+"/fields/vat", `{"value": "PT123"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for hidden field, got %d", rec.Code)
	}
	if st, _ := server.State(id); st.Model["vat"] != nil {
		t.Fatalf("hidden field was written: %+v", st.Model)
	}

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, postJSON("/"+id+"/fields/plan", `{"value": "pro"}`))
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, postJSON("/"+id+"/fields/vat", `{"value": "PT123"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 once visible, got %d", rec.Code)
	}
	if st := decodeState(t, rec); st.Model["vat"] != "PT123" {
		t.Fatalf("expected vat to be written, got %+v", st.Model)
	}
}

func TestServer_IdleSessionsExpire(t *testing.T) {
	fx := newFixture(t, WithSessionTTL(time.Minute))
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	fx.server.sessions.now = func() time.Time { return now }

	idle := fx.server.Mount(nil)
	active := fx.server.Mount(nil)

	now = now.Add(40 * time.Second)
	if rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/"+active+"/state", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected active session, got %d", rec.Code)
	}

	now = now.Add(40 * time.Second)
	if rec := fx.do(t, httptest.NewRequest(http.MethodGet, "/"+idle, nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected idle session to be gone, got %d", rec.Code)
	}
	if _, ok := fx.server.State(active); !ok {
		t.Fatalf("recently used session was dropped")
	}
	if got := fx.server.Sessions(); got != 1 {
		t.Fatalf("expected one live session, got %d", got)
	}
	if got := testutil.ToFloat64(fx.server.metrics.evictions); got != 1 {
		t.Fatalf("expected one eviction, got %v", got)
	}
}

func TestServer_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	fx := newFixture(t, WithMaxSessions(2), WithSessionTTL(0))
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	fx.server.sessions.now = func() time.Time { return now }

	first := fx.server.Mount(nil)
	now = now.Add(time.Second)
	second := fx.server.Mount(nil)
	now = now.Add(time.Second)
	if _, ok := fx.server.State(first); !ok {
		t.Fatalf("expected first session")
	}
	now = now.Add(time.Second)
	third := fx.server.Mount(nil)

	if _, ok := fx.server.State(second); ok {
		t.Fatalf("least recently used session survived the cap")
	}
	for _, id := range []string{first, third} {
		if _, ok := fx.server.State(id); !ok {
			t.Fatalf("session %s was evicted", id)
		}
	}
	if got := fx.server.Sessions(); got != 2 {
		t.Fatalf("expected two sessions, got %d", got)
	}
}
