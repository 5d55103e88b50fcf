//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/session"
	"github.com/go-chi/chi/v5"
)

type fakeAuth struct {
	profile *domain.Profile
	err     error
	got     domain.Credentials
}

func (f *fakeAuth) Authenticate(_ context.Context, cred domain.Credentials) (*domain.Profile, error) {
	f.got = cred
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

type testAPI struct {
	srv      http.Handler
	sessions *session.Manager
	mu       sync.Mutex
	ended    []string
}

func newTestAPI(auth Authenticator) *testAPI {
	t := &testAPI{sessions: session.NewManager()}
	svc := agent.NewService(nil, nil, nil, nil, agent.ServiceConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	base := NewHandler(t.sessions, svc, auth, nil, func(id string) {
		t.mu.Lock()
		t.ended = append(t.ended, id)
		t.mu.Unlock()
	})

	r := chi.NewRouter()
	r.Use(identity.Middleware(t.sessions))
	NewHealthHandler(t.sessions, nil).RegisterHealth(r)
	authH := NewAuthHandler(base)
	authH.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireSession)
		authH.RegisterRoutes(r)
		NewReportHandler(base).RegisterRoutes(r)
	})
	t.srv = r
	return t
}

func (t *testAPI) do(method, path, body, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	t.srv.ServeHTTP(rec, req)
	return rec
}

func studentProfile() *domain.Profile {
	return &domain.Profile{
		Identity: domain.Identity{UserID: 9, Name: "Ravi", OrgCode: "ORG", Role: domain.RoleStudent, TopicName: "Decimals"},
		Concepts: []domain.Concept{{ConceptID: 1, ConceptText: "Place value"}},
	}
}

const validLogin = `{"org_code":"ORG","login_id":"ravi","password":"pw","topic_id":12,"role":"student"}`

func login(t *testing.T, api *testAPI) string {
	t.Helper()
	rec := api.do(http.MethodPost, "/api/login", validLogin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return body.SessionID
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestLoginStartsSessionWithGreeting(t *testing.T) {
	auth := &fakeAuth{profile: studentProfile()}
	api := newTestAPI(auth)

	rec := api.do(http.MethodPost, "/api/login", validLogin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		SessionID    string   `json:"session_id"`
		Greeting     string   `json:"greeting"`
		QuickPrompts []string `json:"quick_prompts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(body.Greeting, "Hello Ravi!") || len(body.QuickPrompts) == 0 {
		t.Fatalf("unexpected body: %+v", body)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.SessionID || !cookie.HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookie)
	}

	sess := api.sessions.Get(body.SessionID)
	if sess == nil || sess.Topic != 12 {
		t.Fatalf("session not registered: %+v", sess)
	}
	if turns := sess.Transcript(); len(turns) != 1 || turns[0].Speaker != session.SpeakerAssistant {
		t.Fatalf("expected greeting turn, got %+v", turns)
	}
	if auth.got.TopicID != 12 || auth.got.Role != domain.RoleStudent || auth.got.LoginID != "ravi" {
		t.Fatalf("unexpected credentials: %+v", auth.got)
	}
}

func TestLoginValidation(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing password", `{"org_code":"ORG","login_id":"ravi","topic_id":12}`, "invalid Password"},
		{"bad role", `{"org_code":"ORG","login_id":"ravi","password":"pw","topic_id":12,"role":"admin"}`, "invalid Role"},
		{"no topic", `{"org_code":"ORG","login_id":"ravi","password":"pw"}`, "invalid TopicID"},
		{"not json", `{`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/login", tt.body, "")
			if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("got %d %s, want 400 %q", rec.Code, rec.Body.String(), tt.want)
			}
		})
	}
	if api.sessions.Count() != 0 {
		t.Fatal("no session should be created")
	}
}

func TestLoginUpstreamErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: invalid credentials", gateway.ErrAuthentication), http.StatusUnauthorized},
		{&gateway.RemoteError{Op: "auth", StatusCode: 503}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		api := newTestAPI(&fakeAuth{err: tt.err})
		rec := api.do(http.MethodPost, "/api/login", validLogin, "")
		if rec.Code != tt.want {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
		if api.sessions.Count() != 0 {
			t.Fatal("no session should be created")
		}
	}
}

func TestLogoutEndsSession(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})
	sid := login(t, api)

	if rec := api.do(http.MethodGet, "/api/me", "", sid); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Ravi"`) {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	rec := api.do(http.MethodPost, "/api/logout", "", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if len(api.ended) != 1 || api.ended[0] != sid {
		t.Fatalf("expected end callback for %s, got %v", sid, api.ended)
	}
	if rec := api.do(http.MethodGet, "/api/me", "", sid); rec.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", rec.Code)
	}
}

func TestLogoutWhileBusy(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})
	sid := login(t, api)
	sess := api.sessions.Get(sid)

	if !sess.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	defer sess.Release()

	if rec := api.do(http.MethodPost, "/api/logout", "", sid); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if api.sessions.Get(sid) == nil {
		t.Fatal("busy session must survive")
	}
}

func TestTranscript(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})
	sid := login(t, api)
	api.sessions.Get(sid).AppendTurn(session.SpeakerUser, "show concepts")

	rec := api.do(http.MethodGet, "/api/transcript", "", sid)
	var body struct {
		Turns []session.Turn `json:"turns"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Turns) != 2 || body.Turns[1].Text != "show concepts" {
		t.Fatalf("unexpected turns: %+v", body.Turns)
	}
}

func TestReportPDF(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})
	sid := login(t, api)

	if rec := api.do(http.MethodGet, "/api/report.pdf", "", sid); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before generation, got %d", rec.Code)
	}

	api.sessions.Get(sid).SetReport(session.Report{
		Kind:        session.ReportLearningPath,
		ConceptText: "Place value",
		Text:        "Introduction\nDigits have positions.",
		UserName:    "Ravi",
		GeneratedAt: time.Now(),
	})
	rec := api.do(http.MethodGet, "/api/report.pdf", "", sid)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Ravi_Learning_Path_Place value.pdf") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Fatal("body is not a PDF")
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})
	login(t, api)

	rec := api.do(http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":1`) {
		t.Fatalf("unexpected health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	api := newTestAPI(&fakeAuth{profile: studentProfile()})

	for _, path := range []string{"/api/me", "/api/transcript", "/api/report.pdf"} {
		if rec := api.do(http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
	if rec := api.do(http.MethodGet, "/api/me", "", "not-a-uuid"); rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage cookie: expected 401, got %d", rec.Code)
	}
}
