package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/session"
	"github.com/go-chi/chi/v5"
)

func newTestRouter(h *Handler, sess *session.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if sess != nil {
				req = req.WithContext(identity.WithSession(req.Context(), sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHandleChatStreamsDeltasAndReply(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{deltas: []string{"Hello", " there"}})
	sess := studentSession(nil, nil)
	srv := newTestRouter(NewHandler(svc, nil, nil), sess)

	rec := postJSON(t, srv, "/api/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if strings.Count(body, "event: delta\n") != 2 {
		t.Fatalf("expected 2 delta events: %s", body)
	}
	if !strings.Contains(body, `event: reply`+"\n"+`data: {"kind":"llm","text":"Hello there"}`) {
		t.Fatalf("missing reply event: %s", body)
	}
}

func TestHandleChatErrorEvent(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{err: errors.New("down")})
	srv := newTestRouter(NewHandler(svc, nil, nil), studentSession(nil, nil))

	rec := postJSON(t, srv, "/api/chat", `{"message":"hi"}`)
	if !strings.Contains(rec.Body.String(), "event: error\n") {
		t.Fatalf("expected error event: %s", rec.Body.String())
	}
}

func TestHandleChatRejections(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{})

	if rec := postJSON(t, newTestRouter(NewHandler(svc, nil, nil), nil), "/api/chat", `{"message":"hi"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no session: expected 401, got %d", rec.Code)
	}

	sess := studentSession(nil, nil)
	srv := newTestRouter(NewHandler(svc, nil, nil), sess)
	if rec := postJSON(t, srv, "/api/chat", `{"message":"   "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank message: expected 400, got %d", rec.Code)
	}
	if rec := postJSON(t, srv, "/api/chat", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: expected 400, got %d", rec.Code)
	}

	if !sess.TryAcquire() {
		t.Fatal("TryAcquire failed")
	}
	rec := postJSON(t, srv, "/api/chat", `{"message":"hi"}`)
	sess.Release()
	if rec.Code != http.StatusConflict {
		t.Fatalf("busy session: expected 409, got %d", rec.Code)
	}
	if len(sess.Transcript()) != 0 {
		t.Fatal("rejected input must not touch the transcript")
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{deltas: []string{"ok"}})
	srv := newTestRouter(NewHandler(svc, NewRateLimiter(1, time.Hour), nil), studentSession(nil, nil))

	if rec := postJSON(t, srv, "/api/chat", `{"message":"one"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := postJSON(t, srv, "/api/chat", `{"message":"two"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestHandleLearningPathValidation(t *testing.T) {
	t.Parallel()

	model := &fakeLLM{completion: "plan"}
	svc := newTestService(&fakeGateway{}, model)
	sess := studentSession([]domain.Concept{{ConceptID: 5, ConceptText: "Area"}}, nil)
	srv := newTestRouter(NewHandler(svc, nil, nil), sess)

	if rec := postJSON(t, srv, "/api/learning-path", `{"concept_id":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := postJSON(t, srv, "/api/learning-path", `{"concept_id":6}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec := postJSON(t, srv, "/api/learning-path", `{"concept_id":5}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"text":"plan"`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleExamQuestionsBloomLevel(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{})
	srv := newTestRouter(NewHandler(svc, nil, nil), teacherSession())

	rec := postJSON(t, srv, "/api/exam-questions", `{"concept_id":11,"bloom_level":"L9"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown level, got %d", rec.Code)
	}
	rec = postJSON(t, srv, "/api/exam-questions", `{"concept_id":11,"bloom_level":"L4"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), ErrNoClassSelected.Error()) {
		t.Fatalf("expected no-class error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleBaseline(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{baseline: sampleBaseline()}
	svc := newTestService(gw, &fakeLLM{})

	get := func(sess *session.Session) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/baseline", nil)
		rec := httptest.NewRecorder()
		newTestRouter(NewHandler(svc, nil, nil), sess).ServeHTTP(rec, req)
		return rec
	}

	rec := get(studentSession(nil, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"FullName":"Ravi"`) || !strings.Contains(rec.Body.String(), `"cached":false`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if rec := get(teacherSession()); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a teacher, got %d", rec.Code)
	}
	if rec := get(nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}
}

func TestHandleQuickPrompts(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeGateway{}, &fakeLLM{})
	srv := newTestRouter(NewHandler(svc, nil, nil), studentSession(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/quick-prompts", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "my gaps") {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{ErrNotAvailable, http.StatusForbidden},
		{fmt.Errorf("wrap: %w", ErrUnknownConcept), http.StatusNotFound},
		{ErrNoClassSelected, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", ErrInvalidBloomLevel, "L9"), http.StatusBadRequest},
		{gateway.ErrAuthentication, http.StatusUnauthorized},
		{&gateway.RemoteError{Op: "class detail", StatusCode: 500, Err: errors.New("x")}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRateLimiterForget(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, time.Hour)
	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("expected one request per window")
	}
	rl.Forget("a")
	if rl.Len() != 0 || !rl.Allow("a") {
		t.Fatal("Forget must reset the bucket")
	}
}
