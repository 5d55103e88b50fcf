package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

const defaultKeepaliveInterval = 10 * time.Second

var validate = validator.New(validator.WithRequiredStructEnabled())

// LearningPathRequest asks for a study plan for one of the student's concepts.
type LearningPathRequest struct {
	ConceptID int `json:"concept_id" validate:"required,gt=0"`
}

// ExamRequest asks for exam questions on a concept of the pinned class.
type ExamRequest struct {
	ConceptID  int    `json:"concept_id" validate:"required,gt=0"`
	BloomLevel string `json:"bloom_level" validate:"omitempty,oneof=L1 L2 L3 L4 L5"`
}

// Handler serves the chat and generation endpoints for a logged-in session.
type Handler struct {
	agent       *Service
	rateLimiter *RateLimiter
	keepalive   time.Duration
	maxBodySize int64
}

// NewHandler creates a handler. cfg may be nil for defaults.
func NewHandler(svc *Service, limiter *RateLimiter, cfg *config.Config) *Handler {
	h := &Handler{
		agent:       svc,
		rateLimiter: limiter,
		keepalive:   defaultKeepaliveInterval,
		maxBodySize: defaultMaxRequestBodySize,
	}
	if cfg != nil {
		if cfg.SSE.KeepaliveInterval > 0 {
			h.keepalive = cfg.SSE.KeepaliveInterval
		}
		if cfg.SSE.MaxRequestBodySize > 0 {
			h.maxBodySize = cfg.SSE.MaxRequestBodySize
		}
	}
	if h.rateLimiter == nil {
		h.rateLimiter = NewRateLimiter(20, time.Minute)
	}
	return h
}

// RegisterRoutes registers chat routes. The router must already require a session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	r.Get("/api/quick-prompts", h.HandleQuickPrompts)
	r.Get("/api/gaps", h.HandleGaps)
	r.Post("/api/learning-path", h.HandleLearningPath)
	r.Post("/api/exam-questions", h.HandleExamQuestions)
	r.Get("/api/baseline", h.HandleBaseline)
}

// HandleChat handles POST /api/chat. The reply is streamed as SSE: zero or
// more "delta" events, then one "reply" or "error" event with the committed turn.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}

	if !h.rateLimiter.Allow(sess.ID) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req ChatRequest
	if status, err := h.decode(w, r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if !sess.TryAcquire() {
		writeError(w, http.StatusConflict, "still working on your previous message")
		return
	}
	defer sess.Release()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	slog.Info("Chat request",
		"session_id", sess.ID,
		"user_id", sess.Identity().UserID,
		"message_length", len(req.Message),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	broken := false
	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			slog.Warn("failed to marshal SSE payload", "event", event, "error", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if broken {
			return
		}
		if err := writeSSE(w, event, string(data)); err != nil {
			slog.Warn("failed to write SSE event", "event", event, "error", err)
			broken = true
			return
		}
		flusher.Flush()
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.keepalive)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-r.Context().Done():
				return
			case <-ticker.C:
				send("ping", map[string]string{"status": "alive"})
			}
		}
	}()

	ctx := WithChannel(r.Context(), "chat_http")
	reply := h.agent.Route(ctx, sess, req.Message, func(delta string) {
		send("delta", map[string]string{"delta": delta})
	})

	close(stop)
	wg.Wait()

	if reply.Error {
		send("error", reply)
		return
	}
	send("reply", reply)
}

// HandleQuickPrompts handles GET /api/quick-prompts.
func (h *Handler) HandleQuickPrompts(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompts": h.agent.QuickPrompts(sess.Identity().Role)})
}

// HandleGaps handles GET /api/gaps.
func (h *Handler) HandleGaps(w http.ResponseWriter, r *http.Request) {
	h.exclusive(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		rows, err := h.agent.AnalyzeGaps(ctx, sess)
		if err != nil {
			return nil, err
		}
		return map[string]any{"gaps": rows}, nil
	})
}

// HandleLearningPath handles POST /api/learning-path.
func (h *Handler) HandleLearningPath(w http.ResponseWriter, r *http.Request) {
	var req LearningPathRequest
	if status, err := h.decode(w, r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	h.exclusive(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		return h.agent.LearningPath(ctx, sess, req.ConceptID)
	})
}

// HandleExamQuestions handles POST /api/exam-questions.
func (h *Handler) HandleExamQuestions(w http.ResponseWriter, r *http.Request) {
	var req ExamRequest
	if status, err := h.decode(w, r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	h.exclusive(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		return h.agent.ExamQuestions(ctx, sess, req.ConceptID, req.BloomLevel)
	})
}

// HandleBaseline handles GET /api/baseline.
func (h *Handler) HandleBaseline(w http.ResponseWriter, r *http.Request) {
	h.exclusive(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		return h.agent.Baseline(ctx, sess)
	})
}

// exclusive runs fn while holding the session, the same as a chat input.
func (h *Handler) exclusive(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) (any, error)) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if !sess.TryAcquire() {
		writeError(w, http.StatusConflict, "still working on your previous message")
		return
	}
	defer sess.Release()

	out, err := fn(WithChannel(r.Context(), "api"), sess)
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Request failed", "path", r.URL.Path, "session_id", sess.ID, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads a size-limited JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, errors.New("request body too large")
		}
		return http.StatusBadRequest, errors.New("invalid request body")
	}
	if err := validate.Struct(v); err != nil {
		return http.StatusBadRequest, fmt.Errorf("invalid request: %w", err)
	}
	return 0, nil
}

// StatusFor maps service and gateway errors to HTTP status codes.
func StatusFor(err error) int {
	var remote *gateway.RemoteError
	switch {
	case errors.Is(err, ErrNotAvailable):
		return http.StatusForbidden
	case errors.Is(err, ErrUnknownConcept):
		return http.StatusNotFound
	case errors.Is(err, ErrNoClassSelected), errors.Is(err, ErrInvalidBloomLevel):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.As(err, &remote):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
