// Package api provides HTTP handlers for the EeeBee API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/session"
)

// Authenticator verifies login credentials against the school API.
type Authenticator interface {
	Authenticate(ctx context.Context, cred domain.Credentials) (*domain.Profile, error)
}

// Handler provides common handler dependencies.
type Handler struct {
	sessions *session.Manager
	agent    *agent.Service
	auth     Authenticator
	cfg      *config.Config
	// onEnd runs after a session is logged out, e.g. to close its socket.
	onEnd func(sessionID string)
}

// NewHandler creates a Handler. cfg and onEnd may be nil.
func NewHandler(sessions *session.Manager, svc *agent.Service, auth Authenticator, cfg *config.Config, onEnd func(sessionID string)) *Handler {
	if onEnd == nil {
		onEnd = func(string) {}
	}
	return &Handler{
		sessions: sessions,
		agent:    svc,
		auth:     auth,
		cfg:      cfg,
		onEnd:    onEnd,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func (h *Handler) isDevelopment() bool {
	return h.cfg == nil || h.cfg.IsDevelopment()
}

func (h *Handler) sessionTTL() time.Duration {
	if h.cfg == nil || h.cfg.SessionTTL <= 0 {
		return 60 * time.Minute
	}
	return h.cfg.SessionTTL
}
