package api

import (
	"net/http"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/session"
	"github.com/go-chi/chi/v5"
)

// HealthHandler handles health and frontend config endpoints.
type HealthHandler struct {
	sessions *session.Manager
	cfg      *config.Config
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(sessions *session.Manager, cfg *config.Config) *HealthHandler {
	return &HealthHandler{sessions: sessions, cfg: cfg}
}

// Health reports liveness and the number of live sessions.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"checks":   map[string]string{"api": "ok"},
		"sessions": h.sessions.Count(),
	})
}

// GetConfig returns the settings the frontend needs before login.
func (h *HealthHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ttl := 0
	if h.cfg != nil {
		ttl = int(h.cfg.SessionTTL.Seconds())
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"bloom_levels":        agent.BloomLevels,
		"default_bloom_level": agent.DefaultBloomLevel,
		"session_ttl":         ttl,
		"roles":               []string{"student", "teacher"},
	})
}

// RegisterHealth registers the public routes.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Get("/api/config", h.GetConfig)
}
