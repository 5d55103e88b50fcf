package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxLoginBodySize = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoginRequest is the login form.
type LoginRequest struct {
	OrgCode  string `json:"org_code" validate:"required"`
	LoginID  string `json:"login_id" validate:"required"`
	Password string `json:"password" validate:"required"`
	TopicID  int    `json:"topic_id" validate:"required,gt=0"`
	Role     string `json:"role" validate:"omitempty,oneof=student teacher"`
	English  bool   `json:"english"`
}

// Credentials converts the form for the auth endpoint.
func (r LoginRequest) Credentials() domain.Credentials {
	return domain.Credentials{
		OrgCode:  r.OrgCode,
		LoginID:  r.LoginID,
		Password: r.Password,
		TopicID:  r.TopicID,
		Role:     domain.ParseRole(r.Role),
		English:  r.English,
	}
}

// AuthHandler handles login, logout and session views.
type AuthHandler struct {
	*Handler
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(base *Handler) *AuthHandler {
	return &AuthHandler{Handler: base}
}

// RegisterPublic registers routes that need no session.
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/api/login", h.Login)
}

// RegisterRoutes registers routes that require a session.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/logout", h.Logout)
	r.Get("/api/me", h.GetMe)
	r.Get("/api/transcript", h.GetTranscript)
}

// Login authenticates against the school API and starts a session whose
// transcript opens with the greeting.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodySize)
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			Error(w, http.StatusBadRequest, "invalid "+verrs[0].Field())
			return
		}
		Error(w, http.StatusBadRequest, "invalid request")
		return
	}

	profile, err := h.auth.Authenticate(r.Context(), req.Credentials())
	if err != nil {
		status := agent.StatusFor(err)
		slog.Warn("Login failed", "org_code", req.OrgCode, "login_id", req.LoginID, "status", status, "error", err)
		Error(w, status, err.Error())
		return
	}

	sess := h.sessions.Create(*profile, req.TopicID)
	greeting, err := h.agent.Greet(sess)
	if err != nil {
		slog.Warn("Failed to render greeting", "session_id", sess.ID, "error", err)
	}

	identity.SetCookie(w, sess.ID, h.sessionTTL(), h.isDevelopment())
	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sess.ID,
		"user":          meView(sess),
		"greeting":      greeting,
		"quick_prompts": h.agent.QuickPrompts(profile.Identity.Role),
	})
}

// Logout ends the session. A session that is still routing an input cannot
// be logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}
	if !sess.TryAcquire() {
		Error(w, http.StatusConflict, "still working on your previous message")
		return
	}
	h.sessions.Delete(sess.ID)
	sess.Release()
	h.onEnd(sess.ID)

	identity.ClearCookie(w, h.isDevelopment())
	JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// GetMe returns the session's identity and curriculum context.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}
	JSON(w, http.StatusOK, meView(sess))
}

// GetTranscript returns every turn of the session in order.
func (h *AuthHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		Error(w, http.StatusUnauthorized, "not logged in")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"turns": sess.Transcript()})
}

func meView(sess *session.Session) map[string]interface{} {
	id := sess.Identity()
	return map[string]interface{}{
		"session_id":    sess.ID,
		"user_id":       id.UserID,
		"name":          id.Name,
		"role":          id.Role.String(),
		"topic_id":      sess.Topic,
		"topic_name":    id.TopicName,
		"branch_name":   id.BranchName,
		"english":       id.English,
		"batches":       nonNil(sess.Profile.Batches),
		"concepts":      nonNil(sess.Profile.Concepts),
		"weak_concepts": nonNil(sess.Profile.WeakConcepts),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
