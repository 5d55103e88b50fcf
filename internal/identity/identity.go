// Package identity binds HTTP requests to authenticated chat sessions.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/edubull/eeebee/internal/session"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "eeebee_session"
	SessionHeaderName = "X-EeeBee-Session"
)

type contextKey int

const sessionKey contextKey = iota

// SessionFromContext returns the session attached by Middleware, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// sessionIDFromRequest reads the header first so non-browser clients can
// skip cookies. Anything that is not a UUID is ignored.
func sessionIDFromRequest(r *http.Request) string {
	sid := strings.TrimSpace(r.Header.Get(SessionHeaderName))
	if sid == "" {
		if c, err := r.Cookie(SessionCookieName); err == nil {
			sid = c.Value
		}
	}
	if _, err := uuid.Parse(sid); err != nil {
		return ""
	}
	return sid
}

// Middleware attaches the caller's live session, if any, and marks it active.
func Middleware(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sid := sessionIDFromRequest(r); sid != "" {
				if s := mgr.Get(sid); s != nil && !s.Closed() {
					s.Touch()
					r = r.WithContext(WithSession(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a live session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"not logged in"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetCookie issues the session cookie.
func SetCookie(w http.ResponseWriter, sessionID string, ttl time.Duration, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
