package livechat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/session"
)

// Router is the part of the agent service a socket drives.
type Router interface {
	Route(ctx context.Context, sess *session.Session, raw string, emit agent.Emit) agent.Reply
}

// Limiter throttles inputs per session.
type Limiter interface {
	Allow(key string) bool
}

// Message is one frame in either direction.
//
// Client frames: {"type":"message","content":...} and {"type":"ping"}.
// Server frames: "delta", "reply", "error" and "pong".
type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content,omitempty"`
	Kind    agent.RouteKind `json:"kind,omitempty"`
}

// Handler upgrades logged-in requests to a chat socket.
type Handler struct {
	router        Router
	limiter       Limiter
	conns         *ConnManager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a socket handler. limiter may be nil.
func NewHandler(router Router, limiter Limiter, conns *ConnManager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		router:        router,
		limiter:       limiter,
		conns:         conns,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := identity.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"not logged in"}`, http.StatusUnauthorized)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sess.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sess.ID)
		}
	}()

	h.conns.Register(sess.ID, ws)
	defer h.conns.Unregister(sess.ID, ws)

	ctx := agent.WithChannel(r.Context(), "chat_ws")
	h.readLoop(ctx, ws, sess)
	slog.Info("Chat socket ended", "session_id", sess.ID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sess *session.Session) {
	for {
		var msg Message
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session_id", sess.ID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sess.ID)
			}
			return
		}

		var err error
		switch msg.Type {
		case "ping":
			err = h.write(ctx, ws, Message{Type: "pong"})
		case "message":
			err = h.handleMessage(ctx, ws, sess, msg.Content)
		default:
			err = h.write(ctx, ws, Message{Type: "error", Content: "unknown message type"})
		}
		if err != nil {
			slog.Debug("Failed to write chat frame", "error", err, "session_id", sess.ID)
			return
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, ws *websocket.Conn, sess *session.Session, content string) error {
	if strings.TrimSpace(content) == "" {
		return h.write(ctx, ws, Message{Type: "error", Content: "message is required"})
	}
	if h.limiter != nil && !h.limiter.Allow(sess.ID) {
		return h.write(ctx, ws, Message{Type: "error", Content: "rate limit exceeded"})
	}
	if !sess.TryAcquire() {
		return h.write(ctx, ws, Message{Type: "error", Content: "still working on your previous message"})
	}
	defer sess.Release()
	sess.Touch()

	var writeErr error
	reply := h.router.Route(ctx, sess, content, func(delta string) {
		if writeErr == nil {
			writeErr = h.write(ctx, ws, Message{Type: "delta", Content: delta})
		}
	})
	if writeErr != nil {
		return writeErr
	}

	out := Message{Type: "reply", Content: reply.Text, Kind: reply.Kind}
	if reply.Error {
		out.Type = "error"
	}
	return h.write(ctx, ws, out)
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg Message) error {
	return wsjson.Write(ctx, ws, msg)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
