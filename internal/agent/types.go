// Package agent implements the EeeBee command router and its chat surfaces.
package agent

import (
	"context"
	"errors"
)

// ChatRequest is a chat input from a client.
type ChatRequest struct {
	Message string `json:"message"`
}

// RouteKind tells a client how a reply was produced.
type RouteKind string

const (
	// RouteListing is a numbered listing that replaced the active scope.
	RouteListing RouteKind = "listing"
	// RouteSelection is a detail view for a selected entity.
	RouteSelection RouteKind = "selection"
	// RouteLLM is a streamed model reply.
	RouteLLM RouteKind = "llm"
	// RouteError is a single error turn.
	RouteError RouteKind = "error"
)

// Reply is the committed assistant turn for one input.
type Reply struct {
	Kind  RouteKind `json:"kind"`
	Text  string    `json:"text"`
	Error bool      `json:"error,omitempty"`
}

// Emit receives streamed deltas before the reply is committed.
type Emit func(delta string)

var (
	// ErrNotAvailable is returned for a feature the session's role or mode lacks.
	ErrNotAvailable = errors.New("not available for this session")
	// ErrUnknownConcept is returned when a concept id is not in the session.
	ErrUnknownConcept = errors.New("unknown concept")
	// ErrNoClassSelected is returned when a teacher action needs a pinned class.
	ErrNoClassSelected = errors.New("no class selected")
	// ErrInvalidBloomLevel is returned for a level outside BloomLevels.
	ErrInvalidBloomLevel = errors.New("invalid bloom level")
)

type channelKey struct{}

// WithChannel tags ctx with the surface an input arrived on ("chat_http",
// "chat_ws", "cli"). It is recorded in the conversation log.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey{}, channel)
}

func channelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(channelKey{}).(string); ok {
		return v
	}
	return "chat"
}
