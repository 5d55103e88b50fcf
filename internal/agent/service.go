package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/session"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ServiceConfig tunes the service.
type ServiceConfig struct {
	GapFanout             int
	LearningPathMaxTokens int
	ExamMaxTokens         int
}

// Service routes chat input and runs the generation features for sessions.
type Service struct {
	gateway Gateway
	llm     LLM
	prompts *Prompts
	log     ConversationLogger
	cfg     ServiceConfig
	logger  *slog.Logger
}

// NewService wires the router. prompts and convLog may be nil.
func NewService(gw Gateway, model LLM, prompts *Prompts, convLog ConversationLogger, cfg ServiceConfig, logger *slog.Logger) *Service {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if convLog == nil {
		convLog = noopConversationLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GapFanout <= 0 {
		cfg.GapFanout = 10
	}
	if cfg.LearningPathMaxTokens <= 0 {
		cfg.LearningPathMaxTokens = 1500
	}
	if cfg.ExamMaxTokens <= 0 {
		cfg.ExamMaxTokens = 4000
	}
	return &Service{
		gateway: gw,
		llm:     model,
		prompts: prompts,
		log:     convLog,
		cfg:     cfg,
		logger:  logger,
	}
}

// Greet appends the role-specific greeting as the first assistant turn.
func (s *Service) Greet(sess *session.Session) (string, error) {
	text, err := s.prompts.Greeting(&sess.Profile)
	if err != nil {
		return "", err
	}
	sess.AppendTurn(session.SpeakerAssistant, text)
	return text, nil
}

// QuickPrompts returns the canned phrases for a role.
func (s *Service) QuickPrompts(role domain.Role) []string {
	return s.prompts.QuickPrompts(role)
}

// Close flushes the conversation log.
func (s *Service) Close() error {
	return s.log.Close()
}

func (s *Service) logEvent(ctx context.Context, sess *session.Session, direction, eventType, content string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	if reqID := chiMiddleware.GetReqID(ctx); reqID != "" {
		meta["request_id"] = reqID
	}
	meta["role"] = sess.Identity().Role.String()
	meta["topic_id"] = sess.Topic

	s.log.Log(ConversationLogEvent{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		UserID:     sess.Identity().Key(),
		SessionID:  sess.ID,
		Channel:    channelFromContext(ctx),
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    cleanForReadability(content),
		Meta:       meta,
	})
}
