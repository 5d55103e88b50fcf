// Package app assembles the chat service from configuration. Both the HTTP
// server and the terminal client start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/cache"
	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/gateway"
	"github.com/edubull/eeebee/internal/llm"
	"github.com/edubull/eeebee/internal/session"
)

// App holds the long-lived dependencies.
type App struct {
	Config   *config.Config
	Cache    cache.Store
	Gateway  *gateway.Client
	Agent    *agent.Service
	Sessions *session.Manager
	Limiter  *agent.RateLimiter
}

// New wires the cache, school API client, LLM client and router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := cache.Open(ctx, cfg.RedisURL, cfg.ResourceCache)
	if err != nil {
		return nil, fmt.Errorf("open resource cache: %w", err)
	}

	gw := gateway.New(cfg.EdubullBaseURL,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		gateway.WithCache(store),
		gateway.WithLogger(logger),
	)

	model := llm.New(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)

	prompts, err := agent.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	convLog, err := agent.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("conversation logger: %w", err)
	}

	svc := agent.NewService(gw, model, prompts, convLog, agent.ServiceConfig{
		GapFanout:             cfg.GapFanout,
		LearningPathMaxTokens: cfg.LLM.LearningPathMaxTokens,
		ExamMaxTokens:         cfg.LLM.ExamMaxTokens,
	}, logger)

	return &App{
		Config:   cfg,
		Cache:    store,
		Gateway:  gw,
		Agent:    svc,
		Sessions: session.NewManager(),
		Limiter:  agent.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration),
	}, nil
}

// Login authenticates and opens a session with the greeting as its first
// turn.
func (a *App) Login(ctx context.Context, cred domain.Credentials) (*session.Session, string, error) {
	profile, err := a.Gateway.Authenticate(ctx, cred)
	if err != nil {
		return nil, "", err
	}
	sess := a.Sessions.Create(*profile, cred.TopicID)
	greeting, err := a.Agent.Greet(sess)
	if err != nil {
		return sess, "", fmt.Errorf("greeting: %w", err)
	}
	return sess, greeting, nil
}

// Close releases the conversation log and cache.
func (a *App) Close() error {
	logErr := a.Agent.Close()
	cacheErr := a.Cache.Close()
	if logErr != nil {
		return logErr
	}
	return cacheErr
}
