// EeeBee - tutoring assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edubull/eeebee/internal/agent"
	"github.com/edubull/eeebee/internal/api"
	"github.com/edubull/eeebee/internal/app"
	"github.com/edubull/eeebee/internal/config"
	"github.com/edubull/eeebee/internal/identity"
	"github.com/edubull/eeebee/internal/livechat"
	"github.com/edubull/eeebee/internal/metrics"
	"github.com/edubull/eeebee/internal/middleware"
	"github.com/edubull/eeebee/internal/session"
	"github.com/edubull/eeebee/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close services", "error", closeErr)
		}
	}()
	slog.Info("Services initialized", "redis", cfg.RedisURL != "", "model", cfg.LLM.Model)

	conns := livechat.NewConnManager()
	endSession := func(sessionID string) {
		conns.CloseSession(sessionID)
		a.Limiter.Forget(sessionID)
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(a.Sessions, a.Agent, a.Gateway, cfg, endSession)
	authHandler := api.NewAuthHandler(baseHandler)
	reportHandler := api.NewReportHandler(baseHandler)
	healthHandler := api.NewHealthHandler(a.Sessions, cfg)
	agentHandler := agent.NewHandler(a.Agent, a.Limiter, cfg)
	wsHandler := livechat.NewHandler(a.Agent, a.Limiter, conns, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware(a.Sessions))

	// Public routes.
	healthHandler.RegisterHealth(r)
	authHandler.RegisterPublic(r)
	r.Handle("/metrics", metrics.Handler())

	// Session routes.
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireSession)
		authHandler.RegisterRoutes(r)
		reportHandler.RegisterRoutes(r)
		agentHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Serve the embedded chat page.
	r.Handle("/*", web.ChatPage())

	// SSE replies can outlive any write deadline, so WriteTimeout stays 0.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	session.StartTTLWorker(ctx, a.Sessions, cfg.SessionTTL, endSession)
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
