package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/pulseplan-ai/pulseplan/internal/api"
	"github.com/pulseplan-ai/pulseplan/internal/chat"
	"github.com/pulseplan-ai/pulseplan/internal/config"
	"github.com/pulseplan-ai/pulseplan/internal/identity"
	"github.com/pulseplan-ai/pulseplan/internal/llm"
	"github.com/pulseplan-ai/pulseplan/internal/memory"
	"github.com/pulseplan-ai/pulseplan/internal/middleware"
	"github.com/pulseplan-ai/pulseplan/internal/plan"
	"github.com/pulseplan-ai/pulseplan/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the PulsePlan API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	keywords, err := config.LoadKeywords(cfg.KeywordsPath)
	if err != nil {
		return fmt.Errorf("load keyword configuration: %w", err)
	}

	client, err := llm.New(cfg.LLM, slog.Default())
	if err != nil {
		return fmt.Errorf("initialize model client: %w", err)
	}
	slog.Info("Model client ready", "provider", cfg.LLM.Provider, "chat_model", cfg.LLM.ChatModel)

	// Initialize services.
	mem := memory.NewManager(repo, client, memory.Options{
		SummaryModel:       cfg.LLM.SummaryModel,
		SummaryTemperature: cfg.LLM.SummaryTemperature,
		Keywords:           keywords.Extractor,
	}, slog.Default())

	plans := plan.NewService(repo, slog.Default())
	generator := plan.NewGenerator(repo, client, plan.GeneratorConfig{
		Model:       cfg.LLM.PlanModel,
		Temperature: 0.7,
		Timeout:     cfg.LLM.PlanTimeout,
	}, slog.Default())

	audit, err := chat.NewAuditLogger(chat.AuditConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("initialize conversation audit log: %w", err)
	}
	defer audit.Close()

	chatSvc := chat.NewService(repo, mem, plans, client, keywords.Detector, chat.Config{
		Model:         cfg.LLM.ChatModel,
		Temperature:   cfg.LLM.ChatTemperature,
		Timeout:       cfg.LLM.ChatTimeout,
		MaxMessageLen: cfg.MaxMessageLen,
	}, audit, slog.Default())

	// Initialize handlers.
	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	baseHandler := api.NewHandler(repo, chatSvc, plans, generator)
	healthHandler := api.NewHealthHandler(repo)
	chatHandler := api.NewChatHandler(baseHandler, limiter, cfg.MaxMessageLen)
	planHandler := api.NewPlanHandler(baseHandler)
	profileHandler := api.NewProfileHandler(baseHandler)
	wsHandler := api.NewWSHandler(chatSvc, limiter, cfg.AllowedOrigins, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Identified routes. The caller's numeric id arrives as a header from
	// the outer application; the middleware provisions unknown users on
	// first sight.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo))
		chatHandler.RegisterRoutes(r)
		planHandler.RegisterRoutes(r)
		profileHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Create server.
	// Note: WebSocket sessions hold the connection open (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,                 // 0 = no timeout for WebSocket support
		IdleTimeout:  120 * time.Second, // 2 minutes for idle connections
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}
