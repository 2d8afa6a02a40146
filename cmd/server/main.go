package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"cadence/internal/agent"
	"cadence/internal/config"
	"cadence/internal/handler"
	"cadence/internal/llm/anthropic"
	"cadence/internal/middleware"
	"cadence/internal/repository/postgres"
	"cadence/internal/service"
	"cadence/internal/tools"
	"cadence/internal/ws"
)

const maxConcurrentMessages = 8

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"model", cfg.Model,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Apply schema migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Logger: logger,
	}
	sessionRepo := postgres.NewSessionRepository(repoConfig)
	turnRepo := postgres.NewTurnRepository(repoConfig)
	sequenceRepo := postgres.NewSequenceRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// LLM provider
	provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey, cfg.Model, logger)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}

	// Tool registry
	registry := tools.NewRegistry(logger)
	registry.Register(tools.ToolGenerateSequence, tools.NewGenerateExecutor(logger))
	registry.Register(tools.ToolUpdateSequence, tools.NewUpdateExecutor(sequenceRepo, logger))
	registry.Register(tools.ToolResearchIndustry, tools.NewResearchExecutor(logger))

	// Realtime hub and sequence broadcaster
	hub := ws.NewHub(logger)
	broadcaster := ws.NewBroadcaster(hub, sequenceRepo, ws.DefaultRetryPolicy(), logger)

	// Orchestration
	orchestrator := agent.New(provider, registry, sessionRepo, turnRepo, hub, broadcaster, logger)
	dispatcher := agent.NewDispatcher(orchestrator, maxConcurrentMessages, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Services
	sessionService := service.NewSessionService(sessionRepo, sequenceRepo, txManager, logger)

	// Handlers
	chatHandler := handler.NewChatHandler(dispatcher, turnRepo, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	sequenceHandler := handler.NewSequenceHandler(sequenceRepo, broadcaster, logger)
	wsHandler := ws.NewHandler(hub, sequenceRepo, dispatcher, cfg.AllowedOrigin, cfg.Environment == "dev", logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)

	mux.HandleFunc("POST /api/chat", chatHandler.SendMessage)
	mux.HandleFunc("GET /api/chat/{session_id}", chatHandler.GetHistory)

	mux.HandleFunc("POST /api/sessions", sessionHandler.CreateSession)
	mux.HandleFunc("GET /api/sessions", sessionHandler.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", sessionHandler.GetSession)
	mux.HandleFunc("PUT /api/sessions/{id}", sessionHandler.RenameSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessionHandler.DeleteSession)

	mux.HandleFunc("GET /api/sequences", sequenceHandler.ListSequences)
	mux.HandleFunc("POST /api/sequences/reset", sequenceHandler.ResetSequence)
	mux.HandleFunc("GET /api/sequences/{session_id}", sequenceHandler.GetSequence)

	mux.Handle("GET /ws", wsHandler)

	// Build middleware chain
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived websocket connections
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
