// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/skald/internal/agentauth"
	"github.com/halvard/skald/internal/api"
	"github.com/halvard/skald/internal/edit"
	"github.com/halvard/skald/internal/genai"
	"github.com/halvard/skald/internal/mcpserver"
	"github.com/halvard/skald/internal/noteservice"
	"github.com/halvard/skald/internal/prompts"
	"github.com/halvard/skald/internal/sse"
	"github.com/halvard/skald/internal/store"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("ai_base_url", cfg.AI.BaseURL),
		slog.String("ai_model", cfg.AI.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Prompt library, optionally overridden from disk.
	lib := prompts.NewLibrary()
	if cfg.Prompts.Dir != "" {
		if err := lib.LoadDir(cfg.Prompts.Dir); err != nil {
			logger.Warn("prompt overrides not loaded", slog.String("error", err.Error()))
		}
	}

	gen := genai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
	editor := edit.NewOrchestrator(gen, lib,
		edit.WithStepTimeout(cfg.AI.StepTimeout),
		edit.WithLogger(logger))

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	notes := noteservice.NewService(db, broker)
	tokens := agentauth.NewService(db, agentauth.WithLogger(logger))
	guard := agentauth.NewGuard(tokens, func(noteID string) {
		broker.PublishNoteUpdated(noteID, "agent")
	})

	apiRouter := api.NewRouter(api.RouterConfig{
		Handler:      api.NewHandler(notes, editor, broker, cfg.Auth.UserID),
		TokenHandler: api.NewTokenHandler(tokens, cfg.Auth.UserID),
		AgentHandler: api.NewAgentHandler(guard),
		AuthEnabled:  cfg.Auth.AuthEnabled(),
		AuthToken:    cfg.Auth.Token,
		SSEHandler:   broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Watch prompt overrides for hot reload.
	if cfg.Prompts.Dir != "" {
		g.Go(func() error {
			if err := lib.Watch(gCtx, cfg.Prompts.Dir, logger); err != nil {
				logger.Warn("prompt watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server with the given options. Logs go
// to stderr so stdout stays clean for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	lib := prompts.NewLibrary()
	if cfg.Prompts.Dir != "" {
		if err := lib.LoadDir(cfg.Prompts.Dir); err != nil {
			logger.Warn("prompt overrides not loaded", slog.String("error", err.Error()))
		}
	}

	gen := genai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
	editor := edit.NewOrchestrator(gen, lib,
		edit.WithStepTimeout(cfg.AI.StepTimeout),
		edit.WithLogger(logger))
	notes := noteservice.NewService(db, nil)

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(notes, editor, cfg.Auth.UserID).ServeStdio()
}
