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

	"github.com/starford/medlog/internal/api"
	"github.com/starford/medlog/internal/medservice"
	"github.com/starford/medlog/internal/notify"
	"github.com/starford/medlog/internal/scanner"
	"github.com/starford/medlog/internal/sse"
	"github.com/starford/medlog/internal/storage"
)

// Run starts the application with the given options.
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
		slog.String("data_driver", cfg.Data.Driver),
		slog.String("data_path", cfg.Data.Path),
		slog.Bool("scanner_enabled", cfg.Scanner.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize storage.
	var (
		store     storage.Provider
		fileStore *storage.File
	)
	switch cfg.Data.Driver {
	case DriverSQLite:
		db, err := storage.OpenSQLite(cfg.Data.Path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		store = db
	default:
		if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFile(cfg.Data.Path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		store = fs
		fileStore = fs
	}
	defer store.Close()

	// SSE broker. Notifications and data changes reach the UI through it.
	broker := sse.NewBroker(2 * time.Second)

	center := notify.NewCenter(0, 0, func(kind string, payload any) {
		broker.Publish(sse.Event{Type: kind, Data: payload})
	})

	svc, err := medservice.New(store, center, logger,
		medservice.WithOnChange(broker.PublishDataEvent))
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	// Optional label scanner.
	var scan scanner.Client
	if cfg.Scanner.Enabled() {
		scan = scanner.New(scanner.Config{
			BaseURL: cfg.Scanner.BaseURL,
			APIKey:  cfg.Scanner.APIKey,
			Model:   cfg.Scanner.Model,
			Timeout: time.Duration(cfg.Scanner.TimeoutSeconds) * time.Second,
		})
	}

	apiRouter := api.NewRouter(svc, scan, center, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory for external edits (file driver only).
	if fileStore != nil {
		g.Go(func() error {
			if err := medservice.Watch(gCtx, svc, fileStore, logger, broker.PublishDataEvent); err != nil {
				logger.Warn("data watcher stopped", slog.String("error", err.Error()))
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
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
