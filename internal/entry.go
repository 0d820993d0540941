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

	"github.com/starford/scriptorium/internal/api"
	"github.com/starford/scriptorium/internal/asr"
	"github.com/starford/scriptorium/internal/mcpserver"
	"github.com/starford/scriptorium/internal/media"
	"github.com/starford/scriptorium/internal/pipeline"
	"github.com/starford/scriptorium/internal/prompt"
	"github.com/starford/scriptorium/internal/repository"
	"github.com/starford/scriptorium/internal/search"
	"github.com/starford/scriptorium/internal/sse"
	"github.com/starford/scriptorium/internal/transcriptservice"
)

// App holds the components shared by every command.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Repo    *repository.Repository
	Service *transcriptservice.Service

	db          *search.DB
	computeType string
}

// New wires the repository, search index, converter and speech engine.
// A speech engine that fails to load is logged and leaves the application
// able to browse but not to transcribe.
func New(ctx context.Context, opts ...Option) (*App, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("repository_path", cfg.Repository.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	repo, err := repository.New(cfg.Repository.Path, repository.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}

	db, err := search.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init search index: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Repo: repo, db: db}

	engine := app.engine
	if engine == nil && !app.noEngine {
		engine, a.computeType = loadEngine(ctx, cfg.ASR, logger)
	}

	norm := media.NewNormalizer(
		media.WithBinary(cfg.Media.FFmpegPath),
		media.WithScratchDir(cfg.Media.ScratchDir),
		media.WithTimeout(cfg.Media.Timeout),
		media.WithLogger(logger),
	)
	pipeOpts := []pipeline.Option{
		pipeline.WithScratchDir(cfg.Media.ScratchDir),
		pipeline.WithLogger(logger),
		pipeline.WithASROptions(asr.Options{
			BeamSize:  cfg.ASR.BeamSize,
			VADFilter: cfg.ASR.VADFilter,
			Language:  cfg.ASR.Language,
		}),
	}
	if engine != nil {
		pipeOpts = append(pipeOpts, pipeline.WithEngine(engine))
	}
	pipe := pipeline.NewService(norm, repo, pipeOpts...)

	a.Service = transcriptservice.NewService(repo,
		transcriptservice.WithSearch(db),
		transcriptservice.WithPipeline(pipe),
		transcriptservice.WithLogger(logger),
	)
	return a, nil
}

func loadEngine(ctx context.Context, cfg ASRConfig, logger *slog.Logger) (asr.Engine, string) {
	if !cfg.Enabled {
		logger.Info("speech engine disabled")
		return nil, ""
	}
	open := asr.FasterWhisperOpener(asr.FasterWhisperConfig{
		Python: cfg.Python,
		Model:  cfg.Model,
		Logger: logger,
	})
	engine, ct, err := asr.Load(ctx, cfg.ComputeType, open)
	if err != nil {
		logger.Warn("speech engine unavailable, transcription disabled",
			slog.String("model", cfg.Model),
			slog.String("error", err.Error()))
		return nil, ""
	}
	logger.Info("speech engine loaded",
		slog.String("model", cfg.Model),
		slog.String("compute_type", ct))
	return engine, ct
}

// Close releases the search database.
func (a *App) Close() error {
	return a.db.Close()
}

// SyncSearch brings the search index in line with the repository.
func (a *App) SyncSearch(ctx context.Context) (search.Changes, error) {
	return search.Sync(ctx, a.db, a.Repo, a.Logger)
}

// Handler builds the HTTP handler: health checks, the REST API under /api
// and, when broker is non-nil, the event stream at /api/events.
func (a *App) Handler(broker *sse.Broker) http.Handler {
	var events http.Handler
	if broker != nil {
		events = broker
	}
	apiRouter := api.NewRouter(a.Service, prompt.NewSessions(), events)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	// Readiness reports whether uploads can be transcribed; browsing works
	// either way, so the status code stays 200.
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if a.Service.CanTranscribe() {
			_, _ = fmt.Fprintf(w, `{"status":"ok","transcription":true,"compute_type":%q}`, a.computeType)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","transcription":false}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	a, err := New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger
	cfg := a.Config

	// Run initial sync; this also creates the repository root for the watcher.
	if _, err := a.SyncSearch(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: a.Handler(broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start repository watcher with SSE callback.
	g.Go(func() error {
		err := search.Watch(gCtx, a.db, a.Repo, a.Repo.Root(), repository.IndexFile, logger,
			func(kind, id string) {
				broker.PublishTranscriptEvent(kind, id)
			})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP protocol on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, version string, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	a, err := New(ctx, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.SyncSearch(ctx); err != nil {
		a.Logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	a.Logger.Info("MCP server starting on stdio")
	return mcpserver.New(a.Service, version).ServeStdio()
}
