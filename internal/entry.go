// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
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

	"github.com/laomst/lmrc/internal/api"
	"github.com/laomst/lmrc/internal/debounce"
	"github.com/laomst/lmrc/internal/events"
	"github.com/laomst/lmrc/internal/journal"
	"github.com/laomst/lmrc/internal/mcpserver"
	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/reconciler"
	"github.com/laomst/lmrc/internal/verifier"
	"github.com/laomst/lmrc/internal/workspace"
)

// components holds the wired core shared by the long-running watcher and the
// one-shot commands.
type components struct {
	ws    *workspace.FS
	store *pathindex.Store
	rec   *reconciler.Reconciler
	ver   *verifier.Verifier
	jrnl  *journal.DB // nil when journaling is off
}

func (c *components) close() {
	if c.jrnl != nil {
		_ = c.jrnl.Close()
	}
}

// buildComponents wires the workspace, index store, reconciler and verifier
// from configuration. callback may be nil.
//
// A missing workspace path is a fatal startup error, never something to
// create on the fly: watching a silently created empty directory would look
// like a healthy process over the wrong tree.
func buildComponents(cfg *Config, logger *slog.Logger, callback reconciler.EventCallback) (*components, error) {
	ws, err := workspace.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init workspace: %w", err)
	}

	store := pathindex.NewStore(ws, cfg.Workspace.IndexFile, logger)
	gate := debounce.NewGate(cfg.Watcher.Debounce())

	var jrnl *journal.DB
	var recorder reconciler.Recorder
	if cfg.Workspace.JournalFile != "" {
		jrnl, err = journal.Open(cfg.Workspace.JournalFile)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		recorder = jrnl
	}

	filter := reconciler.Filter{
		Extension:          cfg.Workspace.Extension,
		SkipUnnamedPrefix:  cfg.Watcher.SkipUnnamedPrefix,
		SkipConflictMarker: cfg.Watcher.SkipConflictMarker,
		SkipBackupSuffix:   cfg.Watcher.SkipBackupSuffix,
	}
	rec := reconciler.New(ws, store, gate, reconciler.Config{
		Filter:               filter,
		ShardPrefixLen:       cfg.Serial.ShardPrefixLength,
		RemoveAssetsOnDelete: cfg.Watcher.RemoveAssetsOnDelete,
		Journal:              recorder,
		Callback:             callback,
	}, logger)

	ver := verifier.New(ws, store, cfg.Workspace.Extension, logger)

	return &components{ws: ws, store: store, rec: rec, ver: ver, jrnl: jrnl}, nil
}

// Run starts the watcher service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("index_file", cfg.Workspace.IndexFile),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := events.NewBroker(2 * time.Second)
	defer broker.Close()

	comp, err := buildComponents(cfg, logger, func(kind, serial, relPath string) {
		broker.PublishMutation(kind, serial, relPath)
	})
	if err != nil {
		return err
	}
	defer comp.close()

	// Bring the index up to date before watching: repair drift first, then
	// pick up documents created while no watcher was running.
	if _, err := comp.ver.Run(); err != nil {
		logger.Warn("initial verification failed", slog.String("error", err.Error()))
	}
	comp.rec.Sweep()

	g, gCtx := errgroup.WithContext(ctx)

	// Start the filesystem watcher.
	g.Go(func() error {
		return comp.rec.Watch(gCtx)
	})

	// Periodic verification.
	if interval := cfg.Watcher.VerifyInterval(); interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					if _, err := comp.ver.Run(); err != nil {
						logger.Warn("periodic verification failed", slog.String("error", err.Error()))
					}
				}
			}
		})
	}

	// Admin API.
	var httpServer *http.Server
	if cfg.App.HTTP.Enabled() {
		svc := api.NewService(comp.ws, comp.store, comp.ver, comp.jrnl)
		apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
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

		r.Mount("/api", apiRouter)

		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: r,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

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

		logger.Info("Shutting down...")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}

// RunIndex performs a one-shot indexing pass. With explicit paths only those
// documents are processed; without, the whole workspace is swept.
func RunIndex(ctx context.Context, cfg *Config, paths []string) error {
	logger := NewLogger(cfg.App)
	slog.SetDefault(logger)

	comp, err := buildComponents(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer comp.close()

	if len(paths) == 0 {
		comp.rec.Sweep()
		return nil
	}
	for _, p := range paths {
		abs, err := comp.ws.Abs(p)
		if err != nil {
			return fmt.Errorf("index %s: %w", p, err)
		}
		if err := comp.rec.HandleCreated(abs); err != nil {
			return fmt.Errorf("index %s: %w", p, err)
		}
	}
	return nil
}

// RunVerify performs a one-shot verification pass and prints the report as
// JSON on stdout.
func RunVerify(ctx context.Context, cfg *Config) error {
	logger := NewLogger(cfg.App)
	slog.SetDefault(logger)

	comp, err := buildComponents(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer comp.close()

	report, err := comp.ver.Run()
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so stdout stays
// clean for the protocol.
func RunMCP(ctx context.Context, cfg *Config) error {
	logger := NewLogger(cfg.App)
	slog.SetDefault(logger)

	comp, err := buildComponents(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer comp.close()

	return mcpserver.New(comp.ws, comp.store, comp.ver).ServeStdio()
}
