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

	"github.com/starford/semwiki/internal/api"
	"github.com/starford/semwiki/internal/exporter"
	"github.com/starford/semwiki/internal/index"
	"github.com/starford/semwiki/internal/lookup"
	"github.com/starford/semwiki/internal/mcpserver"
	"github.com/starford/semwiki/internal/sqlstore"
	"github.com/starford/semwiki/internal/storage"
	"github.com/starford/semwiki/internal/wikiservice"
)

// components is the wired application graph shared by every run mode.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	db      *sqlstore.Store
	indexer *index.Indexer
	svc     *wikiservice.Service
}

func (c *components) Close() error {
	return c.db.Close()
}

func setup(ctx context.Context, opts []Option) (*application, *components, error) {
	app := &application{logOutput: os.Stdout, output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, errors.New("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("base_uri", cfg.Export.BaseURI),
		slog.String("default_property_type", cfg.Lookup.DefaultPropertyType),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}

	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := sqlstore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	ns := exporter.NewNamespaces(cfg.Export.BaseURI, cfg.Export.Vocabularies)
	indexer := index.New(db, vault, ns, cfg.Lookup.DefaultPropertyType, logger)
	svc := wikiservice.NewService(vault, db,
		lookup.NewCache(cfg.Lookup.CacheSize, cfg.Lookup.CacheTTL),
		exporter.NewMapper(db, ns, cfg.Export.PoolSize, logger),
		wikiservice.Config{
			DefaultPropertyType: cfg.Lookup.DefaultPropertyType,
			DefaultLimit:        cfg.Lookup.DefaultLimit,
		})

	// Run initial sync.
	if err := indexer.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return app, &components{cfg: cfg, logger: logger, db: db, indexer: indexer, svc: svc}, nil
}

// watch keeps the store in step with the vault and drops derived caches
// after every change.
func (c *components) watch(ctx context.Context) error {
	return c.indexer.Watch(ctx, c.cfg.Vault.Path, func(kind, path string) {
		c.svc.Invalidate()
		c.logger.Debug("store changed", slog.String("kind", kind), slog.String("path", path))
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	_, c, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, logger := c.cfg, c.logger

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.db.AllChecksums(req.Context()); err != nil {
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
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.watch(gCtx)
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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdio while the watcher keeps the store
// current. Logs must not go to stdout in this mode.
func RunMCP(ctx context.Context, opts ...Option) error {
	_, c, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := c.watch(ctx); err != nil {
			c.logger.Error("watcher failed", slog.String("error", err.Error()))
		}
	}()

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.svc).ServeStdio()
}

// QueryFunc is a one-shot read against the service.
type QueryFunc func(ctx context.Context, svc *wikiservice.Service) (any, error)

// RunQuery syncs the store, runs fn and writes its result as indented JSON
// to the configured output.
func RunQuery(ctx context.Context, fn QueryFunc, opts ...Option) error {
	app, c, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	v, err := fn(ctx, c.svc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
