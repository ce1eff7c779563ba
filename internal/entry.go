// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/specdesk/internal/api"
	"github.com/starford/specdesk/internal/mcpserver"
	"github.com/starford/specdesk/internal/registry"
	"github.com/starford/specdesk/internal/settings"
	"github.com/starford/specdesk/internal/specservice"
	"github.com/starford/specdesk/internal/sse"
	"github.com/starford/specdesk/internal/watcher"
)

// localProject is the project id used when a single specs directory is served.
const localProject = "local"

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger(fallback io.Writer) *slog.Logger {
	out := a.logOutput
	if out == nil {
		out = fallback
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openState opens the project registry and the settings store.
func openState(cfg *Config, logger *slog.Logger) (*registry.Registry, *settings.Store, error) {
	reg, err := registry.Open(cfg.Registry.Path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init registry: %w", err)
	}
	store := settings.NewStore(cfg.Settings.Path, logger)
	if err := store.Load(); err != nil {
		reg.Close()
		return nil, nil, fmt.Errorf("init settings: %w", err)
	}
	return reg, store, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.specsDir != "" {
		return errors.New("a single specs directory is served over MCP only, use WithProjectRoot")
	}
	cfg := app.config
	logger := app.logger(os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("registry_path", cfg.Registry.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.Bool("strict_dependencies", cfg.Validation.StrictDependencies),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg, store, err := openState(cfg, logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	if app.projectRoot != "" {
		p, err := reg.Add(ctx, app.projectRoot)
		if err != nil {
			return fmt.Errorf("register %s: %w", app.projectRoot, err)
		}
		if _, err := store.Mutate(func(s *settings.Settings) { s.ActiveProjectID = p.ID }); err != nil {
			return fmt.Errorf("activate %s: %w", p.ID, err)
		}
	}

	svc := specservice.NewService(reg, logger, specservice.Options{
		StrictDependencies: cfg.Validation.StrictDependencies,
	})

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	reload := make(chan struct{}, 1)
	apiRouter := api.NewRouter(api.Deps{
		Specs:    svc,
		Projects: reg,
		Settings: store,
		Events:   broker,
		ProjectsChanged: func() {
			select {
			case reload <- struct{}{}:
			default:
			}
		},
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

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
		if err := reg.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			watchProjects(gCtx, reg, cfg.Watch.Debounce, logger, broker, reload)
			return nil
		})
	}

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
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
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

// watchProjects watches every registered project's specs directory and
// restarts with a fresh project list whenever reload fires.
func watchProjects(ctx context.Context, reg *registry.Registry, debounce time.Duration, logger *slog.Logger, broker *sse.Broker, reload <-chan struct{}) {
	for {
		projects, err := reg.All(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("watcher: list projects failed", slog.String("error", err.Error()))
		}
		targets := make([]watcher.Target, 0, len(projects))
		for _, p := range projects {
			targets = append(targets, watcher.Target{ProjectID: p.ID, SpecsDir: p.SpecsDir})
		}

		wctx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := watcher.Watch(wctx, targets, debounce, logger, broker.PublishSpecsChanged); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()

		select {
		case <-ctx.Done():
			stop()
			<-done
			return
		case <-reload:
			logger.Info("watcher: projects changed, restarting")
			stop()
			<-done
		}
	}
}

// RunMCP serves the MCP protocol on stdin/stdout until the client
// disconnects. Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger(os.Stderr)

	strict := specservice.Options{StrictDependencies: cfg.Validation.StrictDependencies}

	var srv *mcpserver.Server
	if app.specsDir != "" {
		logger.Info("MCP server starting", slog.String("specs_dir", app.specsDir))
		svc := specservice.NewService(specservice.Dir(app.specsDir), logger, strict)
		srv = mcpserver.New(svc, func() string { return localProject })
	} else {
		reg, store, err := openState(cfg, logger)
		if err != nil {
			return err
		}
		defer reg.Close()

		logger.Info("MCP server starting", slog.String("registry_path", cfg.Registry.Path))
		svc := specservice.NewService(reg, logger, strict)
		srv = mcpserver.New(svc, func() string {
			if id := store.Get().ActiveProjectID; id != "" {
				return id
			}
			recent, err := reg.Recent(ctx, 1)
			if err != nil || len(recent) == 0 {
				return ""
			}
			return recent[0].ID
		})
	}

	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
