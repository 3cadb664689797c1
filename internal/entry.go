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

	"github.com/starford/inkpad/internal/api"
	"github.com/starford/inkpad/internal/editorservice"
	"github.com/starford/inkpad/internal/export"
	"github.com/starford/inkpad/internal/history"
	"github.com/starford/inkpad/internal/mcpserver"
	"github.com/starford/inkpad/internal/render"
	"github.com/starford/inkpad/internal/session"
	"github.com/starford/inkpad/internal/settings"
	"github.com/starford/inkpad/internal/sse"
	"github.com/starford/inkpad/internal/storage"
	"github.com/starford/inkpad/internal/store"
	"github.com/starford/inkpad/internal/viewport"
	"github.com/starford/inkpad/internal/watch"
)

// runtime holds the wired components shared by every entry point.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	db      *store.DB
	files   *storage.FS
	broker  *sse.Broker
	svc     *editorservice.Service
	closers []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// build wires storage, history, settings, the render pipeline, the session
// manager and the SSE broker into one editor service.
func (a *application) build(ctx context.Context) (*runtime, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("diagram_engine", cfg.Preview.Diagram.Engine),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &runtime{cfg: cfg, logger: logger}

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rt.files = files

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	rt.db = db
	rt.closers = append(rt.closers, func() { _ = db.Close() })

	defaults := settings.Defaults()
	defaults.AutosaveEnabled = cfg.Editor.AutosaveEnabled
	defaults.AutosaveInterval = int(cfg.Editor.AutosaveInterval.Milliseconds())
	prefs := settings.Load(ctx, db, defaults, logger)
	hist := history.New(db, history.WithLimit(cfg.Editor.HistoryLimit), history.WithLogger(logger))

	broker := sse.NewBroker(2 * time.Second)
	rt.broker = broker
	rt.closers = append(rt.closers, broker.Close)

	diagrams, err := a.diagramRenderer(logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.closeWith(diagrams, "diagram renderer")
	printer, owned := a.exportPrinter(diagrams, logger)
	if owned {
		rt.closeWith(printer, "export printer")
	}

	pipeline := render.NewPipeline(render.NewMarkup(cfg.Preview.Sanitize), diagrams,
		render.WithDebounce(cfg.Preview.Debounce),
		render.WithTimeout(cfg.Preview.RenderTimeout),
		render.WithTheme(render.Theme(cfg.Preview.Theme)),
		render.WithLogger(logger),
		render.WithBusyHook(func(busy bool) {
			broker.Publish(sse.Event{Type: sse.TypePreviewBusy, Data: map[string]bool{"busy": busy}})
		}),
	)

	current := prefs.Get()
	sess := session.New(files, hist,
		session.WithLogger(logger),
		session.WithAutosave(current.AutosaveEnabled, time.Duration(current.AutosaveInterval)*time.Millisecond),
	)

	rt.svc = editorservice.New(editorservice.Deps{
		Files:     files,
		Session:   sess,
		History:   hist,
		Settings:  prefs,
		Pipeline:  pipeline,
		Viewport:  viewport.New(),
		Exporter:  export.New(printer),
		Publisher: broker,
		Logger:    logger,
	})
	rt.closers = append(rt.closers, rt.svc.Shutdown)
	return rt, nil
}

func (a *application) diagramRenderer(logger *slog.Logger) (render.DiagramRenderer, error) {
	if a.diagrams != nil {
		return a.diagrams, nil
	}
	d := a.config.Preview.Diagram
	switch d.Engine {
	case EngineCommand:
		return render.NewCommandRenderer(d.Command, d.Args...), nil
	case EngineBrowser:
		return render.NewBrowserRenderer(a.browserOptions(logger)...), nil
	}
	return nil, fmt.Errorf("unknown diagram engine %q", d.Engine)
}

func (a *application) browserOptions(logger *slog.Logger) []render.BrowserOption {
	d := a.config.Preview.Diagram
	opts := []render.BrowserOption{
		render.WithMermaidURL(d.MermaidURL),
		render.WithBrowserLogger(logger),
	}
	if d.ControlURL != "" {
		opts = append(opts, render.WithControlURL(d.ControlURL))
	}
	return opts
}

// exportPrinter returns the printer for PNG and PDF export and whether the
// runtime owns it. The browser diagram renderer doubles as one; other
// engines get a separate headless Chrome that starts on the first export.
func (a *application) exportPrinter(diagrams render.DiagramRenderer, logger *slog.Logger) (export.Printer, bool) {
	if a.printer != nil {
		return a.printer, false
	}
	if b, ok := diagrams.(*render.BrowserRenderer); ok {
		return b, false
	}
	return render.NewBrowserRenderer(a.browserOptions(logger)...), true
}

func (rt *runtime) closeWith(v any, name string) {
	c, ok := v.(interface{ Close() error })
	if !ok {
		return
	}
	rt.closers = append(rt.closers, func() {
		if err := c.Close(); err != nil {
			rt.logger.Warn(name+" close failed", slog.String("error", err.Error()))
		}
	})
}

// Handler builds the root HTTP handler: health checks plus the API under /api.
func (rt *runtime) Handler() http.Handler {
	cfg := rt.cfg
	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker)

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
		if err := rt.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server and the workspace watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           rt.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start workspace watcher with SSE callback.
	g.Go(func() error {
		if err := watch.Watch(gCtx, rt.files.Root(), logger, rt.broker.PublishEntryEvent); err != nil {
			logger.Warn("workspace watcher stopped", slog.String("error", err.Error()))
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
		// Cancels gCtx so the watcher returns.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to the configured
// log output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOut == os.Stdout {
		app.logOut = os.Stderr
	}
	rt, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Export renders the workspace document at path and writes it to out in
// the given format (svg, png or pdf).
func Export(ctx context.Context, path, format, out string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOut == os.Stdout {
		app.logOut = os.Stderr
	}
	rt, err := app.build(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	res, err := rt.svc.ExportDocument(ctx, path, format)
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	rt.logger.Info("Exported diagram",
		slog.String("path", path),
		slog.String("output", out),
		slog.String("orientation", res.Orientation))
	return nil
}
