package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	apierrors "github.com/NIKPRIN6598/Cleaner-Selector/internal/errors"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/infrastructure"
	customMiddleware "github.com/NIKPRIN6598/Cleaner-Selector/internal/middleware"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/services"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	handlers "github.com/NIKPRIN6598/Cleaner-Selector/internal/transport/http"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/validation"
	ws "github.com/NIKPRIN6598/Cleaner-Selector/internal/websocket"
)

// BuildTime is set at compile time
var BuildTime = time.Now().Format(time.RFC3339)

// Options overrides pieces of the wiring. Zero fields are built from the
// configuration.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Table skips dataset loading.
	Table *dataset.Table
	// Registry receives the Prometheus collectors instead of the default
	// registerer.
	Registry *prometheus.Registry
}

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Paths           *config.Paths
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Metrics         *infrastructure.BusinessMetrics
	Table           *dataset.Table
	Sessions        *session.Store
	Signer          *session.Signer
	WebSocketHub    *ws.Hub
	SelectorService *services.SelectorService
	HealthService   *services.HealthService
	ErrorHandler    *apierrors.ErrorHandler
	Router          *chi.Mux
	Server          *http.Server
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, apierrors.NewConfigError("failed to load configuration", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = infrastructure.InitializeLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelCfg := infrastructure.NewOTelConfig(cfg.Telemetry)
	otelCfg.Registry = opts.Registry
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		Table:         opts.Table,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if app.Table == nil {
		if app.Table, err = LoadDataset(ctx, cfg.Dataset, paths, logger); err != nil {
			return nil, err
		}
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// LoadDataset reads the configured dataset source.
func LoadDataset(ctx context.Context, cfg config.DatasetConfig, paths *config.Paths, logger *slog.Logger) (*dataset.Table, error) {
	switch cfg.Source {
	case "sheets":
		svc, err := dataset.NewSheetsService(ctx, dataset.SheetsConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			ReadRange:       cfg.SheetsRange,
			CredentialsFile: cfg.SheetsCredentials,
			APIKey:          cfg.SheetsAPIKey,
		})
		if err != nil {
			return nil, err
		}
		table, err := dataset.LoadSheets(ctx, svc, cfg.SpreadsheetID, cfg.SheetsRange)
		if err != nil {
			return nil, apierrors.NewParsingError("failed to load dataset from sheets", err).
				WithContext("spreadsheet_id", cfg.SpreadsheetID)
		}
		logger.InfoContext(ctx, "dataset loaded",
			slog.String("spreadsheet_id", cfg.SpreadsheetID),
			slog.Int("records", table.Len()))
		return table, nil
	default:
		path := paths.DatasetPath(cfg.File)
		if err := validation.NewFileValidator(logger).ValidateDatasetFile(path); err != nil {
			return nil, apierrors.NewStorageError("failed to load dataset", err).WithContext("path", path)
		}
		table, err := dataset.LoadFile(ctx, path, dataset.LoadOptions{
			Sheet:  cfg.Sheet,
			Logger: logger,
		})
		if err != nil {
			return nil, apierrors.NewParsingError("failed to load dataset", err).WithContext("path", path)
		}
		return table, nil
	}
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	policy, err := filter.ParsePolicy(a.Config.Filter.RangePolicy)
	if err != nil {
		return err
	}

	signer, err := session.NewSigner(a.Config.Session.Secret)
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	if a.Config.Session.Secret == "" {
		a.Logger.Warn("No session secret configured, sessions will not survive a restart")
	}
	a.Signer = signer

	a.Sessions = session.NewStore(a.Config.Session.TTL, session.WithCountObserver(func(delta int64) {
		a.Metrics.AddSessions(context.Background(), delta)
	}))

	a.WebSocketHub = ws.NewHub(infrastructure.WithComponent(a.Logger, "websocket"), a.Metrics)

	a.SelectorService = services.NewSelectorService(a.Table, a.Sessions, services.SelectorOptions{
		Policy:   policy,
		Renderer: exporter.NewRenderer(a.Config.Export, infrastructure.WithComponent(a.Logger, "exporter")),
		CSV:      exporter.WriteOptions{BOMPrefix: a.Config.Export.CSVBOM},
		TempDir:  a.Paths.CacheDir,
		Notifier: a.WebSocketHub,
		Metrics:  a.Metrics,
		Logger:   infrastructure.WithComponent(a.Logger, "selector"),
	})

	source := a.Config.Dataset.Source
	if source == "file" {
		source = a.Paths.DatasetPath(a.Config.Dataset.File)
	}
	a.HealthService = services.NewHealthService(config.AppVersion, BuildTime, services.HealthDeps{
		Table:    a.Table,
		Paths:    a.Paths,
		Hub:      a.WebSocketHub,
		Sessions: a.Sessions,
		Source:   source,
	}, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Order: RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(a.ErrorHandler.Recoverer)
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}
	r.Use(session.Middleware(a.Signer, session.CookieOptions{
		Name:   a.Config.Session.CookieName,
		Secure: a.Config.Session.SecureCookie,
		MaxAge: a.Config.Session.TTL,
	}))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// The websocket outlives the request timeout and skips the rate limiter.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws",
		handlers.NewWebSocketHandler(a.WebSocketHub, handlers.WebSocketOptions{
			AllowedOrigins:  a.Config.Security.AllowedOrigins,
			ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
			WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
			PingPeriod:      a.Config.WebSocket.PingPeriod,
			PongWait:        a.Config.WebSocket.PongWait,
		}, a.Logger))

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	r.Group(func(r chi.Router) {
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.Compress(5, "text/html", "text/csv", "application/json", "application/problem+json"))

		a.setupHTMLRoutes(r)
		a.setupAPIRoutes(r)
	})

	a.Router = r
}

func (a *Application) setupHTMLRoutes(r chi.Router) {
	page := handlers.NewPageHandler(a.SelectorService, a.Logger, a.ErrorHandler)
	r.Get("/", page.Index)
	r.Post("/filters", page.SubmitFilters)
	r.Post("/filters/clear", page.ClearFilters)
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger)

	r.Route("/api", func(r chi.Router) {
		health := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/version", health.Version)

		r.Mount("/selector", handlers.NewSelectorHandler(a.SelectorService, validator, a.Logger, a.ErrorHandler).Routes())

		r.With(customMiddleware.ContentTypeValidator("application/json")).
			Post("/client-log", handlers.NewClientLogHandler(validator, a.Logger, a.ErrorHandler).Handle)
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Serve runs the server on ln together with the websocket hub and the
// session janitor until ctx is cancelled or one of them fails, then shuts
// everything down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.WebSocketHub.Run(gctx)
	})
	g.Go(func() error {
		return a.Sessions.RunJanitor(gctx, a.Config.Session.SweepInterval, a.Logger)
	})
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started successfully",
			slog.String("address", "http://"+ln.Addr().String()),
			slog.Int("records", a.Table.Len()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(gctx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run listens on the configured address and serves until SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}
