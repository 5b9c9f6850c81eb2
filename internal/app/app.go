package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"gridpulse/internal/config"
	apierrors "gridpulse/internal/errors"
	"gridpulse/internal/infrastructure"
	customMiddleware "gridpulse/internal/middleware"
	"gridpulse/internal/services"
	handlers "gridpulse/internal/transport/http"
	ws "gridpulse/internal/websocket"
)

const (
	AppName = "GridPulse - Power Grid Data Explorer"

	// maxStoredDatasets bounds the in-memory store; the default dataset is never evicted.
	maxStoredDatasets = 20
	clientLogLimit    = 64 << 10
)

var (
	// Version is set at compile time
	Version = config.AppVersion
	// BuildTime is set at compile time
	BuildTime = time.Now().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(Version))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	OTelProviders *infrastructure.OTelProviders
	Hub           *ws.Hub
	Datasets      *services.DatasetService
	Health        *services.HealthService
	// Refresher is nil unless a refresh schedule and default source are configured.
	Refresher *services.Refresher

	errorHandler *apierrors.ErrorHandler
}

// NewApplication loads configuration and logging and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.String("build_id", BuildID))

	return New(cfg, logger)
}

// New wires every component from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, err
	}

	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	hubMetrics, err := ws.NewHubMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	a.Hub = ws.NewHub(hubMetrics, a.Logger)

	pipelineMetrics, err := services.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	pipeline, err := services.NewPipeline(a.Config.Pipeline, a.OTelProviders.Tracer, pipelineMetrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	fetcher := services.NewSourceFetcher(
		&http.Client{Timeout: a.Config.Source.FetchTimeout},
		a.Config.Source.MaxUploadBytes,
		a.Logger)

	defaultLocation := resolveLocation(a.Config.Source.DefaultLocation, a.Paths.ExecutableDir)
	a.Datasets = services.NewDatasetService(
		services.NewDatasetStore(maxStoredDatasets),
		pipeline,
		fetcher,
		a.Hub,
		defaultLocation,
		a.Logger)

	a.Health = services.NewHealthService(Version, BuildTime, a.Datasets, a.Hub, a.Logger)

	if a.Config.Source.RefreshSchedule != "" && defaultLocation != "" {
		a.Refresher, err = services.NewRefresher(a.Datasets, a.Config.Source.RefreshSchedule, a.Config.Source.FetchTimeout, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create refresher: %w", err)
		}
	}

	a.Logger.Info("Services initialized",
		slog.String("default_source", defaultLocation),
		slog.String("refresh_schedule", a.Config.Source.RefreshSchedule),
		slog.Any("encodings", pipeline.Candidates()))
	return nil
}

// resolveLocation anchors a relative local source path at base; URLs pass through.
func resolveLocation(location, base string) string {
	if location == "" || services.IsRemote(location) || filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(base, location)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	// The upgrade bypasses compression and timeouts, which break hijacked connections.
	wsHandler := ws.NewHandler(a.Hub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle(config.WebSocketEndpoint, wsHandler)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Warn("OpenTelemetry middleware disabled", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfigFrom(a.Config.Security, a.Logger)))
		}

		a.setupAPIRoutes(r)
		a.setupHTMLRoutes(r)
	})

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator(a.Logger)
	limiter := customMiddleware.NewRateLimiterFromConfig(a.Config.Security.RateLimit, a.Logger)

	write := []func(http.Handler) http.Handler{
		customMiddleware.APIKeyAuth(a.Logger, a.Config.Security.APIKeys),
		limiter.Handler,
		customMiddleware.AuditLog(a.Logger),
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Compress(5, "application/json", "application/problem+json", "text/csv"))
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))

		health := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/version", health.Version)

		clientLogs := handlers.NewClientLogHandler(a.Logger, a.errorHandler)
		r.With(customMiddleware.BodyLimit(clientLogLimit)).Post("/logs", clientLogs.Handle)

		datasets := handlers.NewDatasetHandler(a.Datasets, validator, a.errorHandler, a.Config.Source.MaxUploadBytes, a.Logger)
		r.Mount("/v1/datasets", datasets.Routes(write...))
	})
}

func (a *Application) setupHTMLRoutes(r chi.Router) {
	r.Get("/", handlers.ServeIndex(a.Paths.WebDir, AppName, Version))
	r.Route("/static", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", handlers.StaticFiles(filepath.Join(a.Paths.WebDir, "static"))))
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP and drives the background workers until ctx is done or
// one of them fails, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Hub.Run(gctx)
	})

	if a.Refresher != nil {
		g.Go(func() error {
			return a.Refresher.Run(gctx)
		})
	}

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdownServer()
	})

	g.Go(func() error {
		a.preloadDefault(gctx)
		return nil
	})

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	err := g.Wait()
	a.shutdownTelemetry()
	a.Logger.Info("Application shutdown complete")
	return err
}

func (a *Application) shutdownServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Logger.InfoContext(ctx, "Shutting down HTTP server")
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func (a *Application) shutdownTelemetry() {
	if a.OTelProviders == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
}

// preloadDefault loads the default source once at startup. Failure leaves the
// server running with no default dataset.
func (a *Application) preloadDefault(ctx context.Context) {
	if a.Datasets.DefaultLocation() == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.Config.Source.FetchTimeout)
	defer cancel()

	entry, err := a.Datasets.LoadDefault(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Default source not loaded",
			slog.String("location", a.Datasets.DefaultLocation()),
			slog.String("error", err.Error()))
		return
	}

	a.Logger.InfoContext(ctx, "Default source loaded",
		slog.String("dataset_id", entry.ID),
		slog.Int("valid_rows", entry.Meta.ValidRows),
		slog.String("encoding", entry.Meta.Encoding))
}
