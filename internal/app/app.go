package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/einarr2o12/review-service/internal/config"
	"github.com/einarr2o12/review-service/internal/event"
	handler "github.com/einarr2o12/review-service/internal/handler/http"
	"github.com/einarr2o12/review-service/internal/product"
	"github.com/einarr2o12/review-service/internal/repository/postgres"
	"github.com/einarr2o12/review-service/internal/service"
	"github.com/einarr2o12/review-service/migrations"
	"github.com/einarr2o12/review-service/pkg/database"
	"github.com/einarr2o12/review-service/pkg/health"
	"github.com/einarr2o12/review-service/pkg/httpclient"
	pkgkafka "github.com/einarr2o12/review-service/pkg/kafka"
	"github.com/einarr2o12/review-service/pkg/tracing"
)

const (
	serviceName    = "review"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	healthHandler := health.NewHandler()

	// Review events are optional; without Kafka they are dropped.
	var (
		producer *pkgkafka.Producer
		events   service.EventPublisher = event.NoopProducer{}
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Product service client: bounded timeout, no retries by default, behind
	// a circuit breaker.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.ProductServiceTimeout,
		MaxRetries:      cfg.ProductServiceMaxRetries,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 50,
	})

	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "product-service",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,

		IgnoreServerErrors: !cfg.CBTripOnServerError,
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
		slog.Bool("trip_on_server_error", cfg.CBTripOnServerError),
	)

	// Build the dependency graph.
	repo := postgres.NewReviewRepository(pool)
	products := product.NewClient(cbClient, cfg.ProductServiceURL, logger)
	reviewService := service.NewReviewService(repo, products, events, logger)

	healthHandler.RegisterCritical("postgres", repo.Ping)
	logger.Info("readiness checks registered", slog.Any("checks", healthHandler.Names()))

	router := handler.NewRouter(reviewService, healthHandler, logger, cfg.PprofAllowedCIDRs, cfg.CORSAllowedOrigins)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server first so in-flight requests drain, then
// flushes spans, closes the Kafka producer and finally the pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
