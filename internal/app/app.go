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
	"github.com/redis/go-redis/v9"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/config"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	handler "github.com/Astrolithia/qvtu-shopping/internal/handler/http"
	"github.com/Astrolithia/qvtu-shopping/internal/repository/postgres"
	redisrepo "github.com/Astrolithia/qvtu-shopping/internal/repository/redis"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/migrations"
	"github.com/Astrolithia/qvtu-shopping/pkg/database"
	"github.com/Astrolithia/qvtu-shopping/pkg/health"
	pkgkafka "github.com/Astrolithia/qvtu-shopping/pkg/kafka"
	"github.com/Astrolithia/qvtu-shopping/pkg/middleware"
	"github.com/Astrolithia/qvtu-shopping/pkg/tracing"
)

// ServiceName labels logs, metrics and spans.
const ServiceName = "qvtu-shopping"

// Version is set at build time with -ldflags "-X .../internal/app.Version=...".
var Version = "dev"

const (
	startupTimeout     = 30 * time.Second
	healthCheckTimeout = 2 * time.Second
	rateLimiterIdleTTL = 10 * time.Minute
	tracerFlushTimeout = 3 * time.Second
)

// App wires together all dependencies and runs the shopping service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
	stopLimiter    context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.tracerShutdown, err = tracing.Init(ctx, tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	applied, err := database.RunMigrations(ctx, a.pool, migrations.FS, logger)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed", slog.Int("applied", applied))

	a.redis, err = database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	var publisher event.Publisher
	if cfg.KafkaEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kafkaCfg.Metrics, err = pkgkafka.NewProducerMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register kafka metrics: %w", err)
		}
		a.producer = pkgkafka.NewProducer(kafkaCfg, logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		publisher = event.NewLogPublisher(logger)
		logger.Warn("kafka disabled, domain events are only logged")
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	eventProducer := event.NewProducer(publisher, logger)

	userRepo := postgres.NewUserRepository(a.pool)
	customerRepo := postgres.NewCustomerRepository(a.pool)
	addressRepo := postgres.NewAddressRepository(a.pool)
	groupRepo := postgres.NewGroupRepository(a.pool)
	orderRepo := postgres.NewOrderRepository(a.pool)
	idempotency := redisrepo.NewIdempotencyStore(a.redis, cfg.IdempotencyTTL)

	svcs := handler.Services{
		Auth:      service.NewAuthService(userRepo, customerRepo, hasher, jwtManager, eventProducer, logger),
		Users:     service.NewUserService(userRepo, customerRepo, hasher, eventProducer, logger),
		Customers: service.NewCustomerService(customerRepo, groupRepo, hasher, eventProducer, logger),
		Addresses: service.NewAddressService(addressRepo, eventProducer, logger),
		Groups:    service.NewGroupService(groupRepo, logger),
		Orders:    service.NewOrderService(orderRepo, customerRepo, addressRepo, idempotency, eventProducer, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler(healthCheckTimeout)
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return a.redis.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	metrics, err := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	clientIPs, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter
	limiter := middleware.NewRateLimiter(limiterCtx, cfg.AuthRateLimit, cfg.AuthRateBurst, rateLimiterIdleTTL, clientIPs, logger)

	router := handler.NewRouter(svcs, jwtManager.Validator(), healthHandler, handler.RouterConfig{
		ServiceName:    ServiceName,
		RequestTimeout: cfg.RequestTimeout,
		CORS:           middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins),
		AuthLimiter:    limiter,
		Metrics:        metrics,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
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
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server first so in-flight requests can still
// publish events and write spans, then releases the backing resources.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeResources()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened. Nil members are skipped
// so it is safe after a partial start-up.
func (a *App) closeResources() []error {
	var errs []error

	if a.stopLimiter != nil {
		a.stopLimiter()
	}

	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerFlushTimeout)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
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

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
