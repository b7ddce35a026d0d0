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

	"github.com/aleber123/nytt-sub001/internal/auth"
	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/client"
	"github.com/aleber123/nytt-sub001/internal/config"
	"github.com/aleber123/nytt-sub001/internal/event"
	handler "github.com/aleber123/nytt-sub001/internal/handler/http"
	"github.com/aleber123/nytt-sub001/internal/notification"
	"github.com/aleber123/nytt-sub001/internal/repository"
	"github.com/aleber123/nytt-sub001/internal/repository/memory"
	"github.com/aleber123/nytt-sub001/internal/repository/postgres"
	redisrepo "github.com/aleber123/nytt-sub001/internal/repository/redis"
	"github.com/aleber123/nytt-sub001/internal/service"
	memstorage "github.com/aleber123/nytt-sub001/internal/storage/memory"
	"github.com/aleber123/nytt-sub001/migrations"
	"github.com/aleber123/nytt-sub001/pkg/database"
	"github.com/aleber123/nytt-sub001/pkg/health"
	"github.com/aleber123/nytt-sub001/pkg/httpclient"
	pkgkafka "github.com/aleber123/nytt-sub001/pkg/kafka"
	"github.com/aleber123/nytt-sub001/pkg/middleware"
	"github.com/aleber123/nytt-sub001/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	sessions       *memory.SessionStore
	guard          *memory.SubmissionGuard
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.Insecure = cfg.OTELInsecure
	traceCfg.SampleRate = cfg.OTELSampleRate
	traceCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	sessions, guard, err := a.initSessions(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	queue, err := a.initEmailQueue(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Events are optional; without a broker the wizard publishes nothing.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Create HTTP clients with circuit breakers for the downstream services.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = 10 * time.Second
	httpCfg.RetryWaitMin = 500 * time.Millisecond
	baseClient := httpclient.New(httpCfg)
	pricingClient := client.NewPricingClient(a.circuitBreaker(baseClient, "storefront-pricing", httpclient.DownstreamPricing), cfg.PricingServiceURL)
	ordersClient := client.NewOrdersClient(a.circuitBreaker(baseClient, "storefront-orders", httpclient.DownstreamOrders), cfg.OrderServiceURL)

	cat := catalog.New()
	notifier, err := notification.New(queue, cat, notification.Config{
		BusinessName:  cfg.BusinessName,
		BusinessEmail: cfg.BusinessEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	}, logger)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("init notifier: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.DraftTTL)

	wizard := service.NewWizardService(service.Dependencies{
		Sessions: sessions,
		Guard:    guard,
		Files:    memstorage.New(),
		Catalog:  cat,
		Pricing:  pricingClient,
		Orders:   ordersClient,
		Notifier: notifier,
		Events:   events,
		Tokens:   tokens,
	}, service.Config{
		SubmitTimeout: cfg.SubmitTimeout,
		Locale:        cfg.Locale,
	}, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins
	corsCfg.Environment = cfg.Environment

	// HTTP router.
	router := handler.NewRouter(wizard, cat, tokens.DraftID, healthHandler, logger, handler.RouterConfig{
		CORS:           corsCfg,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RequestTimeout: cfg.RequestTimeout,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.SubmitTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// initSessions builds the draft store and submission guard for the
// configured backend.
func (a *App) initSessions(ctx context.Context, hh *health.Handler) (repository.SessionStore, repository.SubmissionGuard, error) {
	cfg := a.cfg
	if cfg.SessionBackend != config.BackendRedis {
		a.sessions = memory.NewSessionStore(cfg.DraftTTL)
		a.guard = memory.NewSubmissionGuard(cfg.SubmitCooldown)
		a.logger.Info("using in-memory draft sessions", slog.Duration("ttl", cfg.DraftTTL))
		return a.sessions, a.guard, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.URL = cfg.RedisURL
	redisCfg.Host = cfg.RedisHost
	redisCfg.Port = cfg.RedisPort
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB

	rdb, err := database.NewRedisClient(ctx, redisCfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redisClient = rdb
	a.logger.Info("connected to Redis", slog.String("addr", rdb.Options().Addr))

	hh.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return redisrepo.NewSessionStore(rdb, cfg.DraftTTL),
		redisrepo.NewSubmissionGuard(rdb, cfg.SubmitInflightTTL, cfg.SubmitCooldown),
		nil
}

// initEmailQueue builds the outbound email queue. The PostgreSQL queue is a
// non-critical dependency: a failed enqueue never fails an order.
func (a *App) initEmailQueue(ctx context.Context, hh *health.Handler) (repository.EmailQueue, error) {
	cfg := a.cfg
	if cfg.EmailQueueBackend != config.BackendPostgres {
		a.logger.Warn("using in-memory email queue, emails are not persisted")
		return memory.NewEmailQueue(), nil
	}

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL
	if cfg.DBMaxConns > 0 {
		pgCfg.MaxConns = cfg.DBMaxConns
		pgCfg.MinConns = cfg.DBMinConns
	}
	pgCfg.MaxConnLifetime = time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute
	pgCfg.MaxConnIdleTime = time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute

	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}

	hh.RegisterNonCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewEmailQueue(pool), nil
}

func (a *App) circuitBreaker(base *httpclient.Client, name, downstream string) *httpclient.CircuitBreakerClient {
	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         name,
		Downstream:   downstream,
		MaxRequests:  a.cfg.CBMaxRequests,
		Interval:     time.Duration(a.cfg.CBInterval) * time.Second,
		Timeout:      a.cfg.CircuitBreakerTimeout(),
		FailureRatio: a.cfg.CBFailureRatio,
		MinRequests:  a.cfg.CBMinRequests,
	}
	a.logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.String("downstream", downstream),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", a.cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	return httpclient.NewCircuitBreakerClient(base, cbCfg, a.logger).
		WithFallback(client.CircuitOpenFallback)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if a.sessions != nil {
		go a.sweepSessions(ctx)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// sweepSessions drops expired in-memory drafts and finished submit
// cooldowns until ctx is canceled.
func (a *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SessionSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Sweep(); n > 0 {
				a.logger.Debug("swept expired drafts", slog.Int("count", n))
			}
			if n := a.guard.Sweep(); n > 0 {
				a.logger.Debug("swept submit cooldowns", slog.Int("count", n))
			}
		}
	}
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests, including submissions)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer, Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests. A running submission may need up to
	// SubmitTimeout to finish.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.SubmitTimeout+5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close backing stores.
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources closes whichever of the producer, Redis client and pool
// were opened.
func (a *App) closeResources() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
