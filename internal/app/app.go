package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-reviews/internal/analyzer"
	"github.com/utafrali/storefront-reviews/internal/catalog"
	"github.com/utafrali/storefront-reviews/internal/config"
	"github.com/utafrali/storefront-reviews/internal/event"
	handler "github.com/utafrali/storefront-reviews/internal/handler/http"
	"github.com/utafrali/storefront-reviews/internal/repository"
	firestorerepo "github.com/utafrali/storefront-reviews/internal/repository/firestore"
	"github.com/utafrali/storefront-reviews/internal/repository/memory"
	"github.com/utafrali/storefront-reviews/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront-reviews/internal/repository/redis"
	"github.com/utafrali/storefront-reviews/internal/service"
	"github.com/utafrali/storefront-reviews/migrations"
	"github.com/utafrali/storefront-reviews/pkg/database"
	"github.com/utafrali/storefront-reviews/pkg/health"
	"github.com/utafrali/storefront-reviews/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront-reviews/pkg/kafka"
	"github.com/utafrali/storefront-reviews/pkg/tracing"
)

// sessionMaxAge is how long a shopper keeps the same anonymous session.
const sessionMaxAge = 30 * 24 * time.Hour

// App wires together all dependencies and runs the review page service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	firestore      *firestore.Client
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	}

	products, reviews, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	drafts, err := a.openDrafts(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	var events service.EventPublisher = event.Discard{}
	if cfg.KafkaEnabled {
		kcfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kcfg.Async = true
		a.producer = pkgkafka.NewProducer(kcfg, logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	commentAnalyzer := newAnalyzer(cfg, logger)
	logger.Info("comment analyzer configured", slog.String("provider", cfg.AnalyzerProvider))

	loader := catalog.NewLoader(products, catalog.Config{
		LoadWait:     cfg.CatalogLoadWait(),
		CacheTTL:     cfg.CatalogCacheTTL(),
		CacheSize:    cfg.CatalogCacheSize,
		FetchTimeout: cfg.CatalogFetchTimeout(),
	}, logger)

	// The request deadline leaves room for the store append after a slow analyzer.
	requestTimeout := cfg.AnalyzerTimeout() + 15*time.Second

	reviewService := service.NewReviewPageService(loader, reviews, drafts, commentAnalyzer, events, logger,
		service.WithSubmitTimeout(requestTimeout+5*time.Second),
	)
	router := handler.NewRouter(
		reviewService,
		handler.NewSessions(cfg.SessionSecret, cfg.SessionCookieSecure, sessionMaxAge),
		healthHandler,
		handler.RouterConfig{
			ServiceName:        config.ServiceName,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
			SubmitRateLimitRPS: cfg.SubmitRateLimitRPS,
			SubmitRateBurst:    cfg.SubmitRateLimitBurst,
			RequestTimeout:     requestTimeout,
		},
		logger,
	)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// openStore connects the configured product and review backend.
func (a *App) openStore(ctx context.Context, healthHandler *health.Handler) (repository.ProductRepository, repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)

		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		healthHandler.Register("postgres", pool.Ping)
		return postgres.NewProductRepository(pool), postgres.NewReviewRepository(pool), nil

	case config.StoreFirestore:
		client, err := firestorerepo.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to firestore: %w", err)
		}
		a.firestore = client
		logger.Info("connected to Firestore", slog.String("project_id", cfg.FirestoreProjectID))

		healthHandler.Register("firestore", func(ctx context.Context) error {
			return firestorerepo.Ping(ctx, client)
		})
		return firestorerepo.NewProductRepository(client), firestorerepo.NewReviewRepository(client), nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// openDrafts returns the Redis draft store, or an in-process one when Redis
// is disabled.
func (a *App) openDrafts(ctx context.Context, healthHandler *health.Handler) (repository.DraftRepository, error) {
	if !a.cfg.RedisEnabled {
		a.logger.Warn("redis disabled, drafts are kept in memory")
		return memory.NewDraftRepository(a.cfg.DraftTTL()), nil
	}

	rdb, err := database.NewRedisClient(ctx, a.cfg.RedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)

	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return redisrepo.NewDraftRepository(rdb, a.cfg.DraftTTL()), nil
}

// newAnalyzer builds the configured analyzer wrapped with the timeout,
// tracing and metrics decorator.
func newAnalyzer(cfg *config.Config, logger *slog.Logger) analyzer.Analyzer {
	var impl analyzer.Analyzer
	switch cfg.AnalyzerProvider {
	case config.AnalyzerHTTP:
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.AnalyzerTimeout()
		httpCfg.MaxRetries = cfg.AnalyzerMaxRetries
		impl = analyzer.NewRemote(cfg.AnalyzerURL, httpCfg, logger)
	case config.AnalyzerNoop:
		impl = analyzer.Noop{}
	default:
		impl = analyzer.NewOpenAI(analyzer.OpenAIConfig{
			BaseURL:    cfg.AnalyzerURL,
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.AnalyzerModel,
			MaxRetries: cfg.AnalyzerMaxRetries,
		})
	}
	return analyzer.Instrument(cfg.AnalyzerProvider, cfg.AnalyzerTimeout(), impl)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown drains the HTTP server, then flushes spans and closes the
// backends.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeAll()
	a.logger.Info("application shutdown complete")
	return nil
}

// closeAll releases whatever NewApp managed to open.
func (a *App) closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.firestore != nil {
		if err := a.firestore.Close(); err != nil {
			a.logger.Error("firestore close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
