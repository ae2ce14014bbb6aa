package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/config"
	"github.com/yash24113/shofy-listsync/internal/controller"
	"github.com/yash24113/shofy-listsync/internal/event"
	handler "github.com/yash24113/shofy-listsync/internal/handler/http"
	lsredis "github.com/yash24113/shofy-listsync/internal/localstore/redis"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/internal/syncer"
	"github.com/yash24113/shofy-listsync/pkg/health"
	"github.com/yash24113/shofy-listsync/pkg/httpclient"
	pkgkafka "github.com/yash24113/shofy-listsync/pkg/kafka"
	pkglogger "github.com/yash24113/shofy-listsync/pkg/logger"
)

// App wires together all dependencies and runs the list-sync service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	bus        *event.Bus
	session    *session.Manager
	cartCtl    *controller.CartController
	wishCtl    *controller.WishlistController
	engine     *syncer.Engine
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	logger = pkglogger.WithInstance(logger, instanceID)

	// Device-local Redis, the persistent local store.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Kafka producer for best-effort domain events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Remote list service clients: retrying HTTP client behind a circuit
	// breaker per upstream.
	httpc := httpclient.New(httpclient.DefaultConfig())
	onBreakerChange := func(name, from, to string) {
		logger.Warn("circuit breaker state change",
			slog.String("breaker", name),
			slog.String("from", from),
			slog.String("to", to),
		)
	}
	cartDoer := httpclient.NewCircuitBreakerClient(httpc,
		httpclient.DefaultCircuitBreakerConfig("cart-api"), onBreakerChange)
	wishlistDoer := httpclient.NewCircuitBreakerClient(httpc,
		httpclient.DefaultCircuitBreakerConfig("wishlist-api"), onBreakerChange)
	cartAPI := remote.NewCartClient(cartDoer, cfg.CartAPIURL)
	wishlistAPI := remote.NewWishlistClient(wishlistDoer, cfg.WishlistAPIURL)

	// Build the dependency graph.
	store := lsredis.NewStore(rdb, instanceID, logger)
	sess := session.NewManager(store, logger)
	bus := event.NewBus()
	events := event.NewProducer(producer, logger)

	mover := controller.NewMover(store, cartAPI, sess, logger)
	cartCtl := controller.NewCartController(cache.New(), cartAPI, sess, mover, events, bus, logger)
	wishCtl := controller.NewWishlistController(cache.New(), store, wishlistAPI, sess, mover, events, bus, logger)
	engine := syncer.New(store, wishlistAPI, sess, events, bus, mover, instanceID, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	router := handler.NewRouter(cartCtl, wishCtl, sess, engine, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		producer:   producer,
		bus:        bus,
		session:    sess,
		cartCtl:    cartCtl,
		wishCtl:    wishCtl,
		engine:     engine,
		httpServer: httpServer,
	}, nil
}

// Run starts the reconciliation engine and the HTTP server, then blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Resume a persisted session, then reconcile once on startup, the way a
	// freshly opened tab syncs on load.
	if err := a.session.Restore(runCtx); err != nil {
		a.logger.Warn("failed to restore session identity", slog.String("error", err.Error()))
	}
	if err := a.cartCtl.Refresh(runCtx); err != nil {
		a.logger.Warn("initial cart refresh failed", slog.String("error", err.Error()))
	}
	if err := a.wishCtl.Refresh(runCtx); err != nil {
		a.logger.Warn("initial wishlist refresh failed", slog.String("error", err.Error()))
	}

	// A completed sync rewrites the local bucket; refresh the wishlist
	// mirror so reads see the reconciled list.
	notices, cancelSub := a.bus.Subscribe()
	defer cancelSub()
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case n := <-notices:
				if n.Kind != event.NoticeSynced {
					continue
				}
				if err := a.wishCtl.Refresh(runCtx); err != nil {
					a.logger.Warn("wishlist refresh after sync failed",
						slog.String("error", err.Error()))
				}
			}
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		if err := a.engine.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("reconciliation engine: %w", err)
		}
	}()
	a.engine.Trigger(syncer.TriggerFocus)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
