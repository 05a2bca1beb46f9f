package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade_portal_backend/internal/actions"
	actionrepo "trade_portal_backend/internal/actions/repository"
	"trade_portal_backend/internal/alerts"
	"trade_portal_backend/internal/directory"
	"trade_portal_backend/internal/email"
	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	apphttp "trade_portal_backend/internal/http"
	"trade_portal_backend/internal/http/router"
	"trade_portal_backend/internal/notification"
	"trade_portal_backend/internal/operations"
	orderrepo "trade_portal_backend/internal/orders/repository"
	"trade_portal_backend/internal/scheduler"
	"trade_portal_backend/internal/sla"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/config"
	"trade_portal_backend/platform/db"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/metrics"
	"trade_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	redisClient, changes, closeFeed := initChangeFeed(ctx, cfg, log)
	if closeFeed != nil {
		defer closeFeed()
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	thresholds, err := sla.LoadThresholds(cfg.GetSLAThresholdsFile())
	if err != nil {
		log.Error("failed to load sla thresholds", "error", err)
		panic("failed to load sla thresholds: " + err.Error())
	}
	classifier := sla.NewClassifier(thresholds)

	// Shared validator instance for dependency injection
	val := validator.New()
	clk := clock.System{}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	people := directory.New(pool)
	orders := orderrepo.New(pool)

	notificationModule := notification.New(sender, cfg, people, cfg.GetAppBaseURL(), log)
	if redisClient != nil {
		// Outbox rows are delivered by the scheduler process.
		notificationModule.EnableOutbox(pool)
	}
	defer notificationModule.Wait()

	actionsModule := actions.NewModule(actions.Deps{
		Repo:      actionrepo.New(pool),
		Admins:    people,
		Side:      notificationModule.SideChannel(),
		Changes:   changes,
		Bus:       eventBus,
		Validator: val,
		Clock:     clk,
		Log:       log,
	})
	actionsModule.SetSSE(notificationModule.SSE())

	var dismissals alerts.DismissalStore
	if redisClient != nil {
		dismissals = alerts.NewRedisDismissals(redisClient, cfg.GetDismissalTTL())
	} else {
		dismissals = alerts.NewMemoryDismissals(cfg.GetDismissalTTL(), clk)
	}
	alertsModule := alerts.NewModule(alerts.NewRepository(pool, orders), dismissals, clk, log)

	operationsModule := operations.NewModule(orders, classifier, changes, eventBus, cfg.GetQueuePollInterval(), val, clk, log)
	operationsModule.SetSSE(notificationModule.SSE())
	defer operationsModule.Close()

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			notificationModule,
			actionsModule,
			alertsModule,
			operationsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		notificationModule.SSE().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initChangeFeed returns a Redis-backed feed when REDIS_URL is set so that
// changes written by the scheduler reach this process. Otherwise changes
// stay in memory.
func initChangeFeed(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) (*redis.Client, feed.Feed, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; change feed and dismissals are in-memory, outbox disabled")
		return nil, feed.NewMemoryFeed(), nil
	}

	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}

	changes := feed.NewRedisFeed(client, log)
	if err := withRetry(ctx, log, "change feed subscription", 5, time.Second, func() error {
		return changes.Start(ctx)
	}); err != nil {
		log.Error("failed to start change feed", "error", err)
		panic("failed to start change feed: " + err.Error())
	}

	return client, changes, func() {
		_ = changes.Stop()
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
