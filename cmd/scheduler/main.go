package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade_portal_backend/internal/actions"
	actionrepo "trade_portal_backend/internal/actions/repository"
	"trade_portal_backend/internal/directory"
	"trade_portal_backend/internal/email"
	"trade_portal_backend/internal/events"
	"trade_portal_backend/internal/feed"
	"trade_portal_backend/internal/notification"
	"trade_portal_backend/internal/notification/outbox"
	orderrepo "trade_portal_backend/internal/orders/repository"
	"trade_portal_backend/internal/scheduler"
	"trade_portal_backend/internal/sla"
	"trade_portal_backend/platform/clock"
	"trade_portal_backend/platform/config"
	"trade_portal_backend/platform/db"
	"trade_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()
	// Publish-only: the API process subscribes to the same channels.
	changes := feed.NewRedisFeed(redisClient, log)

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

	clk := clock.System{}
	people := directory.New(pool)

	notificationModule := notification.New(sender, cfg, people, cfg.GetAppBaseURL(), log)
	notificationModule.EnableOutbox(pool)

	actionsModule := actions.NewModule(actions.Deps{
		Repo:    actionrepo.New(pool),
		Admins:  people,
		Side:    notificationModule.SideChannel(),
		Changes: changes,
		Clock:   clk,
		Log:     log,
	})
	notificationModule.RegisterHandlers(eventBus, actionsModule.Manager())

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	dispatcher := scheduler.NewNotificationOutboxDispatcher(outbox.New(pool), client, 0, log)
	go dispatcher.Run(ctx)

	sweeper := scheduler.NewSLASweeper(orderrepo.New(pool), sla.NewClassifier(thresholds), actionsModule.Manager(), clk, log)

	worker, err := scheduler.NewWorker(cfg, eventBus, sweeper, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
