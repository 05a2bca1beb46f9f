package scheduler

import (
	"context"
	"fmt"

	"trade_portal_backend/internal/events"
	"trade_portal_backend/platform/config"
	"trade_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// WorkerConfig is what the worker reads from the application config.
type WorkerConfig interface {
	config.SchedulerConfig
	config.SLAConfig
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	bus       events.Bus
	sweeper   *SLASweeper
	log       *logger.Logger
}

// NewWorker builds the task server. When sweeper is non-nil the SLA sweep
// is registered as a periodic task on the configured cron spec.
func NewWorker(cfg WorkerConfig, bus events.Bus, sweeper *SLASweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		bus:     bus,
		sweeper: sweeper,
		log:     log,
	}
	w.mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	if sweeper != nil {
		spec := cfg.GetSLASweepSpec()
		if spec == "" {
			spec = "@every 5m"
		}
		w.scheduler = asynq.NewScheduler(opt, nil)
		if _, err := w.scheduler.Register(spec, NewSLASweepTask(), asynq.Queue(queue), asynq.MaxRetry(0)); err != nil {
			return nil, fmt.Errorf("register sla sweep: %w", err)
		}
		w.mux.HandleFunc(TaskSLASweep, w.handleSLASweep)
	}

	return w, nil
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

func (w *Worker) handleSLASweep(ctx context.Context, _ *asynq.Task) error {
	if w.sweeper == nil {
		return nil
	}
	_, err := w.sweeper.Sweep(ctx)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("sla sweep scheduler failed to start", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
