package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"nahio/config"
	"nahio/services/tasks"
)

// TaskHandlers processes the background tasks of the API.
type TaskHandlers interface {
	HandleDispatch(ctx context.Context, task *asynq.Task) error
	HandleReminder(ctx context.Context, task *asynq.Task) error
}

// RedisOpt is the asynq connection for the configured queue database.
func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

// NewMux routes task types to their handlers.
func NewMux(h TaskHandlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDispatchNotification, h.HandleDispatch)
	mux.HandleFunc(tasks.TypeSendReminder, h.HandleReminder)
	return mux
}

// Worker runs the asynq server that delivers notifications and reminders.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	cfg    config.Config
	logger *zap.Logger
}

func NewWorker(cfg config.Config, h TaskHandlers, logger *zap.Logger) *Worker {
	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			logger.Warn("Task failed", zap.String("type", task.Type()), zap.Int("retry", retried), zap.Error(err))
		}),
	})
	return &Worker{srv: srv, mux: NewMux(h), cfg: cfg, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *Worker) Start(ctx context.Context) {
	go w.monitorRedis(ctx)
	go func() {
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				w.logger.Info("Task worker started")
				return
			}
			w.logger.Error("Task worker failed to start",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt*2) * time.Second):
			}
		}
		w.logger.Error("Task worker gave up starting; notifications stay queued")
	}()
}

// Run blocks until the worker receives a termination signal.
func (w *Worker) Run(ctx context.Context) error {
	go w.monitorRedis(ctx)
	w.logger.Info("Task worker running", zap.Int("concurrency", w.cfg.WorkerConcurrency))
	if err := w.srv.Run(w.mux); err != nil {
		return fmt.Errorf("task worker: %w", err)
	}
	return nil
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// monitorRedis pings the queue database to surface connection loss in logs.
func (w *Worker) monitorRedis(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     w.cfg.RedisAddr,
		Password: w.cfg.RedisPassword,
		DB:       w.cfg.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				w.logger.Warn("Task queue redis unreachable", zap.Error(err))
			}
		}
	}
}
