package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"leadchat_backend/platform/config"
	"leadchat_backend/platform/logger"
)

// Worker delivers queued lead notifications.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	module *Module
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, module *Module, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := RedisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
		RetryDelayFunc:  notifyRetryDelay,
		ShutdownTimeout: 20 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Warn("lead notification attempt failed",
				"task", task.Type(), "retry", retried, "max_retry", maxRetry, "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		module: module,
		log:    log,
	}

	mux.HandleFunc(TaskLeadNotify, w.handleLeadNotify)

	return w, nil
}

// notifyRetryDelay backs off quadratically from 30s: 30s, 1m, 2.5m, 5m, ...
func notifyRetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(n*n+1) * 30 * time.Second
}

func (w *Worker) handleLeadNotify(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadNotifyPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.module.Deliver(ctx, payload.Record)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("notification worker stopped", "error", err)
	}
}
