package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadchat_backend/internal/email"
	"leadchat_backend/internal/leadstore"
	"leadchat_backend/internal/notification"
	"leadchat_backend/platform/config"
	"leadchat_backend/platform/db"
	"leadchat_backend/platform/logger"
	"leadchat_backend/platform/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting notification worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if !cfg.IsRedisEnabled() {
		log.Error("REDIS_URL not configured; the worker has no queue to consume")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	if !cfg.IsEmailEnabled() {
		log.Warn("SMTP_HOST not configured; queued notifications are dropped")
	}

	notificationModule := notification.New(sender, cfg, log)

	if cfg.IsDatabaseEnabled() {
		pool := connect(ctx, cfg, log)
		defer pool.Close()
		notificationModule.SetDeliveryRecorder(leadstore.New(pool))
	}

	worker, err := notification.NewWorker(cfg, notificationModule, log)
	if err != nil {
		log.Error("failed to initialize notification worker", "error", err)
		panic("failed to initialize notification worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("notification worker stopped")
}

func connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := retry.Do(ctx, log, "database connection", 5, 2*time.Second, func() error {
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
	return pool
}
