package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadchat_backend/internal/chat"
	"leadchat_backend/internal/email"
	apphttp "leadchat_backend/internal/http"
	"leadchat_backend/internal/http/router"
	"leadchat_backend/internal/inference"
	"leadchat_backend/internal/leadstore"
	"leadchat_backend/internal/notification"
	"leadchat_backend/internal/pricing"
	"leadchat_backend/internal/session"
	"leadchat_backend/platform/ai/openaicompat"
	"leadchat_backend/platform/config"
	"leadchat_backend/platform/db"
	"leadchat_backend/platform/events"
	"leadchat_backend/platform/logger"
	"leadchat_backend/platform/retry"
	"leadchat_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	health := map[string]apphttp.HealthChecker{}

	var pool *pgxpool.Pool
	if cfg.IsDatabaseEnabled() {
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
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, leadstore.Migrations(), log); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		health["database"] = pool
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not configured; qualified leads are not persisted")
	}

	var store session.Store
	var queue *notification.Client
	if cfg.IsRedisEnabled() {
		var redisStore *session.RedisStore
		if err := retry.Do(ctx, log, "redis connection", 5, 2*time.Second, func() error {
			client, err := session.NewRedisClient(ctx, cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
			if err != nil {
				return err
			}
			redisStore = session.NewRedisStore(client, cfg.GetSessionTTL())
			return nil
		}); err != nil {
			log.Error("failed to connect to redis", "error", err)
			panic("failed to connect to redis: " + err.Error())
		}
		store = redisStore
		health["redis"] = redisStore

		queue, err = notification.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize notification queue", "error", err)
			panic("failed to initialize notification queue: " + err.Error())
		}
		defer func() { _ = queue.Close() }()
	} else {
		log.Warn("REDIS_URL not configured; sessions are kept in memory and notifications sent inline")
		store = session.NewMemoryStore(cfg.GetSessionTTL())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	notificationModule := notification.New(sender, cfg, log)
	if pool != nil {
		leads := leadstore.New(pool)
		notificationModule.SetLeadStore(leads)
		notificationModule.SetDeliveryRecorder(leads)
	}
	if queue != nil {
		notificationModule.SetQueue(queue)
	}
	notificationModule.RegisterHandlers(eventBus)

	engine := pricing.NewEngine(nil)
	chatModule, err := chat.NewModule(store, engine, val, eventBus, log)
	if err != nil {
		log.Error("failed to initialize chat module", "error", err)
		panic("failed to initialize chat module: " + err.Error())
	}

	if cfg.IsInferenceEnabled() {
		llm := openaicompat.NewModel(openaicompat.Config{
			APIKey:  cfg.GetInferenceAPIKey(),
			BaseURL: cfg.GetInferenceBaseURL(),
			Model:   cfg.GetInferenceModel(),
		})
		chatModule.Service().SetFallback(inference.NewFallback(llm, cfg.GetInferenceTimeout(), val))
		chatModule.Service().SetExplainer(inference.NewExplainer(llm, cfg.GetInferenceTimeout(), engine))
		log.Info("remote inference enabled", "model", llm.Name())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: health,
		Modules: []apphttp.Module{
			chatModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		eventBus.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
