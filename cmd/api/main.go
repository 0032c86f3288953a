package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialcrm_backend/internal/adapters/storage"
	"dialcrm_backend/internal/agents"
	"dialcrm_backend/internal/dialer"
	"dialcrm_backend/internal/dialer/telephony"
	"dialcrm_backend/internal/documents"
	"dialcrm_backend/internal/events"
	apphttp "dialcrm_backend/internal/http"
	"dialcrm_backend/internal/http/router"
	"dialcrm_backend/internal/leads"
	"dialcrm_backend/internal/notification"
	"dialcrm_backend/internal/scheduler"
	"dialcrm_backend/internal/sessions"
	"dialcrm_backend/platform/config"
	"dialcrm_backend/platform/db"
	"dialcrm_backend/platform/logger"
	"dialcrm_backend/platform/validator"

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
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

	// Shared validator instance for dependency injection
	val := validator.New()

	// Redis client for the session stats cache. Optional; a nil client
	// makes every stats read hit the database.
	statsRedis := initStatsRedis(cfg, log)
	if statsRedis != nil {
		defer func() { _ = statsRedis.Close() }()
	}

	// Storage service for lead documents (MinIO). Optional.
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		svc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure lead-documents bucket", 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, cfg.GetMinioBucketLeadDocuments())
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketLeadDocuments())
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		storageSvc = svc
		log.Info("storage service initialized", "bucket", cfg.GetMinioBucketLeadDocuments())
	} else {
		log.Warn("MinIO disabled; lead document endpoints will reject uploads")
	}

	// Outbound telephony provider. The simulated provider hangs up on its
	// own after a fixed delay, which keeps local development usable.
	var provider telephony.Provider
	if cfg.IsTelephonyEnabled() {
		provider = telephony.NewTwilioProvider(cfg, log)
		log.Info("twilio telephony provider initialized", "from", cfg.GetTwilioFromNumber())
	} else {
		provider = telephony.NewSimulatedProvider(cfg.GetCallStatusPollDelay())
		log.Warn("telephony disabled; using simulated call provider")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module delivers SSE toasts and subscribes to domain events
	notificationModule := notification.NewModule(log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.Close()

	agentsModule := agents.NewModule(pool, val, log)
	leadsModule := leads.NewModule(pool, val, log)
	sessionsModule := sessions.NewModule(pool, statsRedis, cfg.GetStatsCacheTTL(), eventBus, val, log)

	var documentsModule *documents.Module
	if storageSvc != nil {
		documentsModule = documents.NewModule(pool, storageSvc, cfg.GetMinioBucketLeadDocuments(), leadsModule.Service(), eventBus, val, log)
	}

	dialerModule := dialer.NewModule(pool, agentsModule.Service(), provider, notificationModule.SSE(), eventBus, cfg, val, log)

	// Crash backstop: schedule a delayed status check for every call placed,
	// so a lead claimed by a crashed agent gets requeued.
	schedulerClient, closeScheduler := initSchedulerClient(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	if schedulerClient != nil {
		schedulerClient.RegisterHandlers(eventBus, cfg.GetStaleLeadThreshold(), log)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	modules := []apphttp.Module{
		agentsModule,
		leadsModule,
		sessionsModule,
		dialerModule,
		notificationModule,
	}
	if documentsModule != nil {
		modules = append(modules, documentsModule)
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initStatsRedis(cfg config.StatsConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; session stats cache disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; session stats cache disabled", "error", err)
		return nil
	}

	return redis.NewClient(opts)
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; stale-call backstop disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
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
