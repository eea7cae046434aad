package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aizen-labs/premium-bot/internal/auth"
	"github.com/aizen-labs/premium-bot/internal/bot"
	"github.com/aizen-labs/premium-bot/internal/database"
	"github.com/aizen-labs/premium-bot/internal/engine"
	"github.com/aizen-labs/premium-bot/internal/health"
	"github.com/aizen-labs/premium-bot/internal/idempotency"
	"github.com/aizen-labs/premium-bot/internal/jobs"
	jobhandlers "github.com/aizen-labs/premium-bot/internal/jobs/handlers"
	"github.com/aizen-labs/premium-bot/internal/keystore"
	"github.com/aizen-labs/premium-bot/internal/ledger"
	"github.com/aizen-labs/premium-bot/internal/middleware"
	"github.com/aizen-labs/premium-bot/internal/notify"
	"github.com/aizen-labs/premium-bot/internal/ratelimit"
	"github.com/aizen-labs/premium-bot/internal/registry"
	"github.com/aizen-labs/premium-bot/internal/session"
	"github.com/aizen-labs/premium-bot/pkg/config"
	"github.com/aizen-labs/premium-bot/pkg/graceful"
	"github.com/aizen-labs/premium-bot/pkg/logger"
	"github.com/aizen-labs/premium-bot/pkg/metrics"
	pkgredis "github.com/aizen-labs/premium-bot/pkg/redis"

	_ "github.com/lib/pq"
)

const (
	sessionGaugeInterval = 15 * time.Second
	limiterSweepInterval = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log, level := logger.New(cfg.Logger, cfg.Sentry.Enabled)
	slog.SetDefault(log)
	config.WatchLogLevel(v, level, log)

	log.Info("starting premium bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("storage", cfg.Storage.Driver),
	)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Error("failed to initialize sentry", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot terminated with error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("premium bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	checker := health.NewChecker(log)

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		client, err := pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := client.Close(); cerr != nil {
				log.Error("error closing redis client", slog.Any("error", cerr))
			}
		}()

		redisClient = client
		checker.AddCheck("redis", health.NewRedisChecker(client))
	}

	users, keys, requests, db, err := buildStores(ctx, cfg, redisClient, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if cerr := db.Close(); cerr != nil {
				log.Error("error closing database", slog.Any("error", cerr))
			}
		}()
		checker.AddCheck("database", health.NewDBChecker(db))
	}

	var sessionStorage session.Storage
	if redisClient != nil {
		sessionStorage = session.NewRedisStorage(redisClient, log, cfg.Session.TTL)
	} else {
		sessionStorage = session.NewMemoryStorage()
	}
	sessions := session.NewMachine(sessionStorage, log, redisClient)
	cleaner := session.NewCleaner(sessionStorage, log, cfg.Session.TTL, cfg.Session.CleanupInterval)

	var deduper idempotency.Deduper
	if redisClient != nil {
		deduper = idempotency.NewRedisDeduper(redisClient, idempotency.DefaultTTL, log)
	} else {
		deduper = idempotency.NewMemoryDeduper(idempotency.DefaultTTL)
	}

	var rateLimitMw *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		var limiter ratelimit.Limiter
		if redisClient != nil {
			limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
		} else {
			memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
			go memLimiter.Run(ctx, limiterSweepInterval)
			limiter = memLimiter
		}
		rateLimitMw = middleware.NewRateLimitMiddleware(limiter, log)
	}

	authz := auth.New(cfg.Admin.IDs)

	tb, err := bot.NewTelebot(cfg.Bot, cfg.Server.Port)
	if err != nil {
		return err
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	notifier := notify.NewTelegram(tb, authz.AdminIDs(), log)
	eng := engine.New(users, keys, requests, sessions, authz, notifier, cfg.Premium, log)
	b := bot.New(tb, *cfg, eng, sessions, deduper, rateLimitMw, log)

	collector := metrics.NewSessionCollector(sessions, sessionGaugeInterval)
	go collector.Run(ctx)

	if cfg.Jobs.Enabled && redisClient != nil {
		shutdownJobs, err := startJobs(ctx, cfg, users, cleaner, log)
		if err != nil {
			return err
		}
		defer shutdownJobs()
	} else {
		// Without the queue the in-process ticker keeps sessions bounded.
		go cleaner.Run(ctx)
	}

	srv := graceful.NewServer(log, opsServer(cfg.Server.Port, checker), cfg.Server.ShutdownTimeout)
	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.ListenAndServe(ctx)
	}()

	go b.Start()
	defer b.Stop()

	select {
	case err := <-srvErr:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	return <-srvErr
}

// buildStores selects the persistence backend. The returned *sql.DB is nil
// for the memory driver.
func buildStores(
	ctx context.Context,
	cfg *config.Config,
	redisClient *goredis.Client,
	log *slog.Logger,
) (registry.UserRegistry, keystore.KeyStore, ledger.Ledger, *sql.DB, error) {
	if cfg.Storage.Driver != "postgres" {
		return registry.NewMemoryRegistry(), keystore.NewMemoryKeyStore(), ledger.NewMemoryLedger(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.Storage.Postgres.DSN())
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, nil, err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		_ = db.Close()
		return nil, nil, nil, nil, err
	}

	var users registry.UserRegistry = registry.NewPostgresRegistry(db, log)
	if redisClient != nil {
		users = registry.NewCachedRegistry(users, redisClient, log)
	}

	return users, keystore.NewPostgresKeyStore(db, log), ledger.NewPostgresLedger(db, log), db, nil
}

// startJobs runs the asynq scheduler and worker for the maintenance sweeps
// and enqueues a catch-up premium sweep so records that expired while the bot
// was down are downgraded without waiting for the next scheduled run. The
// returned function shuts everything down.
func startJobs(
	ctx context.Context,
	cfg *config.Config,
	users registry.UserRegistry,
	cleaner *session.Cleaner,
	log *slog.Logger,
) (func(), error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	scheduler := jobs.NewScheduler(redisOpt, cfg.Jobs, cfg.Session.TTL, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return nil, err
	}
	scheduler.Run()

	worker := jobs.NewWorker(redisOpt, log)
	worker.RegisterHandler(jobs.TaskTypePremiumSweep, jobhandlers.NewPremiumSweepHandler(users, log))
	worker.RegisterHandler(jobs.TaskTypeSessionSweep, jobhandlers.NewSessionSweepHandler(cleaner, log))

	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()

	manager := jobs.NewManager(redisOpt, log)

	// A missed catch-up sweep is not fatal; the scheduled run covers it.
	if task, err := jobs.NewPremiumSweepTask(time.Now().UTC()); err != nil {
		log.Warn("failed to build startup premium sweep", slog.Any("error", err))
	} else if _, err := manager.Enqueue(ctx, task); err != nil {
		log.Warn("failed to enqueue startup premium sweep", slog.Any("error", err))
	}

	return func() {
		scheduler.Shutdown()
		worker.Shutdown()
		if err := manager.Close(); err != nil {
			log.Error("error closing jobs manager", slog.Any("error", err))
		}
	}, nil
}

// opsServer serves Prometheus metrics and the health endpoint.
func opsServer(port string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if !checker.Healthy(r.Context()) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(results)
	})

	return &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
