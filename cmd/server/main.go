package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redirect-server/internal/alert"
	"redirect-server/internal/audit"
	"redirect-server/internal/blacklist"
	"redirect-server/internal/clickhistory"
	"redirect-server/internal/config"
	httphandler "redirect-server/internal/handler/http"
	"redirect-server/internal/repository/postgres"
	rediscache "redirect-server/internal/repository/redis"
	"redirect-server/internal/service"
	"redirect-server/internal/statsd"
	"redirect-server/migrations"
	"redirect-server/pkg/logger"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsSink is the StatsD surface the wiring below hands out. Both
// the real UDP client and the no-op Discard satisfy it.
type metricsSink interface {
	Increment(bucket string)
	IncrementSampled(bucket string, rate float64)
	Timing(bucket string, d time.Duration)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	appLogger.Info("Starting redirect server",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
	)

	// Background context for the refresh and janitor loops. Cancelled
	// on shutdown so they stop with the listener.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// StatsD is fire-and-forget over UDP. A dial failure or a disabled
	// config degrades to the no-op sink rather than blocking startup.
	var sink metricsSink = statsd.Discard{}
	if cfg.StatsD.Enabled {
		client, err := statsd.New(cfg.StatsD.Host, cfg.StatsD.Port)
		if err != nil {
			appLogger.Warn("StatsD unavailable, counters discarded", "error", err)
		} else {
			defer client.Close()
			sink = client
		}
	}

	mailer := alert.NewMailer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.Recipients,
		cfg.SMTP.Enabled,
		sink,
		appLogger,
	)

	// The pool is created lazily: a dead database at boot must not keep
	// the server from answering heartbeats, so a failed ping is alerted
	// and served through (every lookup will fail until it recovers).
	db, err := postgres.InitDB(
		ctx,
		cfg.Database.DatabaseDSN(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		appLogger.Error("Invalid database configuration", "error", err)
		log.Fatalf("Database configuration failed: %v", err)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(pingCtx); err != nil {
		appLogger.Error("Database unreachable at startup, continuing degraded", "error", err)
		sink.Increment("RedirectServer.Requests.QueryFailed")
		_ = mailer.Notify(
			"Redirect Server encountered a critical or fatal exception",
			"Database unreachable at startup: "+err.Error(),
		)
	} else {
		appLogger.Info("Database connection established")
		if cfg.Database.Migrate {
			if err := runMigrations(cfg.Database.DatabaseDSN()); err != nil {
				appLogger.Error("Migrations failed", "error", err)
				log.Fatalf("Migrations failed: %v", err)
			}
			appLogger.Info("Migrations applied")
		}
	}
	pingCancel()

	redirectRepo := postgres.NewRedirectRepository(db)
	affiliateRepo := postgres.NewAffiliateRepository(db)
	blacklistRepo := postgres.NewBlacklistRepository(db)
	logRepo := postgres.NewLogRepository(db)

	var cache service.Cache
	if cfg.Redis.Enabled {
		redisClient, err := rediscache.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, serving without target cache", "error", err)
		} else {
			defer redisClient.Close()
			cache = rediscache.NewCache(redisClient, cfg.Redis.CacheTTL)
			appLogger.Info("Redis target cache enabled", "ttl", cfg.Redis.CacheTTL)
		}
	}

	recorder := audit.NewRecorder(logRepo, sink, mailer, appLogger, 0)

	// Blacklists load off the hot path. The store starts empty and
	// swaps in each successful snapshot; a failed initial load is
	// alerted and retried on the refresh interval.
	blacklists := blacklist.NewStore(blacklistRepo, appLogger)
	go func() {
		if err := blacklists.Load(ctx); err != nil {
			appLogger.Warn("Initial blacklist load failed, starting with empty set", "error", err)
			_ = mailer.Notify("Log Failure", "Initial blacklist load failed: "+err.Error())
		}
	}()
	go blacklists.Refresh(ctx, cfg.App.BlacklistRefresh)

	history := clickhistory.NewTracker(cfg.App.HistoryRetention)
	go history.Janitor(ctx, cfg.App.JanitorInterval)

	overrides := service.NewAffiliateResolver(affiliateRepo, sink, appLogger, cfg.App.OverrideCacheTTL)

	referrerRule, err := service.NewReferrerRule(cfg.App.BannedReferrers)
	if err != nil {
		appLogger.Error("Invalid banned-referrer pattern", "error", err)
		log.Fatalf("Invalid banned-referrer pattern: %v", err)
	}

	validator := service.NewValidator(
		blacklists,
		history,
		overrides,
		referrerRule,
		cfg.App.DuplicateWindow,
		cfg.App.MaxClicksPerDay,
	)
	redirects := service.NewRedirectService(redirectRepo, cache, appLogger)
	handler := httphandler.NewHandler(validator, redirects, recorder, sink, appLogger)

	router := chi.NewRouter()
	router.Use(httphandler.RecoveryMiddleware(appLogger))
	router.Use(httphandler.LoggingMiddleware(appLogger))
	router.Use(httphandler.RequestIDMiddleware)
	if cfg.App.EnableMetrics {
		router.Use(httphandler.MetricsMiddleware)
		router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", "error", err)
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited gracefully")
}

// runMigrations applies the embedded goose migrations through the pgx
// database/sql driver. The pgxpool used for serving cannot be handed
// to goose directly.
func runMigrations(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDB, ".")
}
