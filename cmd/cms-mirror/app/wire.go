package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/custodia-labs/cms-mirror/internal/adapters/driven/auth"
	"github.com/custodia-labs/cms-mirror/internal/adapters/driven/cms"
	"github.com/custodia-labs/cms-mirror/internal/adapters/driven/postgres"
	"github.com/custodia-labs/cms-mirror/internal/adapters/driven/redis"
	"github.com/custodia-labs/cms-mirror/internal/config"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driven"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
	"github.com/custodia-labs/cms-mirror/internal/core/services"
	"github.com/custodia-labs/cms-mirror/internal/telemetry"
)

// stack is the wired application shared by every long-running command
type stack struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *postgres.DB
	redis *goredis.Client
	lock  driven.DistributedLock

	registry *prometheus.Registry
	metrics  *telemetry.SyncMetrics

	orchestrator *services.SyncOrchestrator
	content      driving.ContentService
	auth         driving.AuthService
}

// loadConfig resolves and validates configuration and installs the logger
func loadConfig(v *viper.Viper, path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// connectDB opens the pool described by cfg
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*postgres.DB, error) {
	return postgres.Connect(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
}

// bootstrap connects every backend and builds the services
func bootstrap(ctx context.Context, v *viper.Viper, path string) (*stack, error) {
	cfg, logger, err := loadConfig(v, path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st := &stack{cfg: cfg, logger: logger}

	// ===== PostgreSQL =====
	logger.Info("connecting to postgres")
	st.db, err = connectDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := st.db.MigrateUp(); err != nil {
		st.Close()
		return nil, err
	}

	// ===== Run lock (Redis if available, otherwise PostgreSQL advisory lock) =====
	if cfg.RedisURL != "" {
		logger.Info("connecting to redis")
		st.redis, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.lock = redis.NewLock(st.redis)
		logger.Info("using redis sync lock")
	} else {
		st.lock = postgres.NewAdvisoryLock(st.db)
		logger.Info("using postgres advisory sync lock")
	}

	// ===== Metrics =====
	st.registry = telemetry.NewRegistry()
	st.metrics, err = telemetry.NewSyncMetrics(st.registry)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	if err := telemetry.BuildInfo(st.registry, Version, Commit); err != nil {
		st.Close()
		return nil, fmt.Errorf("register build info: %w", err)
	}

	// ===== Upstream client =====
	source, err := cms.NewClient(cms.Config{
		BaseURL:     cfg.CMS.BaseURL,
		Username:    cfg.CMS.Username,
		Password:    cfg.CMS.Password,
		Timeout:     cfg.CMS.Timeout,
		MaxAttempts: cfg.CMS.MaxAttempts,
		UserAgent:   "cms-mirror/" + Version,
		Logger:      logger.With("component", "cms"),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	// ===== Stores =====
	categories := postgres.NewCategoryStore(st.db)
	tags := postgres.NewTagStore(st.db)
	posts := postgres.NewPostStore(st.db)
	ledger := postgres.NewSyncStatusStore(st.db)

	// ===== Services =====
	syncService := services.NewSyncService(services.SyncServiceConfig{
		Source:     source,
		Categories: categories,
		Tags:       tags,
		Posts:      posts,
		Media:      postgres.NewMediaStore(st.db),
		Authors:    postgres.NewAuthorStore(st.db),
		Ledger:     ledger,
		Metrics:    st.metrics,
		PageSize:   cfg.CMS.PageSize,
		Logger:     logger,
	})
	st.orchestrator = services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
		Sync:       syncService,
		Policy:     cfg.Sync.Policy,
		RunTimeout: cfg.Sync.RunTimeout,
		Metrics:    st.metrics,
		Logger:     logger,
	})
	st.content = services.NewContentService(posts, categories, tags, ledger)
	st.auth = services.NewAuthService(services.AuthServiceConfig{
		AdminUser:         cfg.Auth.AdminUser,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		AuthAdapter:       auth.NewAdapter(cfg.Auth.JWTSecret),
	})

	return st, nil
}

// newScheduler builds a guarded scheduler; a nil trigger allows on-demand runs only
func (st *stack) newScheduler(trigger services.Trigger) *services.Scheduler {
	runOnStart := st.cfg.Sync.RunOnStart
	return services.NewScheduler(services.SchedulerConfig{
		Orchestrator: st.orchestrator,
		Trigger:      trigger,
		Lock:         st.lock,
		Metrics:      st.metrics,
		Logger:       st.logger,
		RunOnStart:   &runOnStart,
		LockRequired: st.cfg.Sync.LockRequired,
	})
}

// Close releases backend connections
func (st *stack) Close() {
	if st.redis != nil {
		if err := st.redis.Close(); err != nil {
			st.logger.Warn("failed to close redis", "error", err)
		}
	}
	if st.db != nil {
		if err := st.db.Close(); err != nil {
			st.logger.Warn("failed to close postgres", "error", err)
		}
	}
}
