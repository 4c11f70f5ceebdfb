// Package app wires configuration, storage backends and the sequence service
// for the server, worker and CLI binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"medseq/internal/config"
	coreseq "medseq/internal/core/sequence"
	"medseq/internal/domain/auth"
	"medseq/internal/domain/sequence"
	"medseq/internal/infrastructure/metrics"
	"medseq/internal/infrastructure/storage/memory"
	"medseq/internal/infrastructure/storage/postgres"
	redisstore "medseq/internal/infrastructure/storage/redis"
	"medseq/pkg/logger"
)

// App holds the wired dependencies of a process.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Service *sequence.Service
	Metrics *metrics.Collector
	JWT     *auth.JWTService

	// HealthChecks are the dependencies pinged by readiness checks.
	HealthChecks map[string]coreseq.Pinger

	// Pool and TxManager are nil for the memory driver.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	registry *prometheus.Registry
	closers  []func()
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDev(),
		File: logger.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	})
}

// New connects to the configured backends and builds the service.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Config:       cfg,
		Log:          log,
		Metrics:      metrics.New(reg, counterTemplates(cfg.Mappings)...),
		JWT:          auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret, cfg.JWTIssuer)),
		HealthChecks: make(map[string]coreseq.Pinger),
		registry:     reg,
	}

	store, scanner, err := a.openBackends(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	svcCfg := sequence.DefaultConfig()
	svcCfg.Retry = sequence.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay}
	svcCfg.Mappings = cfg.Mappings
	svcCfg.Metrics = a.Metrics
	a.Service = sequence.NewService(store, scanner, svcCfg)

	log.Infow("sequence service initialized",
		"store", cfg.StoreDriver,
		"mappings", len(cfg.Mappings),
		"retry_max_attempts", cfg.RetryMaxAttempts,
		"retry_base_delay", cfg.RetryBaseDelay,
	)
	return a, nil
}

func (a *App) openBackends(ctx context.Context) (coreseq.Store, coreseq.Scanner, error) {
	cfg := a.Config

	if cfg.StoreDriver == config.DriverMemory {
		store := memory.NewCounterStore()
		a.HealthChecks["counter_store"] = store
		a.Log.Warn("using in-memory counter store; counters are lost on exit")
		return store, memory.NewCollections(), nil
	}

	// Records always live in PostgreSQL, whichever backend holds the counters.
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)
	if err := postgres.RegisterPoolMetrics(a.registry, pool.Stats); err != nil {
		return nil, nil, err
	}
	a.TxManager = postgres.NewTxManager(pool)
	a.HealthChecks["database"] = a.TxManager
	a.Log.Info("database connection established")

	scanner := postgres.NewRecordScanner(a.TxManager, cfg.ScanTimeout)

	if cfg.StoreDriver == config.DriverRedis {
		rc, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		store := redisstore.NewCounterStore(rc, cfg.RedisKeyPrefix)
		a.HealthChecks["counter_store"] = store
		return store, scanner, nil
	}

	return postgres.NewCounterStore(a.TxManager), scanner, nil
}

// Migrate creates the counter table. It is a no-op outside the postgres driver.
func (a *App) Migrate(ctx context.Context) error {
	if a.Config.StoreDriver != config.DriverPostgres {
		a.Log.Infow("migration skipped", "store", a.Config.StoreDriver)
		return nil
	}
	return postgres.Migrate(ctx, a.TxManager)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func counterTemplates(mappings []coreseq.Mapping) []string {
	out := make([]string, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, m.CounterName)
	}
	return out
}
