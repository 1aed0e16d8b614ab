package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/fish-feeder/internal/config"
	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
	"github.com/aliskhannn/fish-feeder/internal/infra/postgres"
	"github.com/aliskhannn/fish-feeder/internal/infra/sqlite"
	"github.com/aliskhannn/fish-feeder/internal/logger"
	"github.com/aliskhannn/fish-feeder/internal/repository"
	"github.com/aliskhannn/fish-feeder/internal/service"
	"github.com/aliskhannn/fish-feeder/internal/store"
)

// app holds what every command needs: config, logger and the opened store.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	kv       store.KV
	repo     *repository.ScheduleRepository
	location *time.Location
	closers  []func()
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	loc, err := entities.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		return nil, fmt.Errorf("monitor timezone: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		location: loc,
	}

	kv, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	a.kv = kv
	a.repo = repository.NewScheduleRepository(kv)
	a.closers = append(a.closers, closeStore)

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *app) scheduleService() *service.ScheduleService {
	return service.NewScheduleService(a.repo, service.RealClock{}, a.location, a.logger)
}

// warnVolatile tells the user a one-shot command is writing to a store that
// dies with the process.
func (a *app) warnVolatile() {
	if a.cfg.Store.Backend == config.BackendMemory {
		a.logger.Warn("memory store selected, changes are lost when the command exits",
			zap.String("hint", "set store.backend to sqlite or postgres"),
		)
	}
}

// openStore opens the configured real-time store backend.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.KV, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}

		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}

		kv := postgres.NewKVStore(pool, log)
		if err := kv.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}

		log.Info("postgres store opened")
		return kv, pool.Close, nil

	case config.BackendSQLite:
		path := cfg.Store.SQLitePath
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}

		kv, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}

		log.Info("sqlite store opened", zap.String("path", path))
		return kv, func() {
			if err := kv.Close(); err != nil {
				log.Warn("failed to close sqlite store", zap.Error(err))
			}
		}, nil

	default:
		log.Info("memory store opened")
		return store.NewMemoryStore(), func() {}, nil
	}
}
