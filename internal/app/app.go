// Package app wires configuration into the running components: the rating
// backend, the feedback engine, the dish catalog and the chat service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/bitebuzz/internal/chat"
	"github.com/Clark-Hu/bitebuzz/internal/config"
	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
	"github.com/Clark-Hu/bitebuzz/internal/ratings"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/httpapi"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/memory"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/postgres"
	"github.com/Clark-Hu/bitebuzz/internal/ratings/redisbackend"
	"github.com/Clark-Hu/bitebuzz/internal/store"
)

// App holds the components built from one Config.
type App struct {
	Config  config.Config
	Backend ratings.Backend
	Engine  *feedback.Engine
	Catalog *menu.Catalog
	Chat    *chat.Service

	closeBackend func() error
}

// New builds every component. The returned App must be closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := menu.NewCatalog(cfg.MenuFile, logger)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}

	backend, closeBackend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := chat.NewProvider(ctx, chat.ProviderConfig{
		Provider:      cfg.ChatProvider,
		URL:           cfg.ChatURL,
		Timeout:       cfg.ChatTimeout(),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		BedrockRegion: cfg.BedrockRegion,
		BedrockModel:  cfg.BedrockModel,
	}, logger)
	if err != nil {
		_ = closeBackend()
		return nil, fmt.Errorf("init chat provider: %w", err)
	}

	engine := feedback.New(backend, feedback.Options{Timeout: cfg.RatingsTimeout(), Logger: logger})

	return &App{
		Config:       cfg,
		Backend:      backend,
		Engine:       engine,
		Catalog:      catalog,
		Chat:         chat.NewService(provider, cfg.ChatTimeout(), logger),
		closeBackend: closeBackend,
	}, nil
}

// Close stops the engine, then releases the backend.
func (a *App) Close() error {
	return errors.Join(a.Engine.Close(), a.closeBackend())
}

// OpenBackend builds the rating backend named by cfg.RatingsBackend. "none"
// yields a nil backend, which puts the engine in local-only demo mode. The
// returned close func is never nil.
func OpenBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (ratings.Backend, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.RatingsBackend {
	case config.BackendNone:
		logger.Warn("rating backend not configured, leaderboard runs on demo data")
		return nil, noop, nil

	case config.BackendMemory, "":
		logger.Info("using in-memory rating backend")
		return memory.New(), noop, nil

	case config.BackendPostgres:
		st, err := OpenStore(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, noop, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("using postgres rating backend")
		return postgres.New(st, logger), func() error { st.Close(); return nil }, nil

	case config.BackendRedis:
		b := redisbackend.New(redisbackend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
			Logger:   logger,
		})
		pingCtx, cancel := context.WithTimeout(ctx, cfg.RatingsTimeout())
		defer cancel()
		if err := b.HealthCheck(pingCtx); err != nil {
			// The engine degrades to demo data per request; a cold redis is not fatal.
			logger.Warn("redis not reachable at startup", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		logger.Info("using redis rating backend", zap.String("addr", cfg.RedisAddr))
		return b, b.Close, nil

	case config.BackendHTTP:
		c, err := httpapi.NewClient(cfg.RatingsURL, cfg.RatingsAPIKey, cfg.RatingsTimeout(), logger)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("using remote rating service", zap.String("url", cfg.RatingsURL))
		return c, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown rating backend %q", cfg.RatingsBackend)
	}
}

// OpenStore connects to postgres with the pool settings from cfg.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*store.Store, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return st, nil
}
