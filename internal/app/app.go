// Package app assembles the recommender and its collaborators from
// configuration. The HTTP server and the MCP server share this wiring.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/audit"
	"github.com/specialist-recommender/internal/cache"
	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/model"
	"github.com/specialist-recommender/internal/retrain"
	"github.com/specialist-recommender/internal/service"
	"github.com/specialist-recommender/internal/training"
)

// App holds the assembled components
type App struct {
	Config      *domain.Config
	Logger      *logrus.Logger
	Store       *model.Store
	Provider    *model.Provider
	Recommender *service.RecommenderService
	Audit       audit.Store
	Cache       *cache.Tiered
	Retrainer   *retrain.Retrainer

	closers []io.Closer
}

// Build wires every component named in cfg. The model is loaded eagerly only
// when configured; a failed eager load is logged and retried on first use.
func Build(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := audit.Open(ctx, cfg.Audit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}
	a.Audit = store
	a.closers = append(a.closers, store)

	a.Store = model.NewStore(cfg.Model.Dir, cfg.Model.ArtifactNames())
	a.Provider = model.NewProvider(a.Store, model.WithProviderLogger(logger))
	if cfg.Model.EagerLoad {
		if b, err := a.Provider.Model(ctx); err != nil {
			logger.WithError(err).Warn("Model not loaded at startup")
		} else {
			logger.WithField("version", b.Version).Info("Model loaded")
		}
	}

	opts := []service.RecommenderOption{service.WithLogger(logger)}
	if cfg.Cache.Enabled {
		tiered, err := a.buildCache(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Cache = tiered
		opts = append(opts, service.WithCache(tiered))
	}

	a.Recommender, err = service.NewRecommenderService(a.Provider, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create recommender: %w", err)
	}

	if cfg.Retrain.DatasetPath != "" || cfg.Retrain.Mode == retrain.ModeCommand {
		trainer := training.NewTrainer(a.Store, training.OptionsFromConfig(cfg.Retrain), logger)
		a.Retrainer, err = retrain.NewRetrainer(cfg.Retrain, trainer, a, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create retrainer: %w", err)
		}
	} else {
		logger.Info("No retrain dataset configured; retraining disabled")
	}

	return a, nil
}

func (a *App) buildCache(ctx context.Context) (*cache.Tiered, error) {
	cfg := a.Config.Cache
	memory, err := cache.NewMemoryCache(cfg.MaxItems, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}
	if cfg.RedisURL == "" {
		return cache.NewTiered(memory, nil, a.Logger), nil
	}

	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		URL:           cfg.RedisURL,
		TTL:           cfg.TTL,
		Timeout:       cfg.RedisTimeout,
		BreakerWindow: cfg.BreakerWindow,
		BreakerOpen:   cfg.BreakerOpen,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache: %w", err)
	}
	a.closers = append(a.closers, redisCache)
	if err := redisCache.Ping(ctx); err != nil {
		a.Logger.WithError(err).Warn("Redis unavailable at startup; using in-memory cache until it recovers")
	}
	return cache.NewTiered(memory, redisCache, a.Logger), nil
}

// Reload swaps in the newest published model and drops cached predictions
// made by the previous one
func (a *App) Reload(ctx context.Context) (*model.Bundle, error) {
	b, err := a.Provider.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if a.Cache != nil {
		a.Cache.Purge()
	}
	return b, nil
}

// Close releases the audit store and cache connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close component")
		}
	}
	a.closers = nil
}
