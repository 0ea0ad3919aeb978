// Package bootstrap assembles the service from configuration for the HTTP
// server and the Lambda entrypoint.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/ammiranda/taxonomy_service/cache"
	"github.com/ammiranda/taxonomy_service/config"
	"github.com/ammiranda/taxonomy_service/internal/logging"
	"github.com/ammiranda/taxonomy_service/internal/metrics"
	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/service"

	"go.uber.org/zap"
)

// App holds the wired dependencies
type App struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Repo    repository.Repository
	Metrics *metrics.Collector
	Service *service.TaxonomyService

	stopReload context.CancelFunc
}

// New reads configuration, opens the repository, loads the taxonomy and
// sets up the payload cache
func New(ctx context.Context) (*App, error) {
	provider, err := config.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create config provider: %w", err)
	}
	appCfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(appCfg.Environment, appCfg.LogLevel)
	if err != nil {
		return nil, err
	}
	cache.SetLogger(logger.Named("cache"))

	repo, err := repository.Open(ctx, provider, appCfg)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	store, err := service.LoadStore(ctx, repo, appCfg.MaxDepth)
	if err != nil {
		repo.Cleanup(ctx)
		logger.Sync()
		return nil, err
	}

	if err := cache.Initialize(); err != nil {
		repo.Cleanup(ctx)
		logger.Sync()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	cache.SetCacheTTL(appCfg.CacheTTL)

	collector := metrics.NewCollector("taxonomy")
	svc := service.New(store, repo,
		service.WithCache(cache.Current()),
		service.WithLogger(logger.Named("taxonomy")),
		service.WithMetrics(collector),
	)

	logger.Info("taxonomy loaded",
		zap.String("environment", string(appCfg.Environment)),
		zap.String("db_driver", appCfg.DBDriver),
		zap.Int("categories", store.Len()),
		zap.Int("max_depth", appCfg.MaxDepth))

	if appCfg.CacheWarm {
		if err := svc.Warm(ctx); err != nil {
			logger.Warn("cache warm-up failed", zap.Error(err))
		}
	}

	app := &App{
		Config:  appCfg,
		Logger:  logger,
		Repo:    repo,
		Metrics: collector,
		Service: svc,
	}
	if appCfg.ReloadInterval > 0 {
		reloadCtx, cancel := context.WithCancel(context.Background())
		app.stopReload = cancel
		go svc.RunReloader(reloadCtx, appCfg.ReloadInterval)
	}
	return app, nil
}

// Close stops background reloads, releases the cache and repository and
// flushes the logger
func (a *App) Close(ctx context.Context) {
	if a.stopReload != nil {
		a.stopReload()
	}
	if err := cache.Close(); err != nil {
		a.Logger.Warn("cache close failed", zap.Error(err))
	}
	if err := a.Repo.Cleanup(ctx); err != nil {
		a.Logger.Warn("repository cleanup failed", zap.Error(err))
	}
	a.Logger.Sync()
}
