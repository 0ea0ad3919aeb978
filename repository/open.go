package repository

import (
	"context"
	"fmt"

	"github.com/ammiranda/taxonomy_service/config"
)

// Open builds the repository selected by appCfg.DBDriver and initializes it
func Open(ctx context.Context, provider config.Provider, appCfg *config.AppConfig) (Repository, error) {
	var repo Repository
	switch appCfg.DBDriver {
	case config.DriverSQLite:
		repo = NewSQLiteRepository(appCfg.SQLitePath)
	case config.DriverPostgres:
		pg, err := NewPostgresRepository(ctx, provider)
		if err != nil {
			return nil, err
		}
		repo = pg
	default:
		return nil, fmt.Errorf("unsupported database driver %q", appCfg.DBDriver)
	}

	if err := repo.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", appCfg.DBDriver, err)
	}
	return repo, nil
}
