// Command seed loads the master genres and sample documents into the
// configured database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ammiranda/taxonomy_service/cache"
	"github.com/ammiranda/taxonomy_service/config"
	"github.com/ammiranda/taxonomy_service/internal/logging"
	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/seed"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	force       bool
	catalogFile string
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load master genres and sample documents",
	Long: `Loads the genre hierarchy and sample documents into the database selected
by DB_DRIVER. The catalog is validated before anything is written. An already
populated database is left alone unless --force (or FORCE_REINIT=true) is given.`,
	SilenceUsage: true,
	RunE:         runSeed,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the most recent schema migration",
	Long: `Reverts the latest migration of the database selected by DB_DRIVER. The
schema is migrated forward again the next time the service or seed starts.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.Flags().BoolVar(&force, "force", envBool("FORCE_REINIT"),
		"delete existing genres and documents before seeding")
	rootCmd.Flags().StringVarP(&catalogFile, "file", "f", "",
		"YAML catalog to load instead of the built-in master data")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := config.NewProvider()
	if err != nil {
		return fmt.Errorf("failed to create config provider: %w", err)
	}
	appCfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		return err
	}

	logger, err := logging.New(appCfg.Environment, appCfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	repo, err := repository.Open(ctx, provider, appCfg)
	if err != nil {
		return err
	}
	defer repo.Cleanup(ctx)

	res, err := seed.Run(ctx, repo, catalog, seed.Options{
		Force:    force,
		MaxDepth: appCfg.MaxDepth,
	}, logger)
	if errors.Is(err, seed.ErrCatalogNotEmpty) {
		fmt.Fprintln(cmd.OutOrStdout(), "genres already exist; rerun with --force to reinitialize")
		return nil
	}
	if err != nil {
		logger.Error("seed failed", zap.Error(err))
		return err
	}

	// a shared Redis or DynamoDB cache still holds payloads of the old catalog
	cache.SetLogger(logger.Named("cache"))
	if err := cache.Initialize(); err != nil {
		logger.Warn("cache unavailable, skipping invalidation", zap.Error(err))
	} else {
		cache.InvalidateCache()
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close cache", zap.Error(err))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d genres and %d documents\n", res.Genres, res.Documents)
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, err := config.NewProvider()
	if err != nil {
		return fmt.Errorf("failed to create config provider: %w", err)
	}
	appCfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		return err
	}

	logger, err := logging.New(appCfg.Environment, appCfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	repo, err := repository.Open(ctx, provider, appCfg)
	if err != nil {
		return err
	}
	defer repo.Cleanup(ctx)

	rollbacker, ok := repo.(repository.SchemaRollbacker)
	if !ok {
		return fmt.Errorf("driver %q has no schema to roll back", appCfg.DBDriver)
	}
	if err := rollbacker.RollbackSchema(ctx); err != nil {
		logger.Error("rollback failed", zap.Error(err))
		return err
	}

	logger.Info("schema migration rolled back", zap.String("driver", appCfg.DBDriver))
	fmt.Fprintln(cmd.OutOrStdout(), "rolled back the latest migration")
	return nil
}

func loadCatalog() (*seed.Catalog, error) {
	if catalogFile == "" {
		return seed.Default()
	}
	return seed.LoadFile(catalogFile)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
