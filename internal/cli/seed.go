package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voyageur-express/internal/config"
	"voyageur-express/internal/dataset"
	"voyageur-express/internal/infra/postgres"
)

// NewSeedCmd stores the built-in country dataset in Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the built-in country dataset into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			if version == "" {
				version = datasetVersion(cfg)
			}
			return runSeed(cmd.Context(), cfg, log, version)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "dataset version to store (defaults to config)")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, log *zap.Logger, version string) error {
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	countries := dataset.Countries()
	if err := dataset.Validate(countries); err != nil {
		return err
	}

	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()
	if err := postgres.SeedDataset(ctx, db, version, countries); err != nil {
		return err
	}
	log.Info("dataset seeded", zap.String("version", version), zap.Int("countries", len(countries)))
	return nil
}

func datasetVersion(cfg config.Config) string {
	if cfg.Dataset.Version != "" {
		return cfg.Dataset.Version
	}
	return dataset.Version
}

func seedIfMissing(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db := postgres.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	version := datasetVersion(cfg)
	exists, err := db.NewSelect().Table("country_datasets").Where("version = ?", version).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check dataset %s: %w", version, err)
	}
	if exists || version != dataset.Version {
		return nil
	}
	if err := postgres.SeedDataset(ctx, db, version, dataset.Countries()); err != nil {
		return err
	}
	log.Info("seeded missing built-in dataset", zap.String("version", version))
	return nil
}
