package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/internal/cache"
)

func migrateCMD(cfgPath *string) *cobra.Command {
	var migDir string
	var direction string
	var steps int

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Run postgres cache migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			pg := cfg.Storage.Cache.Postgres
			if err := pg.Validate(); err != nil {
				return err
			}
			if migDir == "" {
				migDir = pg.Migrations
			}
			if err := cache.Migrate(migDir, pg.DSN(), direction, steps); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			logger.Info("migrations applied", zap.String("dir", migDir), zap.String("direction", direction), zap.Int("steps", steps))
			return nil
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "", "migrations source (default storage.cache.postgres.migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return migrate
}
