package main

import (
	"github.com/healthymarket/healthy-market/internal/config"
	"github.com/healthymarket/healthy-market/internal/repository"
	"github.com/healthymarket/healthy-market/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			log, err := logger.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := repository.RunMigrations(cfg.MongoURI, cfg.MongoDBName, dir); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("database", cfg.MongoDBName), zap.String("dir", dir))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}
