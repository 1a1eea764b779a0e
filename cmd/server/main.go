package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"campus-support/backend/pkg/config"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/secrets"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Version is stamped at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	os.Exit(execute(newRootCmd()))
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "campus-support",
		Short:        "Campus support backend: FAQ assistant, chat and tickets",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// bootstrap loads configuration, installs the global logger and resolves
// secrets from Vault when enabled
func bootstrap(ctx context.Context) (*config.Config, *logger.Logger, error) {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = !strings.EqualFold(cfg.Logging.Format, "text")
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	if cfg.Vault.Enabled {
		vault, err := secrets.NewVaultManager(secrets.VaultConfigFromEnv(true), log)
		if err != nil {
			return nil, nil, fmt.Errorf("init vault: %w", err)
		}
		secrets.ResolveConfig(ctx, vault, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := config.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.TestConnection(db); err != nil {
		return nil, err
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
