package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"shopfront/webshop/internal/app"
	"shopfront/webshop/internal/config"
	"shopfront/webshop/internal/logging"
)

func NewServeCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrateFirst bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.Setup("webshop", version, cfg.LogFormat, os.Stderr)

	if migrateFirst {
		if cfg.DatabaseURL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("--migrate requires DATABASE_URL")
		}
		if err := withMigrator(cfg.DatabaseURL, func(m migrator) error { return m.Up() }); err != nil {
			logging.LogError(ctx, logger, "apply migrations", err)
			return err
		}
		logger.Info("migrations applied")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logging.LogError(ctx, logger, "create app", err)
		return err
	}
	if err := a.Run(ctx); err != nil {
		logging.LogError(ctx, logger, "run app", err)
		return err
	}
	return nil
}
