package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/config"
	"github.com/Strob0t/settingsadmin/internal/logger"
)

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "settingsadmin",
		Short: "Manage schemaless JSON settings records",
		Long: `settingsadmin stores schemaless JSON settings records in PostgreSQL and
serves an admin page for browsing, creating, editing and deleting them.

Configuration is read from settingsadmin.yaml (or the file given with
--config), then .env, then environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile,
		"config file (.yaml or .toml)")

	cmd.AddCommand(
		newAPICmd(opts),
		newUICmd(opts),
		newMigrateCmd(opts),
		newSettingsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// runtime is the ambient setup shared by the long-running commands.
type runtime struct {
	cfg *config.Config
	log *slog.Logger
}

// startRuntime loads config, installs the default logger and telemetry.
// The returned cleanup flushes both.
func (o *rootOptions) startRuntime(ctx context.Context, component string) (*runtime, func(), error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, closer := logger.New(cfg.Logging)
	log = log.With("component", component)
	slog.SetDefault(log)

	shutdownOTel, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("otel: %w", err)
	}

	cleanup := func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn("otel shutdown", "error", err)
		}
		closer.Close()
	}

	log.Info("config loaded",
		"log_level", cfg.Logging.Level,
		"otel_endpoint", cfg.OTel.Endpoint,
	)
	return &runtime{cfg: cfg, log: log}, cleanup, nil
}
