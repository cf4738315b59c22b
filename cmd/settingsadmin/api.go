package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sahttp "github.com/Strob0t/settingsadmin/internal/adapter/http"
	"github.com/Strob0t/settingsadmin/internal/adapter/postgres"
	"github.com/Strob0t/settingsadmin/internal/service"
)

func newAPICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the settings REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, cleanup, err := opts.startRuntime(ctx, "api")
			if err != nil {
				return err
			}
			defer cleanup()
			cfg, log := rt.cfg, rt.log

			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			log.Info("migrations applied")

			pool, err := postgres.NewPool(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pool.Close()
			log.Info("postgres connected", "max_conns", cfg.Postgres.MaxConns)

			handlers := &sahttp.Handlers{
				Settings:  service.NewSettingsService(postgres.NewStore(pool)),
				BodyLimit: cfg.Server.MaxBodyBytes,
			}
			router := sahttp.NewRouter(handlers, cfg.Server, cfg.OTel.ServiceName, log)

			return serve(ctx, ":"+cfg.Server.Port, router, log)
		},
	}
}
