package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Strob0t/settingsadmin/internal/adapter/nats"
	"github.com/Strob0t/settingsadmin/internal/adapter/natskv"
	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/adapter/redis"
	"github.com/Strob0t/settingsadmin/internal/adapter/ristretto"
	"github.com/Strob0t/settingsadmin/internal/adapter/settingsapi"
	"github.com/Strob0t/settingsadmin/internal/adapter/tiered"
	"github.com/Strob0t/settingsadmin/internal/adapter/web"
	"github.com/Strob0t/settingsadmin/internal/adapter/ws"
	"github.com/Strob0t/settingsadmin/internal/config"
	"github.com/Strob0t/settingsadmin/internal/port/cache"
	"github.com/Strob0t/settingsadmin/internal/query"
	"github.com/Strob0t/settingsadmin/internal/resilience"
)

func newUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Run the settings admin page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, cleanup, err := opts.startRuntime(ctx, "ui")
			if err != nil {
				return err
			}
			defer cleanup()
			return runUI(ctx, rt.cfg, rt.log)
		},
	}
}

func runUI(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// --- Infrastructure ---

	var queue *nats.Queue
	if cfg.NATS.URL != "" {
		q, err := nats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Drain() }()
		queue = q
		log.Info("nats connected", "url", cfg.NATS.URL)
	}

	l1, err := ristretto.NewMB(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	var store cache.Cache = l1
	switch cfg.Cache.L2Backend {
	case "nats":
		kv, err := natskv.Open(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return fmt.Errorf("nats kv cache: %w", err)
		}
		store = tiered.New(l1, kv, cfg.UI.StaleTime)
	case "redis":
		rc, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis cache: %w", err)
		}
		defer func() { _ = rc.Close() }()
		store = tiered.New(l1, rc, cfg.UI.StaleTime)
	}
	log.Info("query cache ready", "l1_mb", cfg.Cache.L1MaxSizeMB, "l2", cfg.Cache.L2Backend)

	// --- Query client ---

	metrics, err := otel.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	api := settingsapi.New(cfg.UI.APIURL)
	queries := query.NewClient(api, store, cfg.UI.StaleTime)
	queries.SetMetrics(metrics)
	if err := queries.LoadGeneration(ctx, query.Namespace); err != nil {
		log.Warn("shared query generation unavailable", "error", err)
	}

	if queue != nil {
		breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
		breaker.OnStateChange(func(from, to resilience.State) {
			log.Warn("invalidation publisher breaker", "from", from.String(), "to", to.String())
		})
		queries.SetQueue(queue, breaker)

		cancelSub, err := queries.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("invalidation subscriber: %w", err)
		}
		defer cancelSub()
	}

	// --- HTTP ---

	hub := ws.NewHub(log)
	web.ForwardInvalidations(ctx, queries, hub)

	page, err := web.NewPage(queries, cfg.UI.PageSize, log)
	if err != nil {
		return fmt.Errorf("page template: %w", err)
	}
	router := web.NewRouter(page, hub, cfg.Server.MaxBodyBytes, cfg.OTel.ServiceName, log)

	log.Info("admin page configured", "api_url", api.BaseURL(), "epoch", queries.Epoch())
	return serve(ctx, ":"+cfg.UI.Port, router, log)
}
