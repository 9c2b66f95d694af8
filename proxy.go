package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/telemetry"
)

func newProxyCommand() *cobra.Command {
	var (
		origin string
		port   string
	)

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run only the offline cache proxy in front of an existing origin",
		Long: `Runs the front proxy alone. The manifest is pre-fetched from --origin,
stale cache generations are deleted, and GET requests are then answered
from the cache first and the network second.

Example:

	wildlife-atlas proxy --origin https://atlas.example.org --port 8081
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(func(c *config.Config) {
				if origin != "" {
					c.ProxyOrigin = origin
				}
				if port != "" {
					c.ProxyPort = port
				}
			})
			if err != nil {
				return err
			}
			return runProxy(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "origin base URL (defaults to PROXY_ORIGIN)")
	cmd.Flags().StringVar(&port, "port", "", "listen port (defaults to PROXY_PORT)")
	return cmd
}

func runProxy(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	originURL, err := url.Parse(cfg.ProxyOrigin)
	if err != nil || !originURL.IsAbs() {
		return fmt.Errorf("invalid origin %q", cfg.ProxyOrigin)
	}

	shutdownTracing, err := telemetry.Setup(ctx, "wildlife-atlas-proxy", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	storage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open cache storage: %w", err)
	}
	defer storage.Close()

	controller := cacheproxy.NewController(storage, cacheproxy.NewNetworkFetcher(&http.Client{Timeout: feedTimeout}))
	if _, err := controller.Register(ctx, cacheOptions(cfg, originURL.String())); err != nil {
		return fmt.Errorf("register cache %s: %w", cfg.CacheVersion, err)
	}

	srv := &http.Server{Addr: ":" + cfg.ProxyPort, Handler: newProxyRouter(controller, originURL)}
	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	log.Printf("🛡️ Offline proxy for %s on port %s", originURL, cfg.ProxyPort)

	return wait(ctx, errs, srv)
}
