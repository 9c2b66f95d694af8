package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/cacheproxy"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalogue server and its offline cache proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(serveOptions(cmd)...)
			if err != nil {
				return err
			}
			withProxy, _ := cmd.Flags().GetBool("proxy")
			return runServe(cmd.Context(), cfg, withProxy)
		},
	}

	cmd.Flags().String("port", "8080", "port for the catalogue server")
	cmd.Flags().String("backend", config.BackendMemory, "cache backend: memory or sqlite")
	cmd.Flags().Bool("proxy", true, "also start the front proxy on PROXY_PORT")
	return cmd
}

// serveOptions turns the flags set on the command line into config options.
// They run before defaults are derived, so RENDER_EXTERNAL_URL and
// PROXY_ORIGIN from the environment still win over the port.
func serveOptions(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetString("port")
		opts = append(opts, func(c *config.Config) { c.Port = port })
	}
	if cmd.Flags().Changed("backend") {
		backend, _ := cmd.Flags().GetString("backend")
		opts = append(opts, func(c *config.Config) { c.CacheBackend = backend })
	}
	return opts
}

func runServe(ctx context.Context, cfg *config.Config, withProxy bool) error {
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "wildlife-atlas", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	storage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open cache storage: %w", err)
	}
	defer storage.Close()

	origin, err := url.Parse(cfg.ProxyOrigin)
	if err != nil {
		return fmt.Errorf("parse proxy origin: %w", err)
	}

	controller := cacheproxy.NewController(storage, cacheproxy.NewNetworkFetcher(&http.Client{Timeout: feedTimeout}))

	router, err := newAppRouter(cfg, controller, afero.NewOsFs(), nil)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Port, err)
	}
	servers := []*http.Server{{Handler: router}}
	errs := make(chan error, 2)
	go func() { errs <- servers[0].Serve(ln) }()

	log.Printf("🚀 Wildlife Atlas running at %s", cfg.BaseURL)
	log.Printf("📡 Pages: / animals.html animal.html?id= favourites.html map.html kids.html")
	log.Printf("📡 API:   GET /api/animals  GET /api/animals/:id  GET /api/favourites  GET /api/map  GET /api/health")

	// The manifest is fetched from this server, so the generation can only
	// install once the listener is up.
	if _, err := controller.Register(ctx, cacheOptions(cfg, cfg.BaseURL)); err != nil {
		log.Printf("⚠️ Offline cache not registered: %v", err)
	}

	if withProxy {
		proxy := &http.Server{Addr: ":" + cfg.ProxyPort, Handler: newProxyRouter(controller, origin)}
		servers = append(servers, proxy)
		go func() { errs <- proxy.ListenAndServe() }()
		log.Printf("🛡️ Offline proxy for %s on port %s", origin, cfg.ProxyPort)
	}

	return wait(ctx, errs, servers...)
}

// wait blocks until a server fails or ctx is cancelled, then shuts every
// server down.
func wait(ctx context.Context, errs <-chan error, servers ...*http.Server) error {
	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️ Shutdown error: %v", err)
		}
	}
	log.Printf("👋 Server stopped")
	return serveErr
}
