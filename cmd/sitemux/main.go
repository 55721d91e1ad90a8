package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sitemux/sitemux/internal/analytics"
	"github.com/sitemux/sitemux/internal/config"
	"github.com/sitemux/sitemux/internal/faults"
	"github.com/sitemux/sitemux/internal/logging"
	"github.com/sitemux/sitemux/internal/observability"
	"github.com/sitemux/sitemux/internal/ratelimit"
	"github.com/sitemux/sitemux/internal/server"
	"github.com/sitemux/sitemux/internal/site"
)

func main() {
	configDir := flag.String("config", "config", "directory with settings.yml and per-site yml files")
	flag.Parse()

	settings, err := config.LoadSettings(filepath.Join(*configDir, "settings.yml"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(settings.Log.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(settings, *configDir, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func run(settings *config.Settings, configDir string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if settings.Tracing.Enabled {
		shutdown, err := observability.InitTracer("sitemux")
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
	}

	var rdb *redis.Client
	if settings.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: settings.Redis.Addr})
		defer rdb.Close()
	}

	siteFiles, err := config.LoadSites(configDir)
	if err != nil {
		return err
	}

	injector := faults.NewController(logger)
	srv := server.New()
	injector.Register(srv.Admin())
	if rdb != nil {
		srv.Admin().Handle("GET /_admin/analytics", analytics.AdminHandler(analytics.New(rdb)))
	}

	for _, sf := range siteFiles {
		s, err := buildSite(sf, settings, rdb, injector, logger)
		if err != nil {
			return err
		}
		s.Load(srv)
		logger.Info("site loaded",
			zap.String("domain", s.Domain()),
			zap.String("assets", s.AssetsRoot()),
			zap.Bool("multi_site", sf.MultiSite),
			zap.Bool("production", sf.Production),
		)
	}

	httpServer := &http.Server{
		Addr:         settings.Server.Listen,
		Handler:      srv,
		ReadTimeout:  settings.Server.Timeouts.Read,
		WriteTimeout: settings.Server.Timeouts.Write,
		IdleTimeout:  settings.Server.Timeouts.Idle,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", settings.Server.Listen))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildSite turns one site file into a loaded chain, attaching the bundled
// middleware the settings enable.
func buildSite(sf config.SiteFile, settings *config.Settings, rdb *redis.Client, injector *faults.Controller, logger *zap.Logger) (*site.Site, error) {
	cfg := site.Config{
		Domain:       sf.Domain,
		MultiSite:    sf.MultiSite,
		Production:   sf.Production,
		APIBasePath:  sf.APIBasePath,
		SitesBaseDir: sf.SitesBaseDir,
		SharedData:   sf.SharedData,
		Logger:       logger,
	}

	if settings.Tracing.Enabled {
		cfg.Middleware = append(cfg.Middleware, site.MiddlewareSpec{
			Handler: observability.Tracing(sf.Domain),
		})
	}
	cfg.Middleware = append(cfg.Middleware, site.MiddlewareSpec{
		Handler: injector.Middleware(sf.Domain),
	})
	if rdb != nil {
		if sf.RateLimit != nil && sf.RateLimit.Requests > 0 {
			limiter := ratelimit.New(rdb, sf.RateLimit.Requests, sf.RateLimit.Window)
			cfg.Middleware = append(cfg.Middleware, site.MiddlewareSpec{
				Handler: limiter.Middleware(sf.Domain),
			})
		}
		cfg.Middleware = append(cfg.Middleware, site.MiddlewareSpec{
			Handler: analytics.New(rdb).Middleware(sf.Domain),
		})
	}

	return site.New(cfg)
}
