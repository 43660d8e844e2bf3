package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/campusauth/pkg/api"
	"github.com/platinummonkey/campusauth/pkg/app"
	"github.com/platinummonkey/campusauth/pkg/config"
	"github.com/platinummonkey/campusauth/pkg/janitor"
	"github.com/platinummonkey/campusauth/pkg/observability"
	"github.com/platinummonkey/campusauth/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)
	if cfg.Auth.EphemeralSecret {
		logger.Warn("PORTAL_JWT_SECRET not set; using an ephemeral signing secret, tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	providers, err := observability.InitTracing(ctx, cfg.TracingConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if providers != nil {
		shutdown.Register("tracing", providers.Shutdown)
	}

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	shutdown.Register("storage", func(context.Context) error { return stores.Close() })

	if _, err := app.Bootstrap(ctx, cfg.Auth, stores.Accounts, logger); err != nil {
		return fmt.Errorf("failed to create bootstrap account: %w", err)
	}
	if cfg.Storage.AccountBackend == storage.BackendMemory && cfg.Auth.Bootstrap.Username == "" {
		logger.Warn("memory account store is empty; set PORTAL_BOOTSTRAP_USERNAME and PORTAL_BOOTSTRAP_PASSWORD to seed an account")
	}

	var (
		metrics  *observability.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}

	gateway, err := app.NewGateway(cfg.Auth, stores, logger, metrics)
	if err != nil {
		return err
	}

	health := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion, stores.Dependencies()...)
	server := api.NewServer(gateway, api.Options{
		Logger:       logger,
		Metrics:      metrics,
		Health:       health,
		Gatherer:     gatherer,
		TrustProxy:   cfg.Server.TrustProxy,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     log.New(logger.Writer(), "", 0),
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     api.HealthHandler(health, gatherer),
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	sweeper := janitor.New(stores.Pruners, cfg.Auth.PruneSchedule, logger, janitor.WithMetrics(metrics))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, logger) })
	g.Go(func() error { return serve(healthServer, logger) })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("portal stopped")
	return nil
}

func serve(srv *http.Server, logger *observability.Logger) error {
	logger.WithField("addr", srv.Addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}
