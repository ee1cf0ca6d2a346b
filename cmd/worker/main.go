package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"
	"golang.org/x/sync/errgroup"

	"github.com/rservers/RightClaw-Build/internal/activity"
	"github.com/rservers/RightClaw-Build/internal/config"
	"github.com/rservers/RightClaw-Build/internal/db"
	"github.com/rservers/RightClaw-Build/internal/eventlog"
	"github.com/rservers/RightClaw-Build/internal/inventory"
	"github.com/rservers/RightClaw-Build/internal/locator"
	"github.com/rservers/RightClaw-Build/internal/logging"
	"github.com/rservers/RightClaw-Build/internal/metrics"
	"github.com/rservers/RightClaw-Build/internal/model"
	"github.com/rservers/RightClaw-Build/internal/probe"
	"github.com/rservers/RightClaw-Build/internal/remote"
	"github.com/rservers/RightClaw-Build/internal/tier"
	"github.com/rservers/RightClaw-Build/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker exited with error")
	}
}

// run owns every resource so deferred closers (the provisioning_log drain
// in particular) finish before main exits.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {

	sinks := []eventlog.Sink{eventlog.NewLoggerSink(logger)}

	// The inventory stays a nil interface without a database so the locator
	// skips it instead of calling through a nil *inventory.Store.
	var inv locator.Inventory
	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to core database: %w", err)
	}
	if corePool != nil {
		defer corePool.Close()
		metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, corePool)
		inv = inventory.NewStore(corePool)

		dbSink := eventlog.NewDBSink(corePool, logger)
		defer dbSink.Close()
		sinks = append(sinks, dbSink)
	} else {
		logger.Warn().Msg("CORE_DATABASE_URL not set, inventory lookup and provisioning_log disabled")
	}

	if cfg.WHMCSAPIURL != "" {
		sinks = append(sinks, eventlog.NewWHMCSSink(cfg.WHMCSAPIURL, cfg.WHMCSAPIIdentifier, cfg.WHMCSAPISecret, logger))
	}

	transport, err := remote.NewTransport(cfg.RemoteTransport, cfg.SSHConnectTimeout)
	if err != nil {
		return fmt.Errorf("configure remote transport: %w", err)
	}

	dialOpts, err := cfg.TemporalClientOptions()
	if err != nil {
		return fmt.Errorf("configure temporal TLS: %w", err)
	}
	if dialOpts.ConnectionOptions.TLS != nil {
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer tc.Close()

	w := worker.New(tc, model.TaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ActivityInterceptor{}},
	})

	provisioner := activity.NewProvisioner(
		tier.NewResolver(cfg.Tiers, cfg.ProductGroup),
		locator.New(inv, logger),
		probe.New(logger, probe.WithDialTimeout(cfg.ProbeDialTimeout)),
		remote.NewExecutor(transport, logger),
		eventlog.Multi(sinks...),
		cfg.Credential(),
		logger,
	)
	w.RegisterActivity(provisioner)

	w.RegisterWorkflow(workflow.ProvisionInstanceWorkflow)
	w.RegisterWorkflow(workflow.SuspendInstanceWorkflow)
	w.RegisterWorkflow(workflow.UnsuspendInstanceWorkflow)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		g.Go(func() error {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return shutdown(metricsSrv)
		})
	}

	g.Go(func() error {
		logger.Info().Str("taskQueue", model.TaskQueue).Str("transport", cfg.RemoteTransport).Msg("starting temporal worker")
		if err := w.Start(); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		<-gctx.Done()
		logger.Info().Msg("shutting down worker")
		w.Stop()
		return nil
	})

	return g.Wait()
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
