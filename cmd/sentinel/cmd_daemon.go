package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/t77yq/sentinel/internal/health"
	"github.com/t77yq/sentinel/internal/metrics"
	"github.com/t77yq/sentinel/internal/scheduler"
)

// newDaemonCmd creates the daemon subcommand
func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled evaluations in the foreground",
		Long: `Schedule every enabled alert per its cron expression and evaluate until
SIGINT or SIGTERM. When metrics are enabled an HTTP endpoint serves
/metrics, /health, and /ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	p, err := buildPipeline(a)
	if err != nil {
		return err
	}
	defer p.close()

	logger := a.logger

	// Evaluation and delivery metrics; both hooks are optional on
	// their consumers
	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	p.orchestrator.Observer = recorder
	p.dispatcher.Observer = recorder

	sched := scheduler.New(logger, p.runner, p.orchestrator)
	scheduled := 0
	for _, ac := range a.cfg.Alerts {
		if !ac.IsEnabled() {
			logger.Info("Skipping disabled alert", zap.String("alert", ac.Name))
			continue
		}
		if err := sched.Add(a.cfg.Alert(ac), a.cfg.Behavior(ac)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", ac.Name, err)
		}
		scheduled++
	}
	if scheduled == 0 {
		return fmt.Errorf("no enabled alerts to schedule")
	}

	// Readiness checks stay cheap: resource sampling is left to the
	// healthcheck subcommand
	var srv *metrics.Server
	if a.cfg.Metrics.Enabled {
		checker := health.NewChecker(logger)
		checker.Register("database", health.DatabasePing(a.db))
		checker.Register("channels", health.ChannelsRegistered(channelNames(a.cfg), p.dispatcher.Names))

		srv = metrics.NewServer(logger, a.cfg.Metrics.Listen, registry, checker)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	sched.Start()
	logger.Info("Daemon started",
		zap.Int("alerts", scheduled),
		zap.Int("channels", len(a.cfg.Channels)))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Stop triggering new evaluations and wait for running ones
	sched.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Daemon stopped")
	return nil
}
