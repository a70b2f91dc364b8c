package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osa911/proxydesk/internal/app"
	"github.com/osa911/proxydesk/internal/config"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/tasks"
	"github.com/osa911/proxydesk/internal/telemetry"
	"github.com/osa911/proxydesk/internal/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Configure and get logger
	if err := logging.InitLogger(cfg.Logging()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := logging.GetGlobalLogger()
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting proxydesk %s in %s mode", version.Info(), cfg.Environment)
	logger.Info("Nginx: binary=%s conf=%s fragments=%s", cfg.NginxBinary, cfg.ConfRoot, cfg.FragmentDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Setup(ctx, telemetry.TracingConfig{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown: %v", err)
		}
	}()
	if tracing.Enabled() {
		logger.Info("Exporting traces to %s", cfg.OTLPEndpoint)
	}

	a := app.New(cfg, logger)

	// Start scheduled backups
	scheduler := tasks.NewBackupScheduler(a.Service, cfg.BackupSchedule, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start backup scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Watch the fragment directory for out-of-band edits
	if cfg.WatchFragments {
		watcher := tasks.NewFragmentWatcher(cfg.FragmentDir, a.Controller, tasks.DefaultDebounce, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Fragment watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	srv, err := a.HTTPServer(tracing.Enabled())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening on http://%s", srv.Addr())
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
