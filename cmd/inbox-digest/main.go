package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/di"
	"github.com/mikey/inbox-digest/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Misconfiguration is fatal before anything is started
	if err := container.Invoke(func(cfg *config.Config) error { return cfg.Validate() }); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	service *core.DigestService,
	workers []ports.Worker,
	scorer core.Scorer,
	repo core.StateRepository,
) error {
	defer logger.Sync()

	for _, w := range workers {
		if err := w.Start(); err != nil {
			logger.Error("Failed to start worker", zap.Error(err))
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Inbox digest started")
	loop(ctx, service, logger)
	logger.Info("Shutting down...")

	for _, w := range workers {
		if err := w.Stop(); err != nil {
			logger.Error("Failed to stop worker", zap.Error(err))
		}
	}

	// Close any resources that need closing
	if closer, ok := scorer.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close scorer", zap.Error(err))
		}
	}
	if closer, ok := repo.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close state repository", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// loop ticks the service until ctx is cancelled. Cycle errors are logged by
// the service and never stop the loop.
func loop(ctx context.Context, service *core.DigestService, logger *zap.Logger) {
	for {
		report, wait, err := service.Tick(ctx, time.Now())
		if err != nil {
			logger.Warn("Cycle finished with error", zap.Error(err))
		} else if report != nil {
			logger.Info("Cycle finished",
				zap.String("slot_id", report.SlotID),
				zap.Bool("sent", report.Sent),
				zap.Duration("duration", report.Duration))
		}

		if wait <= 0 {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
