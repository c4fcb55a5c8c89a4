package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"switchboard/internal/catalog"
	"switchboard/pkg/logging"
)

// autoStartTimeout bounds the wait for each auto-started service.
const autoStartTimeout = 30 * time.Second

// shutdownTimeout bounds the broker's shutdown.
const shutdownTimeout = 10 * time.Second

// notifySystemd is replaced in tests.
var notifySystemd = daemon.SdNotify

// runBroker runs the broker in the foreground.
//
// Behavior:
//   - Starts the catalog watcher and, when enabled, the metrics endpoint
//   - Connects to every auto-start service
//   - Reports READY=1 to systemd when running under a notify unit
//   - Blocks until ctx is cancelled or SIGINT/SIGTERM arrives
//   - Reports STOPPING=1 and removes every instance
func runBroker(ctx context.Context, cfg *Config, services *Services) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer services.Close()

	bc := cfg.BrokerConfig
	if services.Watcher != nil {
		changes := services.Watcher.Subscribe()
		if err := services.Watcher.Start(ctx); err != nil {
			logging.Warn("Bootstrap", "Catalog watching disabled: %v", err)
		} else {
			go logCatalogChanges(ctx, changes)
		}
	}

	metricsErr := make(chan error, 1)
	if bc.Metrics.Enabled {
		go func() { metricsErr <- services.Metrics.Serve(ctx, bc.Metrics.Address) }()
	}

	if len(bc.Broker.AutoStart) > 0 {
		services.AutoStart(bc.Broker.AutoStart, autoStartTimeout)
	}

	if sent, err := notifySystemd(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Bootstrap", "Failed to notify systemd: %v", err)
	} else if sent {
		logging.Debug("Bootstrap", "Notified systemd of readiness")
	}
	logging.Info("Bootstrap", "Broker running. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-metricsErr:
		if err != nil {
			logging.Error("Bootstrap", err, "Metrics server failed")
			runErr = err
		}
	}

	logging.Info("Bootstrap", "Shutting down broker")
	if _, err := notifySystemd(false, daemon.SdNotifyStopping); err != nil {
		logging.Debug("Bootstrap", "Failed to notify systemd of shutdown: %v", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := services.Manager.Shutdown(shutdownCtx); err != nil {
		logging.Error("Bootstrap", err, "Broker shutdown incomplete")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func logCatalogChanges(ctx context.Context, changes <-chan catalog.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if change.Err != nil {
				logging.Warn("Bootstrap", "Catalog %s of %s failed: %v", change.Operation, change.Path, change.Err)
				continue
			}
			logging.Info("Bootstrap", "Catalog %s: %s", change.Operation, change.Name)
		}
	}
}
