// Package app provides application bootstrap and lifecycle management for
// switchboard.
//
// # Architecture Overview
//
//  1. **Bootstrap (`bootstrap.go`)**: logging setup and configuration loading
//  2. **Configuration (`config.go`)**: runtime flags and the loaded BrokerConfig
//  3. **Services (`services.go`)**: the catalog, runner factory, service
//     manager and listeners, wired together
//  4. **Modes (`modes.go`)**: the foreground serve loop
//
// ## Bootstrap
//
// NewApplication configures logging from the --debug flag, loads config.yaml
// from the configuration directory (~/.config/switchboard unless
// --config-path is given), then reconfigures logging with the configured
// level and format before initializing services.
//
// ## Services
//
// InitializeServices builds, in order:
//
//  1. The catalog, loaded from catalog.path, plus the manifests of the
//     built-in services (echo and the builtins package)
//  2. An in-process runner factory that creates built-ins by name
//  3. The service manager, resolving through the catalog with
//     catalog.resolveTimeout and treating broker.singletons as singletons
//  4. The Prometheus recorder, used as both connect observer and listener
//  5. The event recorder, which renders instance lifecycle events through
//     sprig templates
//  6. The "switchboard" embedder instance, through which the application
//     connects to broker.autoStart services
//
// ## Serve loop
//
// runBroker starts the catalog watcher and the metrics endpoint, auto-starts
// services, and notifies systemd (READY=1) when running under a Type=notify
// unit. On SIGINT, SIGTERM or context cancellation it notifies STOPPING=1
// and shuts the manager down, removing every instance.
//
// # Usage Example
//
//	cfg := app.NewConfig(debug, false, configPath)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
package app
