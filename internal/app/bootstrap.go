package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"switchboard/internal/config"
	"switchboard/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs the broker.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, set up services
//  2. Execution phase: serve until the context is cancelled or a signal arrives
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads configuration, configures logging and initializes
// every service. When cfg.BrokerConfig is already set nothing is read from
// disk.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stdout
	if cfg.Silent {
		logOutput = io.Discard
	}
	// Bootstrap logs go out at info until the configured level is known.
	logging.InitForCLI(bootstrapLevel(cfg.Debug), logOutput)

	if cfg.BrokerConfig == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			var err error
			configPath, err = config.GetDefaultConfigPath()
			if err != nil {
				return nil, err
			}
		}
		brokerCfg, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", configPath, err)
		}
		cfg.BrokerConfig = &brokerCfg
	}

	level, ok := logging.ParseLevel(cfg.BrokerConfig.Logging.Level)
	if !ok {
		logging.Warn("Bootstrap", "Unknown log level %q, using info", cfg.BrokerConfig.Logging.Level)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logOutput, logging.Format(cfg.BrokerConfig.Logging.Format))

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func bootstrapLevel(debug bool) logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// the broker down.
func (a *Application) Run(ctx context.Context) error {
	return runBroker(ctx, a.config, a.services)
}
