package config

import "time"

// BrokerConfig is the top-level configuration structure for switchboard.
type BrokerConfig struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Broker  ManagerConfig `yaml:"broker"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CatalogConfig locates the service manifests.
type CatalogConfig struct {
	Path           string        `yaml:"path"`                     // Manifest directory, relative to the config directory (default: ./catalog)
	Watch          bool          `yaml:"watch"`                    // Reload manifests when the directory changes (default: true)
	ResolveTimeout time.Duration `yaml:"resolveTimeout,omitempty"` // Bound on a single lookup (default: 10s)
}

// ManagerConfig tunes the service manager.
type ManagerConfig struct {
	Singletons  []string      `yaml:"singletons,omitempty"`  // Names served from one root-owned instance
	IdleTimeout time.Duration `yaml:"idleTimeout,omitempty"` // How long built-in services idle before quitting
	AutoStart   []string      `yaml:"autoStart,omitempty"`   // Names connected to at startup
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error (default: info)
	Format string `yaml:"format,omitempty"` // text or json (default: text)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`           // Serve /metrics (default: false)
	Address string `yaml:"address,omitempty"` // Listen address (default: localhost:9464)
}
