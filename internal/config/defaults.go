package config

import "time"

const (
	// DefaultCatalogPath is the manifest directory used when none is configured.
	DefaultCatalogPath = "./catalog"

	// DefaultMetricsAddress is where /metrics is served when enabled.
	DefaultMetricsAddress = "localhost:9464"

	DefaultIdleTimeout    = 5 * time.Second
	DefaultResolveTimeout = 10 * time.Second
)

// GetDefaultConfig returns the configuration used for every field config.yaml
// leaves unset.
func GetDefaultConfig() BrokerConfig {
	return BrokerConfig{
		Catalog: CatalogConfig{
			Path:           DefaultCatalogPath,
			Watch:          true,
			ResolveTimeout: DefaultResolveTimeout,
		},
		Broker: ManagerConfig{
			IdleTimeout: DefaultIdleTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: DefaultMetricsAddress,
		},
	}
}
