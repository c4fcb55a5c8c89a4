package app

import (
	"switchboard/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of logging.level
	Debug bool

	// Silent discards all log output
	Silent bool

	// Directory holding config.yaml. Empty selects ~/.config/switchboard.
	ConfigPath string

	// Broker configuration. Loaded from ConfigPath when nil.
	BrokerConfig *config.BrokerConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
