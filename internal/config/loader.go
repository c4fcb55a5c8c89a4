package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"switchboard/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/switchboard"
	configFileName = "config.yaml"
)

// osUserHomeDir is replaced in tests.
var osUserHomeDir = os.UserHomeDir

// GetDefaultConfigPath returns ~/.config/switchboard.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func GetDefaultConfigPathOrPanic() string {
	path, err := GetDefaultConfigPath()
	if err != nil {
		panic(err)
	}
	return path
}

// LoadConfig loads config.yaml from configPath over the defaults. A missing
// file yields the defaults. A relative catalog path is taken relative to
// configPath.
func LoadConfig(configPath string) (BrokerConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			config.Catalog.Path = resolvePath(configPath, config.Catalog.Path)
			return config, nil
		}
		logging.Info("Config", "Error loading config.yaml from %s: %s", configFilePath, err)
		return BrokerConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return BrokerConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	config.Catalog.Path = resolvePath(configPath, config.Catalog.Path)
	if errs := config.Validate(configFilePath); errs.HasErrors() {
		return BrokerConfig{}, errs
	}

	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
