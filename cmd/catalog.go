package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"switchboard/internal/builtin"
	"switchboard/internal/catalog"
	"switchboard/internal/config"
	"switchboard/internal/formatting"
	"switchboard/pkg/logging"
)

// catalogOutputFormat controls the output format for catalog commands
var catalogOutputFormat string

// catalogNoColor disables colored table headers
var catalogNoColor bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect service manifests",
	Long: `Inspect the manifests the broker resolves service names against.

The catalog is read from catalog.path in config.yaml and includes the
built-in services.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, func(w io.Writer, f formatting.Formatter, c *catalog.Catalog, _ config.BrokerConfig) error {
			return f.FormatManifests(w, c.Entries())
		})
	},
}

var catalogResolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Show where the broker would place a service",
	Long: `Resolves a service name the way the broker does: packaged services
resolve to their package, and the capability spec is taken from the
service's own manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd, func(w io.Writer, f formatting.Formatter, c *catalog.Catalog, cfg config.BrokerConfig) error {
			ctx, cancel := context.WithTimeout(commandContext(cmd), resolveTimeout(cfg))
			defer cancel()
			result, err := c.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			return f.FormatResolve(w, result)
		})
	},
}

type catalogAction func(w io.Writer, f formatting.Formatter, c *catalog.Catalog, cfg config.BrokerConfig) error

func runCatalog(cmd *cobra.Command, action catalogAction) error {
	format, err := formatting.ParseFormat(catalogOutputFormat)
	if err != nil {
		return err
	}
	logging.InitForCLI(logging.LevelWarn, cmd.ErrOrStderr())

	cfg, err := loadBrokerConfig()
	if err != nil {
		return err
	}
	c, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	f := formatting.New(formatting.Options{Format: format, Color: !catalogNoColor})
	return action(cmd.OutOrStdout(), f, c, cfg)
}

func loadBrokerConfig() (config.BrokerConfig, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.GetDefaultConfigPath(); err != nil {
			return config.BrokerConfig{}, err
		}
	}
	return config.LoadConfig(path)
}

// loadCatalog builds the catalog the broker would serve from.
func loadCatalog(cfg config.BrokerConfig) (*catalog.Catalog, error) {
	c := catalog.New(cfg.Catalog.Path)
	if err := c.Load(); err != nil {
		return nil, err
	}
	if err := builtin.Default().RegisterManifests(c); err != nil {
		return nil, fmt.Errorf("failed to register built-in manifests: %w", err)
	}
	return c, nil
}

func resolveTimeout(cfg config.BrokerConfig) time.Duration {
	if cfg.Catalog.ResolveTimeout > 0 {
		return cfg.Catalog.ResolveTimeout
	}
	return catalog.DefaultResolveTimeout
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogResolveCmd)

	catalogCmd.PersistentFlags().StringVarP(&catalogOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	catalogCmd.PersistentFlags().BoolVar(&catalogNoColor, "no-color", false, "Disable colored output")
}
