package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"switchboard/internal/app"
)

// serveDebug enables verbose logging across the application.
var serveDebug bool

// serveCmd starts the broker in the foreground.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service broker",
	Long: `Runs the service broker in the foreground until interrupted.

The broker loads service manifests from the catalog directory, starts the
services listed under broker.autoStart and starts every other service the
first time something connects to it.

Configuration:
  switchboard reads config.yaml from $HOME/.config/switchboard, or from the
  directory given with --config-path. Relative catalog paths are resolved
  against that directory.

When run under a systemd unit with Type=notify, readiness and shutdown are
reported to systemd.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(serveDebug, false, configPath)

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
}
