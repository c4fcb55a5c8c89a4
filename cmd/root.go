package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"switchboard/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates config.yaml failed validation.
	ExitCodeConfigInvalid = 2
)

// rootCmd represents the base command for the switchboard application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Capability-filtered service broker",
	Long: `switchboard starts services on demand and connects them to each other.
Every connection is filtered by the capabilities declared in the services'
manifests: a service can only bind the interfaces its manifest requests
and the target's manifest exposes.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// configPath is the configuration directory shared by every subcommand.
var configPath string

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "switchboard version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		var configErrs *config.ConfigurationErrorCollection
		if errors.As(err, &configErrs) {
			fmt.Fprintln(os.Stderr, configErrs.GetSummary())
		}
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var configErrs *config.ConfigurationErrorCollection
	if errors.As(err, &configErrs) {
		return ExitCodeConfigInvalid
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default is $HOME/.config/switchboard)")
	rootCmd.AddCommand(newVersionCmd())
}
