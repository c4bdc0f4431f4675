// Package cmd implements the metasync CLI subcommands.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ausgeophys/metasync"
)

// App is the application context the commands run against. It is satisfied
// by the app package; tests substitute a lighter implementation.
type App interface {
	// Client returns the configured metasync client.
	Client() (*metasync.Client, error)

	// Logger returns the application logger.
	Logger() *zerolog.Logger

	// Version returns the version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string
}

// Register adds all metasync subcommands to the root command.
func Register(rootCmd *cobra.Command, a App) {
	rootCmd.AddCommand(newUpdateCommand(a))
	rootCmd.AddCommand(newVerifyCommand(a))
	rootCmd.AddCommand(newCaptureCommand(a))
	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newVersionCommand(a))
}
