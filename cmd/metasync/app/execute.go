package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ausgeophys/metasync/cmd/metasync/cmd"
)

// Execute runs the metasync CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "metasync",
		Short:   "Geophysical dataset metadata synchronization",
		Version: a.version,
		Long: `Metasync keeps geophysical dataset metadata synchronized across the
dataset's own attribute store, the survey registry, the published catalogue
record and the manifest sidecar.

It reconciles all sources into one record, resolves the dataset's identity,
acquires a persistent identifier, verifies file integrity against the
manifest, and renders the record as an output document.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.metasync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("metasync {{.Version}}\n")

	cmd.Register(rootCmd, a)
	return rootCmd
}

// setupCommand runs before any command. Flag values override config and env.
func (a *App) setupCommand(c *cobra.Command, _ []string) error {
	verbose := mustGetBool(c, "verbose")
	quiet := mustGetBool(c, "quiet")
	noColor := mustGetBool(c, "no-color")
	logLevel := mustGetString(c, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, logLevel)

	logger := NewLogger(a.config)
	a.logger = &logger

	if flags := changedFlags(c); len(flags) > 0 {
		a.logger.Debug().Fields(map[string]any{"flags": flags}).Msg("command flags")
	}
	return nil
}

// changedFlags collects flags the user explicitly set on the command line.
func changedFlags(c *cobra.Command) map[string]string {
	flags := make(map[string]string)
	c.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			flags[flag.Name] = flag.Value.String()
		}
	})
	return flags
}

// ExitOnError prints an error and exits with status 1. Meant for top-level
// error handling in main.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func mustGetBool(c *cobra.Command, name string) bool {
	val, err := c.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetString(c *cobra.Command, name string) string {
	val, err := c.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
