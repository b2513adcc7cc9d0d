// Package cmd provides the CLI commands for codebuddy.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phuetz/code-buddy/internal/logging"
)

var (
	flagRoot    string
	flagDebug   bool
	flagNoColor bool

	loggingCleanup func()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codebuddy",
		Short: "Local semantic code search",
		Long: `Codebuddy indexes a codebase into a local vector store and answers
natural-language queries over it. Everything runs locally with zero
configuration: run 'codebuddy index' then 'codebuddy search <query>'.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("codebuddy version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&flagRoot, "path", "p", ".", "Project root directory")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging to ~/.codebuddy/logs/")
	cmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(*cobra.Command, []string) error {
	cfg := logging.DefaultConfig()
	if flagDebug {
		cfg.Level = "debug"
	}

	cleanup, err := logging.Setup(cfg)
	if err != nil {
		// Logging must never block the CLI; fall back to stderr only.
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
		cleanup, err = logging.Setup(logging.Config{Level: cfg.Level})
		if err != nil {
			return err
		}
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
