// Package cmd provides the CLI commands for corelens.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/corelens/corelens/internal/logging"
	"github.com/corelens/corelens/pkg/version"
)

var loggingCleanup func()

// NewRootCmd creates the root command for the corelens CLI.
func NewRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "corelens",
		Short:         "Local semantic code search",
		Long:          `corelens indexes a codebase into a hybrid lexical + multi-vector store and answers natural-language and structural ("find similar") queries against it, entirely locally.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("corelens version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to ~/.corelens/logs/")
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		cfg := logging.DefaultConfig()
		if debug {
			cfg.Level = "debug"
		}
		logger, cleanup, err := logging.Setup(cfg)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		return nil
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
		return nil
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
