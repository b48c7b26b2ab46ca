// Package cli provides the queryguard command-line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unilakehq/queryguard/internal/cli/commands"
	"github.com/unilakehq/queryguard/internal/cli/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var cfgFile string

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "queryguard",
		Short: "QueryGuard - SQL scanning and policy-aware transpilation",
		Long: `QueryGuard inspects SQL queries for the entities and attributes they
touch and rewrites them so that masking rules and row filters are applied,
emitting valid SQL for the execution dialect.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			if cfg.Verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
			commands.SetConfig(cfg)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default queryguard.yaml)")
	flags.String("dialect", "unilake", "Input SQL dialect")
	flags.String("catalog", "", "Default catalog for unqualified tables")
	flags.String("database", "", "Default database for unqualified tables")
	flags.String("output", "json", "Output format (json|table)")
	flags.Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewScanCommand(),
		commands.NewTranspileCommand(),
		commands.NewDialectsCommand(),
		commands.NewVersionCommand(Version, GitCommit),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
