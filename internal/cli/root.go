// Package cli provides the command-line interface for dealsight.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dealsight/internal/app"
	"github.com/raphaelgruber/dealsight/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	deps       *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dealsight",
	Short: "Retrieve past M&A deals and synthesize integration lessons",
	Long: `Dealsight indexes a directory of past M&A deals (summary, risks, outcome
and metadata per deal) into a SurrealDB vector collection, retrieves the deals
most similar to a question, and asks a language model to derive recurring
integration risks, their consequences and lessons learned.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

// setup loads configuration, the logger and the shared dependencies.
func setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

	deps, err = app.New(cmd.Context(), cfg, logger)
	return err
}

func teardown() {
	if deps != nil {
		if err := deps.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
		deps = nil
	}
	if logCleanup != nil {
		_ = logCleanup()
		logCleanup = nil
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $DEALSIGHT_CONFIG)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dealsight %s\n", Version)
	},
}

// collectionFlag returns the --collection value or the configured collection.
func collectionFlag(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Collection
}
