// Package cmd provides the CLI commands for LexMind.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexmind/internal/config"
	"github.com/Aman-CERP/lexmind/internal/logging"
	"github.com/Aman-CERP/lexmind/pkg/version"
)

// skipSetupAnnotation marks commands that need neither config nor logging.
const skipSetupAnnotation = "lexmind/skip-setup"

// Global flags and the state PersistentPreRunE prepares for subcommands.
var (
	projectDir     string
	verbose        bool
	cfg            *config.Config
	loggingCleanup func()
)

// NewRootCmd creates the root command for the lexmind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexmind",
		Short: "Hybrid search over legal documents",
		Long: `LexMind indexes a folder of legal documents (PDF, DOCX, text) and
answers queries with hybrid retrieval: semantic similarity fused with
BM25 keyword scores, per-section chunks, and highlighted snippets.

Run 'lexmind index' to check a corpus, 'lexmind search' to query it and
'lexmind serve' to expose it to MCP clients.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("lexmind version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory holding .lexmind.yaml")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging, mirrored to stderr")

	cmd.PersistentPreRunE = setup
	cmd.PersistentPostRunE = teardown

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newQueriesCmd())
	cmd.AddCommand(newSourceCmd())
	cmd.AddCommand(newCategoriesCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and starts file logging. serve replaces the
// logger with an MCP-safe one.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetupAnnotation] == "true" {
		return nil
	}

	loaded, err := config.Load(projectDir)
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := logging.DefaultConfig(cfg.Storage.DataDir)
	logCfg.Level = cfg.Server.LogLevel
	if verbose {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("cli_started",
		slog.String("command", cmd.Name()),
		slog.String("corpus", cfg.Corpus.Path),
		slog.String("data_dir", cfg.Storage.DataDir))
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
