package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/logging"
	"github.com/Aman-CERP/lexmind/internal/mcp"
	"github.com/Aman-CERP/lexmind/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Start an MCP server on stdin/stdout exposing the tools "search" and
"corpus_status" and one source://<file> resource per corpus document.

With --watch (or server.watch in the config) the corpus folder is
watched and the indexes are rebuilt after changes.

stdout carries JSON-RPC only; logs go to the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), watch || cfg.Server.Watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild the corpus when files change")
	return cmd
}

func runServe(ctx context.Context, watch bool) error {
	// Replace the CLI logger: nothing may reach stdout or stderr.
	if loggingCleanup != nil {
		loggingCleanup()
	}
	level := cfg.Server.LogLevel
	if verbose {
		level = "debug"
	}
	cleanup, err := logging.SetupMCPMode(cfg.Storage.DataDir, level)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cs, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close() }()

	searchLog, err := openSearchLog()
	if err != nil {
		slog.Warn("search_log_open_failed", slog.String("error", err.Error()))
		searchLog = nil
	}
	if searchLog != nil {
		defer func() { _ = searchLog.Close() }()
	}

	srv, err := mcp.NewServer(cs,
		mcp.WithSearchLog(searchLog),
		mcp.WithSources(ingest.NewSourceStore(cfg.Corpus.Path)))
	if err != nil {
		return err
	}
	srv.RegisterSources()

	if watch {
		w, err := watcher.NewCorpusWatcher(cfg.Corpus.Path, watcher.Options{
			DebounceWindow: cfg.WatchDebounce(),
			Extensions:     cfg.Corpus.Extensions,
		})
		if err != nil {
			slog.Warn("corpus_watch_disabled", slog.String("error", err.Error()))
		} else {
			go func() {
				_ = watcher.Run(ctx, w, &sourceRefresher{corpus: cs, server: srv})
			}()
		}
	}

	return srv.Serve(ctx)
}

// sourceRefresher rebuilds the corpus and re-registers the source
// resources of the new generation.
type sourceRefresher struct {
	corpus watcher.Reloader
	server *mcp.Server
}

func (r *sourceRefresher) Reload(ctx context.Context) error {
	if err := r.corpus.Reload(ctx); err != nil {
		return err
	}
	r.server.RegisterSources()
	return nil
}
