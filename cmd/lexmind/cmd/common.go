package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/lexmind/internal/embed"
	"github.com/Aman-CERP/lexmind/internal/search"
	"github.com/Aman-CERP/lexmind/internal/session"
	"github.com/Aman-CERP/lexmind/internal/telemetry"
)

// corpusSession bundles a session with the embedder it borrows.
type corpusSession struct {
	*session.Session
	embedder embed.Embedder
}

func (c *corpusSession) Close() error {
	err := c.Session.Close()
	if cerr := c.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}

// openSession builds the embedder and the first corpus generation. Only a
// missing embedder is an error; a failed build leaves an inert session
// whose Err reports the cause.
func openSession(ctx context.Context, opts ...session.Option) (*corpusSession, error) {
	embedder, err := embed.New(ctx, cfg.Embeddings, cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	sess, _ := session.New(ctx, cfg, embedder, opts...)
	return &corpusSession{Session: sess, embedder: embedder}, nil
}

func searchLogPath() string {
	return filepath.Join(cfg.Storage.DataDir, telemetry.LogFileName)
}

// openSearchLog returns nil when the search log is disabled.
func openSearchLog() (*telemetry.SearchLog, error) {
	if !cfg.Storage.SearchLog {
		return nil, nil
	}
	return telemetry.OpenSearchLog(searchLogPath())
}

// recordSearch appends resp to the search log. Blank queries and a nil
// log are ignored.
func recordSearch(ctx context.Context, log *telemetry.SearchLog, resp *search.Response) {
	if log == nil || strings.TrimSpace(resp.Query) == "" {
		return
	}
	_, err := log.Record(ctx, telemetry.Entry{
		Query:       resp.Query,
		ResultCount: len(resp.Results),
		Alpha:       resp.Alpha,
		K:           resp.K,
		LatencyMs:   resp.Duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("search_log_write_failed", slog.String("error", err.Error()))
	}
}
