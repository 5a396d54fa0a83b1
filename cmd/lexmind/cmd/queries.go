package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/output"
	"github.com/Aman-CERP/lexmind/internal/telemetry"
)

func newQueriesCmd() *cobra.Command {
	var (
		limit   int
		csvPath string
		topN    int
	)

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Show the search log",
		Long: `Show recent searches with a summary of query terms, zero-result
queries and latency.

Use --csv to export the whole log ("-" writes to stdout).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := telemetry.OpenSearchLog(searchLogPath())
			if err != nil {
				return lexerrors.New(lexerrors.ErrCodeFileNotFound, "cannot open search log", err)
			}
			defer func() { _ = log.Close() }()

			if csvPath != "" {
				return exportQueries(cmd.Context(), cmd.OutOrStdout(), log, csvPath)
			}
			return showQueries(cmd.Context(), output.New(cmd.OutOrStdout()), log, limit, topN)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent searches to list (0 for all)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Export the log as CSV to this file")
	cmd.Flags().IntVar(&topN, "top", 10, "Number of top query terms in the summary")
	return cmd
}

func exportQueries(ctx context.Context, stdout io.Writer, log *telemetry.SearchLog, path string) error {
	if path == "-" {
		return log.ExportCSV(ctx, stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := log.ExportCSV(ctx, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	output.New(stdout).Successf("Search log exported to %s", path)
	return nil
}

func showQueries(ctx context.Context, out *output.Writer, log *telemetry.SearchLog, limit, topN int) error {
	entries, err := log.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		out.Status("📭", "No searches recorded yet")
		return nil
	}

	out.Header("Recent searches")
	out.Dim(fmt.Sprintf("%-20s %7s %5s %3s %8s  %s", "time", "results", "alpha", "k", "latency", "query"))
	for _, e := range entries {
		out.Status("", fmt.Sprintf("%-20s %7d %5.2f %3d %6dms  %s",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.ResultCount, e.Alpha, e.K, e.LatencyMs, e.Query))
	}

	summary, err := log.Summarize(ctx, topN)
	if err != nil {
		return err
	}
	out.Newline()
	out.Header("Summary")
	out.KeyValue("Searches", summary.TotalQueries)
	out.KeyValue("Zero results", fmt.Sprintf("%d (%.1f%%)", summary.ZeroResultCount, summary.ZeroResultPercentage()))
	for _, b := range []telemetry.LatencyBucket{
		telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100, telemetry.BucketP500, telemetry.BucketP1000,
	} {
		if n := summary.LatencyDistribution[b]; n > 0 {
			out.KeyValue("Latency "+string(b), n)
		}
	}
	if len(summary.TopTerms) > 0 {
		out.Newline()
		out.Header("Top terms")
		for _, tc := range summary.TopTerms {
			out.KeyValue(tc.Term, tc.Count)
		}
	}
	if len(summary.ZeroResultQueries) > 0 {
		out.Newline()
		out.Header("Queries without results")
		for _, q := range summary.ZeroResultQueries {
			out.Status("", q)
		}
	}
	return nil
}
