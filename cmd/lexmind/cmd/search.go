package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/mcp"
	"github.com/Aman-CERP/lexmind/internal/output"
	"github.com/Aman-CERP/lexmind/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	k        int
	alpha    float64
	category string
	debug    bool
	format   string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus",
		Long: `Search the corpus with hybrid retrieval.

Dense (embedding) and sparse (BM25) scores are fused with weight alpha;
results under the relevance floor are dropped.

Examples:
  lexmind search "Kündigungsfrist"
  lexmind search "Vertragsstrafe" -k 5 --alpha 0.7
  lexmind search "Klage" --category Klagen --debug
  lexmind search "Urkunde" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			var alpha *float64
			if cmd.Flags().Changed("alpha") {
				alpha = &opts.alpha
			}
			return runSearch(cmd.Context(), cmd, query, alpha, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Number of results (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "Dense weight in [0,1] (default from config)")
	cmd.Flags().StringVar(&opts.category, "category", "", "Only return chunks of this category")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Show the score table of all candidates")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, alpha *float64, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return lexerrors.ValidationError(fmt.Sprintf("unknown format %q", opts.format), nil).
			WithSuggestion("Use --format text or --format json")
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("k", opts.k))
	out := output.New(cmd.OutOrStdout()).WithMarkers(cfg.Search.MarkOpen, cfg.Search.MarkClose)

	cs, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close() }()
	if buildErr := cs.Err(); buildErr != nil {
		output.New(cmd.ErrOrStderr()).Warningf("Corpus not indexed: %s", buildErr.Error())
	}

	resp, err := cs.Search(ctx, query, search.Options{
		K:        opts.k,
		Alpha:    alpha,
		Debug:    opts.debug,
		Category: opts.category,
	})
	if err != nil {
		return err
	}

	searchLog, err := openSearchLog()
	if err != nil {
		slog.Warn("search_log_open_failed", slog.String("error", err.Error()))
	} else if searchLog != nil {
		recordSearch(ctx, searchLog, resp)
		_ = searchLog.Close()
	}

	slog.Info("search_completed",
		slog.String("query", query),
		slog.Int("results", len(resp.Results)),
		slog.Duration("duration", resp.Duration))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(mcp.ToSearchOutput(resp))
	}
	printResults(out, resp)
	return nil
}

func printResults(out *output.Writer, resp *search.Response) {
	if resp.Degraded != "" {
		out.Warningf("The %s backend was unavailable; its scores count as 0.", resp.Degraded)
	}
	if len(resp.Results) == 0 {
		out.Statusf("🔍", "No results for %q", resp.Query)
	} else {
		out.Header(fmt.Sprintf("%d result(s) for %q (alpha %.2f)", len(resp.Results), resp.Query, resp.Alpha))
		out.Newline()
	}

	for i, r := range resp.Results {
		loc := r.Chunk.Source
		if r.Chunk.Page > 0 {
			loc = fmt.Sprintf("%s, page %d", loc, r.Chunk.Page)
		}
		out.Header(fmt.Sprintf("%d. %s", i+1, loc))
		out.Dim(fmt.Sprintf("   %s · %s · score %.2f (dense %.2f, sparse %.2f)",
			r.Chunk.Heading, r.Chunk.Category, r.Score, r.DenseScore, r.SparseScore))
		out.Highlighted(r.Chunk.Content)
		out.Newline()
	}

	if len(resp.Diagnostics) > 0 {
		out.Header(fmt.Sprintf("Candidates above floor: %d", resp.Candidates))
		out.Dim(fmt.Sprintf("%-8s %-8s %-8s %s", "sparse", "dense", "hybrid", "snippet"))
		for _, d := range resp.Diagnostics {
			out.Status("", fmt.Sprintf("%-8.4f %-8.4f %-8.4f %s", d.Sparse, d.Dense, d.Hybrid, d.Snippet))
		}
	}
}
