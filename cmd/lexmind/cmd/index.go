package cmd

import (
	"context"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexmind/internal/output"
	"github.com/Aman-CERP/lexmind/internal/session"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the corpus and report what was indexed",
		Long: `Load every document of the corpus folder, split it into sections,
embed and index the chunks, and print a report.

Indexes live in memory; this command checks a corpus, records its status
in the data directory and, with embeddings.snapshot enabled, warms the
on-disk embedding cache used by later runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd)
		},
	}
}

func runIndex(ctx context.Context, cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())
	out.Statusf("📂", "Indexing %s", cfg.Corpus.Path)

	cs, err := openSession(ctx, session.WithProgress(func(done, total int) {
		out.Progress(done, total, "chunks embedded")
	}))
	if err != nil {
		return err
	}
	defer func() { _ = cs.Close() }()

	if buildErr := cs.Err(); buildErr != nil {
		return buildErr
	}

	printStatus(out, cs.Status())
	return nil
}

// printStatus renders a corpus status for the terminal.
func printStatus(out *output.Writer, st session.Status) {
	if st.Inert {
		out.Warning("Corpus is not indexed")
		if st.LastError != "" {
			out.KeyValue("Last error", st.LastError)
		}
		return
	}

	out.Successf("Generation %d: %d chunks from %d files", st.Generation, st.Chunks, len(st.Sources))
	out.KeyValue("Corpus", st.CorpusPath)
	out.KeyValue("Model", st.Model)
	out.KeyValue("Dimensions", st.Dimensions)
	out.KeyValue("Dense", st.DenseBackend)
	out.KeyValue("Sparse", st.SparseBackend)
	if !st.BuiltAt.IsZero() {
		out.KeyValue("Built", st.BuiltAt.Format(time.RFC3339))
	}
	out.KeyValue("Duration", st.BuildDuration.Round(time.Millisecond))
	if st.ZeroVectors > 0 {
		out.Warningf("%d chunks have no embedding and match keywords only", st.ZeroVectors)
	}

	if len(st.Categories) > 0 {
		out.Newline()
		out.Header("Categories")
		labels := make([]string, 0, len(st.Categories))
		for label := range st.Categories {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			out.KeyValue(label, st.Categories[label])
		}
	}

	if len(st.Skipped) > 0 {
		out.Newline()
		out.Warningf("%d files skipped", len(st.Skipped))
		for _, s := range st.Skipped {
			out.Status("", s.Name+": "+s.Reason)
		}
	}
}
