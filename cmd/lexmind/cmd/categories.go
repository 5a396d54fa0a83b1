package cmd

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexmind/internal/chunk"
	"github.com/Aman-CERP/lexmind/internal/output"
	"github.com/Aman-CERP/lexmind/internal/session"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List chunk categories and their keywords",
		Long: `List the categories chunks are assigned to, the keywords that select
each one, and the chunk counts of the last indexed corpus.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			var counts map[string]int
			if st, err := session.LoadStatus(cfg.Storage.DataDir); err == nil {
				counts = st.Categories
			}

			for _, label := range chunk.Categories() {
				header := label
				if counts != nil {
					header = label + " (" + strconv.Itoa(counts[label]) + ")"
				}
				out.Header(header)
				if kw := chunk.Keywords(label); len(kw) > 0 {
					out.Dim("   " + strings.Join(kw, ", "))
				} else {
					out.Dim("   (no keyword matched)")
				}
			}
			return nil
		},
	}
}
