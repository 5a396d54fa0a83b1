package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/lexmind/internal/output"
	"github.com/Aman-CERP/lexmind/internal/session"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the last corpus build",
		Long:  `Show the status recorded by the last index, search or serve run, without rebuilding.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := session.LoadStatus(cfg.Storage.DataDir)
			if err != nil {
				output.New(cmd.OutOrStdout()).Warning("No build recorded yet; run 'lexmind index'")
				return nil
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(output.New(cmd.OutOrStdout()), *st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
