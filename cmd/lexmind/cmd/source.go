package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
	"github.com/Aman-CERP/lexmind/internal/ingest"
	"github.com/Aman-CERP/lexmind/internal/output"
)

func newSourceCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "source <name>",
		Short: "Write an original corpus file",
		Long: `Write the original file a result came from, by its source name, to
stdout or to a file. A file that is no longer in the corpus folder is
reported as a notice.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSource(cmd, args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func runSource(cmd *cobra.Command, name, outPath string) error {
	src, err := ingest.NewSourceStore(cfg.Corpus.Path).Open(name)
	if err != nil {
		if lexerrors.GetCode(err) == lexerrors.ErrCodeSourceMissing {
			output.New(cmd.ErrOrStderr()).Warningf("%s is not available in %s", name, cfg.Corpus.Path)
			return nil
		}
		return err
	}
	defer func() { _ = src.Close() }()

	if outPath == "" {
		_, err := io.Copy(cmd.OutOrStdout(), src)
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Successf("Wrote %s (%d bytes)", outPath, n)
	return nil
}
