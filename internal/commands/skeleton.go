package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/simonhull/magpie/internal/output"
	"github.com/simonhull/magpie/pkg/pysyntax"
	"github.com/simonhull/magpie/pkg/skeleton"
	"github.com/simonhull/magpie/pkg/source"
	"github.com/simonhull/magpie/pkg/tokens"
)

// SkeletonCmd prints the API skeleton of a single Python file.
func SkeletonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skeleton <file.py>",
		Short: "Print the API skeleton of one Python file",
		Long: `Parses a Python file and prints its signatures, docstring summaries
and return digests, the same text collect writes to signatures/.

Example:
  magpie skeleton app/service.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := current.cfg
			path := args[0]

			text, err := source.NewReader(cfg.Collect.MaxFileSize).ReadText(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}

			res := pysyntax.NewParser(cfg.Collect.ParseTimeout).Parse(cmd.Context(), []byte(text))
			var out string
			if res.OK() {
				out = skeleton.Render(res.Module, path)
			} else {
				out = skeleton.RenderError(path, res.Err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)

			if output.IsVerbose() {
				counter, _ := tokens.New(cfg.Collect.Tokenizer)
				output.Verbose(fmt.Sprintf("%d source tokens, %d skeleton tokens (%s)",
					counter.Count(text), counter.Count(out), counter.Name()))
			}
			return nil
		},
	}
}
