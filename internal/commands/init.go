package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/simonhull/magpie/internal/output"
	"github.com/simonhull/magpie/pkg/config"
)

// InitCmd writes a default magpie.yaml.
func InitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a default magpie.yaml",
		Long: `Writes magpie.yaml with the default settings into path (default:
current directory). Edit it to change extensions, skipped directories,
exclude globs, or to add named project profiles.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.DefaultFile)

			if _, err := os.Stat(path); err == nil && !force {
				return errors.WithHint(errors.Newf("%s already exists", path),
					"use --force to overwrite it")
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrapf(err, "creating %s", dir)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			output.Success(fmt.Sprintf("Created %s", path))
			output.Step("magpie collect " + dir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing magpie.yaml")
	return cmd
}
