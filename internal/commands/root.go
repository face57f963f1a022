package commands

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/simonhull/magpie"
	"github.com/simonhull/magpie/internal/output"
	"github.com/simonhull/magpie/pkg/config"
	"github.com/simonhull/magpie/pkg/logger"
)

// skipConfig marks commands that must run without loading magpie.yaml.
const skipConfig = "magpie/skip-config"

// session is what PersistentPreRunE prepares for every command.
type session struct {
	cfg *config.Config
	log logger.Logger
}

var current = &session{
	cfg: config.Default(),
	log: logger.NewSilentLogger(),
}

// RootCmd creates and returns the root command for the magpie CLI
func RootCmd() *cobra.Command {
	var (
		verbose    bool
		logJSON    bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "magpie",
		Short: "Digest a Python source tree into LLM-ready text artifacts",
		Long: `Magpie walks a Python project, splits it into modules, and exports
per-module source bundles, API skeletons, merged readmes and a file
dependency graph, with token counts for every piece.

Example:
  magpie collect ./myproject
  magpie collect --project backend --dry-run
  magpie skeleton app/service.py`,
		Version:       magpie.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			output.SetVerbose(verbose)

			cfg := config.Default()
			if cmd.Annotations[skipConfig] == "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			level := cfg.LogLevel()
			if verbose {
				level = logger.LevelDebug
			}
			var log logger.Logger
			if logJSON || cfg.Log.JSON {
				log = logger.NewJSONLogger(level, os.Stderr)
			} else {
				log = logger.NewLogger(level, os.Stderr)
			}
			logger.SetDefault(log)

			current = &session{cfg: cfg, log: log}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: ./magpie.yaml if present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON on stderr")

	return cmd
}

// VersionCmd prints the version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "magpie v%s\n", magpie.Version)
		},
	}
}

// ReportError prints a fatal error and any hints attached to it.
func ReportError(err error) {
	output.Error(err.Error())
	if hint := errors.FlattenHints(err); hint != "" {
		output.Step("hint: " + hint)
	}
}
