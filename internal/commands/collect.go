package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/simonhull/magpie/internal/output"
	"github.com/simonhull/magpie/pkg/collector"
	"github.com/simonhull/magpie/pkg/config"
	"github.com/simonhull/magpie/pkg/export"
	"github.com/simonhull/magpie/pkg/logger"
	"github.com/simonhull/magpie/pkg/tokens"
)

type collectFlags struct {
	name      string
	project   string
	out       string
	exts      []string
	skipDirs  []string
	excludes  []string
	maxBytes  int64
	gitignore bool
	workers   int
	dryRun    bool
}

// CollectCmd creates the collect command
func CollectCmd() *cobra.Command {
	var f collectFlags

	cmd := &cobra.Command{
		Use:   "collect [path]",
		Short: "Collect a project into export artifacts",
		Long: `Walks the project at path (default: current directory), groups files
into modules, and writes the artifacts under <out>/<name>/.

Press Ctrl-C to stop early: files already processed are still exported
and the run is marked partial.

Example:
  magpie collect ./myproject
  magpie collect ./myproject --name demo -o ./exports --exclude "*_pb2.py"
  magpie collect --project backend --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := resolveProject(cmd, current.cfg, f, args)
			if err != nil {
				return err
			}
			return runCollect(cmd.Context(), cmd, current, f, proj)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "Project name used for the export directory (default: directory name)")
	flags.StringVar(&f.project, "project", "", "Use a named project profile from magpie.yaml")
	flags.StringVarP(&f.out, "out", "o", "", "Export directory (default: export.dir from config)")
	flags.StringSliceVar(&f.exts, "ext", nil, "File extensions to collect, e.g. --ext .py,.md")
	flags.StringSliceVar(&f.skipDirs, "skip-dirs", nil, "Extra directory names to skip")
	flags.StringSliceVar(&f.excludes, "exclude", nil, "Glob patterns of files to exclude")
	flags.Int64Var(&f.maxBytes, "max-bytes", 0, "Skip files larger than this many bytes")
	flags.BoolVar(&f.gitignore, "gitignore", true, "Honor .gitignore files")
	flags.IntVar(&f.workers, "workers", 0, "Number of parallel workers (default: one per CPU)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "List the artifacts that would be written without writing them")

	return cmd
}

// resolveProject merges the config's collect section, an optional named
// profile, and explicitly set flags, in that order.
func resolveProject(cmd *cobra.Command, cfg *config.Config, f collectFlags, args []string) (collector.Project, error) {
	proj := collector.Project{
		Extensions:   cfg.Collect.Extensions,
		SkipDirs:     cfg.Collect.SkipDirs,
		ExcludeGlobs: cfg.Collect.ExcludeGlobs,
	}

	root := "."
	if f.project != "" {
		p, ok := cfg.Project(f.project)
		if !ok {
			return proj, errors.WithHint(errors.Newf("unknown project %q", f.project),
				"define it under projects: in magpie.yaml")
		}
		if len(args) > 0 {
			return proj, errors.New("pass either a path or --project, not both")
		}
		root = p.Path
		proj.Name = f.project
		if len(p.Extensions) > 0 {
			proj.Extensions = p.Extensions
		}
		if len(p.SkipDirs) > 0 {
			proj.SkipDirs = p.SkipDirs
		}
		if len(p.ExcludeGlobs) > 0 {
			proj.ExcludeGlobs = p.ExcludeGlobs
		}
	}
	if len(args) > 0 {
		root = args[0]
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return proj, errors.Wrapf(err, "resolving %s", root)
	}
	proj.Root = abs

	changed := cmd.Flags().Changed
	if changed("name") {
		proj.Name = f.name
	}
	if proj.Name == "" {
		proj.Name = filepath.Base(abs)
	}
	if changed("ext") {
		proj.Extensions = f.exts
	}
	if changed("skip-dirs") {
		proj.SkipDirs = append(append([]string{}, proj.SkipDirs...), f.skipDirs...)
	}
	if changed("exclude") {
		proj.ExcludeGlobs = append(append([]string{}, proj.ExcludeGlobs...), f.excludes...)
	}
	return proj, nil
}

func collectorOptions(cmd *cobra.Command, cfg *config.Config, f collectFlags) collector.Options {
	opts := collector.Options{
		MaxFileSize:  cfg.Collect.MaxFileSize,
		Workers:      cfg.Collect.Workers,
		ParseTimeout: cfg.Collect.ParseTimeout,
		UseGitignore: cfg.Collect.Gitignore,
	}
	changed := cmd.Flags().Changed
	if changed("max-bytes") {
		opts.MaxFileSize = f.maxBytes
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("gitignore") {
		opts.UseGitignore = f.gitignore
	}
	return opts
}

func runCollect(ctx context.Context, cmd *cobra.Command, s *session, f collectFlags, proj collector.Project) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	counter, err := tokens.New(s.cfg.Collect.Tokenizer)
	if err != nil {
		s.log.Warn("Falling back to heuristic token counts", logger.F("error", err))
	}

	outDir := s.cfg.Export.Dir
	if cmd.Flags().Changed("out") {
		outDir = f.out
	}
	if glob, ok := exportGlob(proj.Root, outDir); ok {
		proj.ExcludeGlobs = append(append([]string{}, proj.ExcludeGlobs...), glob)
	}

	spin := output.StartSpinner("discovering")
	c := collector.New(collectorOptions(cmd, s.cfg, f)).
		WithLogger(s.log).
		WithCounter(counter).
		WithProgress(func(p collector.Progress) {
			spin.Update(p.Phase.String(), p.Done, p.Total)
		})
	exp := export.New(outDir).
		WithDryRun(f.dryRun).
		WithLogger(s.log)

	output.Verbose(fmt.Sprintf("Collecting %s from %s", proj.Name, proj.Root))
	res, err := c.Run(ctx, proj, exp)
	spin.Stop(err)
	if err != nil {
		return err
	}

	printSummary(res, exp.Dir(res.Project.Name), f.dryRun)
	return nil
}

// exportGlob returns an exclude pattern covering outDir when it lies
// inside root, so earlier exports are never collected again.
func exportGlob(root, outDir string) (string, bool) {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel) + "/**", true
}

func printSummary(res *collector.Result, dir string, dryRun bool) {
	if res.Cancelled {
		output.Warn("Collection was interrupted; the export holds a partial result")
	}

	st := res.Stats
	deps := res.Graph.Stats()
	if dryRun {
		output.Info(fmt.Sprintf("Dry run for %s, nothing was written", res.Project.Name))
	} else {
		output.Success(fmt.Sprintf("Collected %s", res.Project.Name))
	}
	output.Field("Modules", len(res.Modules))
	output.Field("Files", st.Processed)
	output.Field("Skipped", st.Skipped)
	output.Field("Parse errors", st.ParseErrors)
	output.Field("Tokens", fmt.Sprintf("%d (%s)", st.Tokens, res.Tokenizer))
	output.Field("Dependencies", deps.Edges)
	if deps.Cycles > 0 {
		output.Warn(fmt.Sprintf("%d import cycle(s) found, see index.json", deps.Cycles))
	}

	if dryRun {
		output.Info("Would write:")
	} else {
		output.Info(fmt.Sprintf("Output: %s", dir))
		if !output.IsVerbose() {
			return
		}
	}
	for _, p := range res.Artifacts {
		if rel, err := filepath.Rel(dir, p); err == nil {
			p = rel
		}
		output.Step(p)
	}
}
