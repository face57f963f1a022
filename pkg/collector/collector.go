// Package collector runs a collection pass over a project: it discovers
// the layout, processes every eligible file on a bounded worker pool, and
// merges the results into per-module accumulators and a file dependency
// graph.
package collector

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/simonhull/magpie/pkg/discovery"
	"github.com/simonhull/magpie/pkg/ignore"
	"github.com/simonhull/magpie/pkg/imports"
	"github.com/simonhull/magpie/pkg/logger"
	"github.com/simonhull/magpie/pkg/pysyntax"
	"github.com/simonhull/magpie/pkg/skeleton"
	"github.com/simonhull/magpie/pkg/source"
	"github.com/simonhull/magpie/pkg/tokens"
)

// DefaultMaxFileSize is the size ceiling applied when Options leaves it unset.
const DefaultMaxFileSize = 2_000_000

// ErrInvalidRoot is returned when the project root is missing or not a
// directory.
var ErrInvalidRoot = errors.New("invalid project root")

// BinaryExtensions are never read, whatever the project's extensions say.
var BinaryExtensions = map[string]bool{
	".pyc": true, ".pyo": true, ".pyd": true, ".so": true, ".dll": true, ".dylib": true,
	".exe": true, ".bin": true, ".o": true, ".a": true, ".class": true, ".jar": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".webp": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".tgz": true,
	".bz2": true, ".xz": true, ".7z": true, ".rar": true, ".whl": true, ".egg": true,
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true,
	".db": true, ".sqlite": true, ".sqlite3": true, ".pkl": true, ".npy": true, ".parquet": true,
}

// Options configures a Collector.
type Options struct {
	MaxFileSize  int64         // files larger than this are skipped; DefaultMaxFileSize when 0
	Workers      int           // worker pool size; runtime.NumCPU() when <= 0
	ParseTimeout time.Duration // per-file parse deadline; pysyntax.DefaultTimeout when 0
	UseGitignore bool          // honor .gitignore files
	Profile      imports.Profile
}

// Progress reports processing progress. It is delivered from worker
// goroutines.
type Progress struct {
	Phase Phase
	Done  int
	Total int
}

// Sink receives a finished result. It returns the paths it wrote.
type Sink interface {
	Export(ctx context.Context, res *Result) ([]string, error)
}

// Collector runs collection passes. Configure it with the With* methods
// before the first run.
type Collector struct {
	opts     Options
	reader   source.Reader
	counter  tokens.Counter
	oracle   ignore.Oracle
	parser   *pysyntax.Parser
	logger   logger.Logger
	progress func(Progress)
}

// New creates a collector with the heuristic token counter and the disk
// reader.
func New(opts Options) *Collector {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Profile.Ext == "" {
		opts.Profile = imports.Python
	}
	return &Collector{
		opts:    opts,
		reader:  source.NewReader(opts.MaxFileSize),
		counter: tokens.NewHeuristic(),
		parser:  pysyntax.NewParser(opts.ParseTimeout),
		logger:  logger.NewSilentLogger(),
	}
}

// WithLogger sets a custom logger
func (c *Collector) WithLogger(l logger.Logger) *Collector {
	c.logger = l
	return c
}

// WithReader replaces the text reader.
func (c *Collector) WithReader(r source.Reader) *Collector {
	c.reader = r
	return c
}

// WithCounter replaces the token counter.
func (c *Collector) WithCounter(tc tokens.Counter) *Collector {
	c.counter = tc
	return c
}

// WithOracle adds an ignore oracle consulted after the project's
// .gitignore files.
func (c *Collector) WithOracle(o ignore.Oracle) *Collector {
	c.oracle = o
	return c
}

// WithProgress installs a progress callback.
func (c *Collector) WithProgress(fn func(Progress)) *Collector {
	c.progress = fn
	return c
}

// job is one discovered file.
type job struct {
	rel   string
	abs   string
	owner string
}

// outcome is what processing one file produced. Workers write only their
// own slot; the merge step reads them in discovery order.
type outcome struct {
	done     bool
	skip     string
	filtered bool
	ext      string

	readme   bool
	included bool
	text     string
	tokens   int

	skeleton string
	parseErr error
	edges    []string
}

// Run collects proj and hands the result to sink. A cancelled collection
// is still exported, flagged as cancelled.
func (c *Collector) Run(ctx context.Context, proj Project, sink Sink) (*Result, error) {
	res, err := c.Collect(ctx, proj)
	if err != nil {
		return res, err
	}

	c.setPhase(res, PhaseExporting)
	paths, err := sink.Export(context.WithoutCancel(ctx), res)
	if err != nil {
		return res, err
	}
	res.Artifacts = paths
	c.setPhase(res, PhaseDone)
	return res, nil
}

// Collect discovers and processes proj. Per-file failures are recorded in
// the result; only an invalid root is an error. Cancellation yields a
// consistent partial result with Cancelled set and a nil error.
func (c *Collector) Collect(ctx context.Context, proj Project) (*Result, error) {
	root, err := validateRoot(proj.Root)
	if err != nil {
		return nil, err
	}
	proj.Root = root
	if proj.Name == "" {
		proj.Name = filepath.Base(root)
	}

	res := newResult(proj)
	res.Tokenizer = c.counter.Name()

	oracle, err := c.projectOracle(root)
	if err != nil {
		return nil, err
	}
	globs, err := ignore.NewGlobs(proj.ExcludeGlobs...)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithFields(logger.F("project", proj.Name))
	log.Info("Starting collection",
		logger.F("root", root),
		logger.F("workers", c.opts.Workers),
		logger.F("tokenizer", res.Tokenizer))

	c.setPhase(res, PhaseDiscovering)
	layout, err := discovery.Discover(ctx, root, discovery.Options{
		Oracle:   oracle,
		SkipDirs: proj.SkipDirs,
		Marker:   c.opts.Profile.InitFile,
		Logger:   log,
	})
	res.Layout = layout
	if err != nil {
		if ctx.Err() != nil {
			res.Cancelled = true
			log.Warn("Collection cancelled during discovery")
			return res, nil
		}
		return nil, errors.Wrapf(err, "walking %s", root)
	}

	warnNameClashes(layout.Roots, log)

	c.setPhase(res, PhaseProcessing)
	jobs, byDir := buildJobs(layout)
	outcomes := c.processAll(ctx, jobs, &fileEnv{
		oracle:   oracle,
		globs:    globs,
		exts:     extensionSet(proj.Extensions),
		resolver: imports.NewResolver(layout.Universe, c.opts.Profile),
		log:      log,
	})

	c.merge(res, layout, jobs, byDir, outcomes, log)

	if ctx.Err() != nil {
		res.Cancelled = true
		log.Warn("Collection cancelled", logger.F("processed", res.Stats.Processed), logger.F("files", len(jobs)))
	}

	log.Info("Collection complete",
		logger.F("modules", len(res.Modules)),
		logger.F("processed", res.Stats.Processed),
		logger.F("skipped", res.Stats.Skipped),
		logger.F("edges", res.Graph.Len()),
		logger.F("tokens", res.Stats.Tokens))

	return res, nil
}

func validateRoot(root string) (string, error) {
	if root == "" {
		return "", errors.WithHint(errors.Wrap(ErrInvalidRoot, "no root given"),
			"pass the directory to collect, e.g. magpie collect ./myproject")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidRoot, "%s: %v", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.WithHint(errors.Wrapf(ErrInvalidRoot, "%s: %v", abs, err),
			"check that the path exists and is readable")
	}
	if !info.IsDir() {
		return "", errors.WithHint(errors.Wrapf(ErrInvalidRoot, "%s is not a directory", abs),
			"magpie collects whole directory trees; pass the project folder")
	}
	return abs, nil
}

// projectOracle combines the project's .gitignore files, when enabled,
// with the oracle given to WithOracle.
func (c *Collector) projectOracle(root string) (ignore.Oracle, error) {
	var oracles ignore.Any
	if c.opts.UseGitignore {
		gi, err := ignore.LoadGitignore(root)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("Loaded gitignore patterns", logger.F("patterns", gi.Len()))
		oracles = append(oracles, gi)
	}
	if c.oracle != nil {
		oracles = append(oracles, c.oracle)
	}
	return oracles, nil
}

// warnNameClashes logs module roots that share a display name. Their
// artifacts land on the same paths, so the later root overwrites the
// earlier one.
func warnNameClashes(roots []string, log logger.Logger) {
	seen := make(map[string]string, len(roots))
	for _, r := range roots {
		name := discovery.DisplayName(r)
		first, ok := seen[name]
		if !ok {
			seen[name] = r
			continue
		}
		log.Warn("Module roots share a name",
			logger.F("name", name),
			logger.F("first", rootLabel(first)),
			logger.F("second", rootLabel(r)))
	}
}

func rootLabel(dir string) string {
	if dir == "" {
		return "."
	}
	return dir + "/"
}

func (c *Collector) setPhase(res *Result, p Phase) {
	res.Phase = p
	if c.progress != nil {
		c.progress(Progress{Phase: p})
	}
}

func buildJobs(layout *discovery.Layout) ([]job, [][2]int) {
	var jobs []job
	byDir := make([][2]int, len(layout.Dirs))
	for i, dir := range layout.Dirs {
		owner := layout.Owner(dir)
		start := len(jobs)
		for _, name := range layout.Files[dir] {
			rel := path.Join(dir, name)
			jobs = append(jobs, job{
				rel:   rel,
				abs:   filepath.Join(layout.Root, filepath.FromSlash(rel)),
				owner: owner,
			})
		}
		byDir[i] = [2]int{start, len(jobs)}
	}
	return jobs, byDir
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

type fileEnv struct {
	oracle   ignore.Oracle
	globs    ignore.Oracle
	exts     map[string]bool
	resolver *imports.Resolver
	log      logger.Logger
}

func (c *Collector) processAll(ctx context.Context, jobs []job, env *fileEnv) []outcome {
	outcomes := make([]outcome, len(jobs))
	var done atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(c.opts.Workers)
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		i := i // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out := c.process(ctx, jobs[i], env)
			if ctx.Err() != nil {
				return nil
			}
			out.done = true
			outcomes[i] = out
			if c.progress != nil {
				c.progress(Progress{Phase: PhaseProcessing, Done: int(done.Add(1)), Total: len(jobs)})
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Collector) process(ctx context.Context, j job, env *fileEnv) outcome {
	name := path.Base(j.rel)
	out := outcome{ext: strings.ToLower(path.Ext(name))}

	if env.oracle.IsIgnored(j.rel) {
		out.skip = ReasonIgnored
		return out
	}
	info, err := os.Stat(j.abs)
	if err != nil {
		out.skip = fmt.Sprintf("%s: %v", ReasonReadError, err)
		return out
	}
	if info.Size() > c.opts.MaxFileSize {
		out.skip = fmt.Sprintf("%s (%d bytes)", ReasonTooLarge, info.Size())
		return out
	}
	if env.globs.IsIgnored(j.rel) {
		out.skip = ReasonExcluded
		return out
	}
	if BinaryExtensions[out.ext] {
		out.skip = ReasonBinary
		return out
	}

	out.readme = discovery.IsReadme(name)
	out.included = env.exts[out.ext]
	if !out.readme && !out.included {
		out.filtered = true
		return out
	}

	text, err := c.reader.ReadText(j.abs)
	if err != nil {
		out.skip = fmt.Sprintf("%s: %v", ReasonReadError, err)
		return out
	}
	out.text = text

	if !out.included {
		return out
	}
	out.tokens = c.counter.Count(text)

	if out.ext != c.opts.Profile.Ext {
		return out
	}
	parsed := c.parser.Parse(ctx, []byte(text))
	if !parsed.OK() {
		out.parseErr = parsed.Err
		out.skeleton = skeleton.RenderError(j.rel, parsed.Err)
		return out
	}
	out.skeleton = skeleton.Render(parsed.Module, j.rel)
	for _, ref := range imports.Extract(parsed.Module) {
		if target, ok := env.resolver.Resolve(j.rel, ref); ok {
			out.edges = append(out.edges, target)
		}
	}
	return out
}

// merge folds outcomes into the result on the calling goroutine, directory
// by directory in discovery order, so the output never depends on worker
// scheduling.
func (c *Collector) merge(res *Result, layout *discovery.Layout, jobs []job, byDir [][2]int, outcomes []outcome, log logger.Logger) {
	for i, dir := range layout.Dirs {
		if dir != "" && layout.IsRoot(dir) {
			parent := res.module(layout.Owner(discovery.Parent(dir)))
			parent.children[discovery.DisplayName(dir)] = struct{}{}
		}

		span := byDir[i]
		for k := span[0]; k < span[1]; k++ {
			out := outcomes[k]
			if !out.done {
				continue
			}
			c.mergeOne(res, jobs[k], out, log)
		}
	}
}

func (c *Collector) mergeOne(res *Result, j job, out outcome, log logger.Logger) {
	st := &res.Stats
	switch {
	case out.skip != "":
		st.Skipped++
		st.Skips = append(st.Skips, Skip{Path: j.rel, Reason: out.skip})
		log.Debug("Skipped file", logger.F("path", j.rel), logger.F("reason", out.skip))
		return
	case out.filtered:
		st.Filtered++
		return
	}

	st.Processed++
	mod := res.module(j.owner)

	if out.readme {
		mod.Readmes = append(mod.Readmes, Doc{Path: j.rel, Content: out.text})
	}
	if !out.included {
		return
	}

	mod.Code = append(mod.Code, CodeBlock{Path: j.rel, Tokens: out.tokens, Bytes: len(out.text), Content: out.text})
	mod.Tokens += out.tokens
	st.Tokens += out.tokens
	st.Bytes += int64(len(out.text))
	st.ByExt[out.ext]++

	if out.skeleton != "" {
		mod.Skeletons = append(mod.Skeletons, out.skeleton)
	}
	if out.parseErr != nil {
		st.ParseErrors++
		log.Warn("Failed to parse file", logger.F("path", j.rel), logger.F("error", out.parseErr))
	}
	for _, target := range out.edges {
		res.Graph.Add(j.rel, target)
	}
}
