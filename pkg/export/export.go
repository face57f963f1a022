// Package export writes a collection result to disk as a set of text
// artifacts: per-module source bundles and API skeletons, the merged
// readmes, the module list, the dependency graph, a run index and a tree
// listing.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/simonhull/magpie/pkg/collector"
	"github.com/simonhull/magpie/pkg/logger"
)

// ErrUnwritable is returned when the export directory cannot be created
// or written to.
var ErrUnwritable = errors.New("export directory is not writable")

// Artifact names, relative to the project's export directory.
const (
	CodeDir          = "code"
	SignaturesDir    = "signatures"
	ReadmesFile      = "readmes/ALL_READMES.md"
	ArchitectureFile = "architecture.json"
	MermaidFile      = "dependencies.mermaid"
	IndexFile        = "index.json"
	TreeFile         = "tree.txt"
)

// MaxSkipExamples bounds the skip list kept in the index.
const MaxSkipExamples = 50

var separator = strings.Repeat("=", 40)

// Artifact is one planned output file.
type Artifact struct {
	Path    string // slash path relative to the project export directory
	Content []byte
}

// Description returns a human-readable summary for dry runs.
func (a Artifact) Description() string {
	return fmt.Sprintf("Write %s (%d bytes)", a.Path, len(a.Content))
}

// Exporter writes results under <baseDir>/<project>/.
type Exporter struct {
	baseDir string
	now     func() time.Time
	dryRun  bool
	logger  logger.Logger
}

// New creates an exporter rooted at baseDir.
func New(baseDir string) *Exporter {
	return &Exporter{
		baseDir: baseDir,
		now:     time.Now,
		logger:  logger.NewSilentLogger(),
	}
}

// WithClock fixes the time stamped into artifacts.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// WithDryRun makes Export plan artifacts without touching the disk.
func (e *Exporter) WithDryRun(dry bool) *Exporter {
	e.dryRun = dry
	return e
}

// WithLogger sets a custom logger
func (e *Exporter) WithLogger(l logger.Logger) *Exporter {
	e.logger = l
	return e
}

// Dir returns the directory a project's artifacts go to.
func (e *Exporter) Dir(project string) string {
	return filepath.Join(e.baseDir, project)
}

// Export writes every artifact of res and returns their paths. All files
// are written or none are: a failed write restores what was there before.
// In dry-run mode the planned paths are returned and nothing is written.
func (e *Exporter) Export(ctx context.Context, res *collector.Result) ([]string, error) {
	dir := e.Dir(res.Project.Name)
	artifacts, err := e.Plan(res)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(a.Path)))
	}

	if e.dryRun {
		for _, a := range artifacts {
			e.logger.Info("Dry run", logger.F("artifact", a.Description()))
		}
		return paths, nil
	}

	if err := ensureWritable(dir); err != nil {
		return nil, err
	}

	tx := NewTransaction()
	for i, a := range artifacts {
		tx.AddFile(paths[i], a.Content, 0644)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrapf(err, "exporting %s", res.Project.Name)
	}

	e.logger.Info("Export complete", logger.F("dir", dir), logger.F("files", len(paths)))
	return paths, nil
}

// ensureWritable creates dir and proves a file can be written in it.
func ensureWritable(dir string) error {
	hint := "choose another directory with --out or fix its permissions"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WithHint(errors.Wrapf(ErrUnwritable, "%s: %v", dir, err), hint)
	}
	probe, err := os.CreateTemp(dir, ".magpie-probe-*")
	if err != nil {
		return errors.WithHint(errors.Wrapf(ErrUnwritable, "%s: %v", dir, err), hint)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

// Plan renders every artifact of res in a fixed order.
func (e *Exporter) Plan(res *collector.Result) ([]Artifact, error) {
	date := e.now().Format("2006-01-02")
	var out []Artifact

	for _, m := range res.Modules {
		out = append(out, Artifact{
			Path:    CodeDir + "/" + m.Name + ".txt",
			Content: []byte(moduleBundle(m, date, res.Cancelled)),
		})
		if len(m.Skeletons) > 0 {
			out = append(out, Artifact{
				Path:    SignaturesDir + "/" + m.Name + "_API.txt",
				Content: []byte(strings.Join(m.Skeletons, "\n")),
			})
		}
	}

	if readmes := allReadmes(res.Modules); readmes != "" {
		out = append(out, Artifact{Path: ReadmesFile, Content: []byte(readmes)})
	}

	arch, err := encodeJSON(struct {
		Project string   `json:"project"`
		Modules []string `json:"modules"`
	}{Project: res.Project.Name, Modules: res.ModuleNames()})
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{Path: ArchitectureFile, Content: arch})

	if mermaid := res.Graph.Mermaid(); mermaid != "" {
		out = append(out, Artifact{Path: MermaidFile, Content: []byte(mermaid)})
	}

	index, err := encodeJSON(buildIndex(res, date))
	if err != nil {
		return nil, err
	}
	out = append(out, Artifact{Path: IndexFile, Content: index})

	if res.Layout != nil {
		out = append(out, Artifact{Path: TreeFile, Content: []byte(renderTree(res.Project.Name, res.Layout))})
	}
	return out, nil
}

func moduleBundle(m *collector.Module, date string, partial bool) string {
	lines := []string{
		"# MODULE: " + m.Name,
		"# DATE: " + date,
		fmt.Sprintf("# TOTAL TOKENS: %d (approx. %.1fk)", m.Tokens, float64(m.Tokens)/1000),
	}
	if partial {
		lines = append(lines, "# STATUS: partial, collection was cancelled")
	}
	lines = append(lines, "")

	if children := m.Children(); len(children) > 0 {
		lines = append(lines, "# >>> INCLUDED SUBMODULES:")
		for _, c := range children {
			lines = append(lines, "#     - "+c)
		}
		lines = append(lines, "# "+strings.Repeat("-", 30))
	}

	for _, d := range m.Readmes {
		lines = append(lines, fmt.Sprintf("\n# DOCUMENTATION (%s):\n%s\n", d.Path, d.Content))
	}
	for _, b := range m.Code {
		lines = append(lines, codeHeader(b)+b.Content)
	}
	return strings.Join(lines, "\n")
}

func codeHeader(b collector.CodeBlock) string {
	return fmt.Sprintf("\n%s\nFILE: %s\nTOKENS: %d\nSIZE: %d bytes\n%s\n", separator, b.Path, b.Tokens, b.Bytes, separator)
}

func allReadmes(mods []*collector.Module) string {
	var parts []string
	for _, m := range mods {
		for _, d := range m.Readmes {
			parts = append(parts, fmt.Sprintf("\n%s\nFILE: %s\n%s\n%s", separator, d.Path, separator, d.Content))
		}
	}
	return strings.Join(parts, "\n")
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding json")
	}
	return buf.Bytes(), nil
}
