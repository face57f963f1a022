package collector

import (
	"sort"

	"github.com/simonhull/magpie/pkg/depgraph"
	"github.com/simonhull/magpie/pkg/discovery"
)

// Phase is the lifecycle stage of a run. Runs only move forward.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDiscovering
	PhaseProcessing
	PhaseExporting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDiscovering:
		return "discovering"
	case PhaseProcessing:
		return "processing"
	case PhaseExporting:
		return "exporting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Project identifies what to collect.
type Project struct {
	Name         string
	Root         string
	Extensions   []string // included extensions, with leading dot
	SkipDirs     []string // extra directory names to prune
	ExcludeGlobs []string
}

// CodeBlock is one included file.
type CodeBlock struct {
	Path    string
	Tokens  int
	Bytes   int
	Content string
}

// Doc is one readme file.
type Doc struct {
	Path    string
	Content string
}

// Module accumulates the output of one module root.
type Module struct {
	Root      string // project-relative directory, "" for the project root
	Name      string // display name
	Code      []CodeBlock
	Skeletons []string
	Readmes   []Doc
	Tokens    int

	children map[string]struct{}
}

func newModule(root string) *Module {
	return &Module{
		Root:     root,
		Name:     discovery.DisplayName(root),
		children: make(map[string]struct{}),
	}
}

// Children returns the display names of directly nested modules, sorted.
func (m *Module) Children() []string {
	out := make([]string, 0, len(m.children))
	for c := range m.children {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Skip records why a file was left out.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Skip reasons.
const (
	ReasonIgnored   = "ignored"
	ReasonTooLarge  = "too large"
	ReasonExcluded  = "excluded"
	ReasonBinary    = "binary"
	ReasonReadError = "read error"
)

// Stats are the run counters.
type Stats struct {
	Processed   int            // files read and merged
	Filtered    int            // files whose extension is not collected
	Skipped     int            // files dropped with a reason
	ParseErrors int            // processed source files that failed to parse
	Bytes       int64          // bytes of included content
	Tokens      int            // tokens of included content
	ByExt       map[string]int // included files per extension
	Skips       []Skip         // every skip, in discovery order
}

// Result is the outcome of a collection run.
type Result struct {
	Project   Project
	Layout    *discovery.Layout
	Modules   []*Module // creation order
	Graph     *depgraph.Graph
	Stats     Stats
	Phase     Phase
	Cancelled bool
	Tokenizer string
	Artifacts []string // written by the sink, set by Run

	byRoot map[string]*Module
}

func newResult(proj Project) *Result {
	return &Result{
		Project: proj,
		Graph:   depgraph.New(),
		Stats:   Stats{ByExt: make(map[string]int)},
		byRoot:  make(map[string]*Module),
	}
}

// Module returns the accumulator for root, or nil.
func (r *Result) Module(root string) *Module {
	return r.byRoot[root]
}

// ModuleNames returns every module display name, sorted.
func (r *Result) ModuleNames() []string {
	names := make([]string, 0, len(r.Modules))
	for _, m := range r.Modules {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// module returns the accumulator for root, creating it on first use.
func (r *Result) module(root string) *Module {
	if m, ok := r.byRoot[root]; ok {
		return m
	}
	m := newModule(root)
	r.byRoot[root] = m
	r.Modules = append(r.Modules, m)
	return m
}
