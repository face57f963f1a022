package export

import (
	"path"
	"strings"

	"github.com/simonhull/magpie/pkg/collector"
	"github.com/simonhull/magpie/pkg/depgraph"
	"github.com/simonhull/magpie/pkg/discovery"
)

type moduleSummary struct {
	Name     string   `json:"name"`
	Root     string   `json:"root"`
	Files    int      `json:"files"`
	Tokens   int      `json:"tokens"`
	Readmes  int      `json:"readmes"`
	Children []string `json:"children"`
}

type runIndex struct {
	Project         string          `json:"project"`
	Root            string          `json:"root"`
	Date            string          `json:"date"`
	Tokenizer       string          `json:"tokenizer"`
	Cancelled       bool            `json:"cancelled"`
	FilesProcessed  int             `json:"files_processed"`
	FilesFiltered   int             `json:"files_filtered"`
	FilesSkipped    int             `json:"files_skipped"`
	ParseErrors     int             `json:"parse_errors"`
	BytesCollected  int64           `json:"bytes_collected"`
	Tokens          int             `json:"tokens"`
	ByExt           map[string]int  `json:"by_ext"`
	SkippedExamples []string        `json:"skipped_examples"`
	Dependencies    depgraph.Stats  `json:"dependencies"`
	Cycles          [][]string      `json:"cycles"`
	Modules         []moduleSummary `json:"modules"`
}

func buildIndex(res *collector.Result, date string) runIndex {
	st := res.Stats
	idx := runIndex{
		Project:         res.Project.Name,
		Root:            res.Project.Root,
		Date:            date,
		Tokenizer:       res.Tokenizer,
		Cancelled:       res.Cancelled,
		FilesProcessed:  st.Processed,
		FilesFiltered:   st.Filtered,
		FilesSkipped:    st.Skipped,
		ParseErrors:     st.ParseErrors,
		BytesCollected:  st.Bytes,
		Tokens:          st.Tokens,
		ByExt:           st.ByExt,
		SkippedExamples: make([]string, 0, min(len(st.Skips), MaxSkipExamples)),
		Dependencies:    res.Graph.Stats(),
		Cycles:          res.Graph.Cycles(),
		Modules:         make([]moduleSummary, 0, len(res.Modules)),
	}
	if idx.ByExt == nil {
		idx.ByExt = map[string]int{}
	}

	for _, s := range st.Skips {
		if len(idx.SkippedExamples) == MaxSkipExamples {
			break
		}
		idx.SkippedExamples = append(idx.SkippedExamples, s.Path+" -> "+s.Reason)
	}

	for _, m := range res.Modules {
		idx.Modules = append(idx.Modules, moduleSummary{
			Name:     m.Name,
			Root:     m.Root,
			Files:    len(m.Code),
			Tokens:   m.Tokens,
			Readmes:  len(m.Readmes),
			Children: m.Children(),
		})
	}
	return idx
}

// renderTree lists the discovered layout. Each directory shows its files
// first, then its subdirectories in walk order.
func renderTree(project string, layout *discovery.Layout) string {
	subdirs := make(map[string][]string, len(layout.Dirs))
	for _, dir := range layout.Dirs {
		if dir != "" {
			parent := discovery.Parent(dir)
			subdirs[parent] = append(subdirs[parent], dir)
		}
	}

	var b strings.Builder
	b.WriteString(project + "/\n")
	var walk func(dir, prefix string)
	walk = func(dir, prefix string) {
		files, dirs := layout.Files[dir], subdirs[dir]
		last := len(files) + len(dirs) - 1
		for i, f := range files {
			branch, _ := treeGlyphs(i == last)
			b.WriteString(prefix + branch + f + "\n")
		}
		for i, d := range dirs {
			branch, indent := treeGlyphs(len(files)+i == last)
			b.WriteString(prefix + branch + path.Base(d) + "/\n")
			walk(d, prefix+indent)
		}
	}
	walk("", "")
	return b.String()
}

func treeGlyphs(last bool) (branch, indent string) {
	if last {
		return "└── ", "    "
	}
	return "├── ", "│   "
}
