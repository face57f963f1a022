// Package depgraph holds the file-level dependency graph of a project:
// deduplicated directed edges between project files, cycle detection, and
// summary metrics.
package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Edge is a directed dependency from one project file to another.
type Edge struct {
	From string
	To   string
}

// Graph is a set of edges. It is not safe for concurrent mutation;
// writers merge into it from a single goroutine.
type Graph struct {
	edges map[Edge]struct{}
	adj   map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		edges: make(map[Edge]struct{}),
		adj:   make(map[string][]string),
	}
}

// Add records from -> to. Duplicates are ignored. It reports whether the
// edge was new.
func (g *Graph) Add(from, to string) bool {
	e := Edge{From: from, To: to}
	if _, ok := g.edges[e]; ok {
		return false
	}
	g.edges[e] = struct{}{}
	g.adj[from] = append(g.adj[from], to)
	return true
}

// Len returns the number of distinct edges.
func (g *Graph) Len() int { return len(g.edges) }

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Mermaid renders the graph as a mermaid flowchart, one line per edge in
// sorted order. An empty graph renders as "".
func (g *Graph) Mermaid() string {
	if g.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("graph TD")
	for _, e := range g.Edges() {
		fmt.Fprintf(&sb, "\n    %q --> %q", e.From, e.To)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Cycles finds circular dependencies using DFS. Each cycle is reported
// once, as the path from the first node reached on the cycle back to the
// node that closes it. Traversal order is sorted, so the result is
// deterministic.
func (g *Graph) Cycles() [][]string {
	cycles := make([][]string, 0)
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range g.sortedNeighbors(node) {
			if !visited[next] {
				dfs(next, path)
				continue
			}
			if !onStack[next] {
				continue
			}
			for i, p := range path {
				if p == next {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes() {
		if !visited[node] {
			dfs(node, nil)
		}
	}
	return cycles
}

// Stats summarizes the graph.
type Stats struct {
	Files      int     `json:"files"`
	Edges      int     `json:"edges"`
	Cycles     int     `json:"cycles"`
	MaxFanIn   int     `json:"max_fan_in"`
	MaxFanOut  int     `json:"max_fan_out"`
	AvgFanOut  float64 `json:"avg_fan_out"`
	MostUsed   string  `json:"most_used,omitempty"`
	MostImport string  `json:"most_importing,omitempty"`
}

// Stats computes summary metrics over the files that take part in at
// least one edge.
func (g *Graph) Stats() Stats {
	fanIn := make(map[string]int)
	for e := range g.edges {
		fanIn[e.To]++
	}

	s := Stats{Edges: g.Len(), Cycles: len(g.Cycles())}
	nodes := g.nodes()
	s.Files = len(nodes)
	for _, n := range nodes {
		if in := fanIn[n]; in > s.MaxFanIn {
			s.MaxFanIn, s.MostUsed = in, n
		}
		if out := len(g.adj[n]); out > s.MaxFanOut {
			s.MaxFanOut, s.MostImport = out, n
		}
	}
	if len(g.adj) > 0 {
		s.AvgFanOut = float64(g.Len()) / float64(len(g.adj))
	}
	return s
}

// nodes returns every file on either end of an edge, sorted.
func (g *Graph) nodes() []string {
	set := make(map[string]struct{}, len(g.adj)*2)
	for e := range g.edges {
		set[e.From] = struct{}{}
		set[e.To] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) sortedNeighbors(node string) []string {
	next := append([]string(nil), g.adj[node]...)
	sort.Strings(next)
	return next
}
