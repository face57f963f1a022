// Package discovery walks a project once and records its layout: the
// visited directories and their files, the set of every visited file, and
// the module roots that partition the tree.
package discovery

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/simonhull/magpie/pkg/ignore"
	"github.com/simonhull/magpie/pkg/logger"
	"github.com/simonhull/magpie/pkg/walk"
)

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{
	".git", ".hg", ".svn", ".idea", ".vscode",
	"__pycache__", ".mypy_cache", ".pytest_cache", ".tox", ".cache",
	"node_modules", "dist", "build", "target", ".next", ".nuxt",
	".venv", "venv", "env", ".serverless", ".terraform",
}

// DefaultMarker is the file that, together with a readme, makes a
// directory a module root.
const DefaultMarker = "__init__.py"

// Options configures discovery.
type Options struct {
	Oracle   ignore.Oracle // prunes ignored directories; nil ignores nothing
	SkipDirs []string      // extra directory names added to DefaultSkipDirs
	Marker   string        // package marker file, DefaultMarker when empty
	Logger   logger.Logger
}

// FileSet is the immutable set of project-relative file paths found by
// discovery.
type FileSet struct {
	paths map[string]struct{}
}

// NewFileSet builds a set from paths.
func NewFileSet(paths ...string) *FileSet {
	s := &FileSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.paths[p] = struct{}{}
	}
	return s
}

// Contains reports whether relPath was discovered.
func (s *FileSet) Contains(relPath string) bool {
	_, ok := s.paths[relPath]
	return ok
}

// Len returns the number of files.
func (s *FileSet) Len() int { return len(s.paths) }

// Layout is the result of discovery. It is read-only once returned.
type Layout struct {
	Root     string              // filesystem path of the project root
	Dirs     []string            // visited directories in walk order, "" is the root
	Files    map[string][]string // directory -> file names, sorted
	Roots    []string            // module roots, sorted; always contains ""
	Universe *FileSet

	roots map[string]bool
}

// IsRoot reports whether dir is a module root.
func (l *Layout) IsRoot(dir string) bool { return l.roots[dir] }

// Owner returns the module root owning dir: the longest root that is a
// path-segment prefix of it. The project root owns everything else.
func (l *Layout) Owner(dir string) string {
	for d := dir; ; d = Parent(d) {
		if l.roots[d] {
			return d
		}
		if d == "" {
			return ""
		}
	}
}

// Discover walks root and returns its layout. On cancellation the layout
// gathered so far is returned together with the context error.
func Discover(ctx context.Context, root string, opts Options) (*Layout, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewSilentLogger()
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = ignore.Nop{}
	}
	marker := opts.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	layout := &Layout{
		Root:  root,
		Files: make(map[string][]string),
		roots: map[string]bool{"": true},
	}
	universe := make(map[string]struct{})

	walkOpts := walk.Options{
		SkipDirs: append(append([]string{}, DefaultSkipDirs...), opts.SkipDirs...),
		PruneDir: func(rel string) bool {
			return oracle.IsIgnored(rel + "/")
		},
		OnError: func(p string, err error) {
			log.Warn("Skipping unreadable path", logger.F("path", p), logger.F("error", err))
		},
	}

	err := walk.Walk(ctx, root, walkOpts, func(e walk.Entry) error {
		if e.IsDir {
			layout.Dirs = append(layout.Dirs, e.Rel)
			return nil
		}
		dir := Parent(e.Rel)
		layout.Files[dir] = append(layout.Files[dir], e.Name)
		universe[e.Rel] = struct{}{}
		return nil
	})

	for _, dir := range layout.Dirs {
		if dir != "" && isModuleRoot(layout.Files[dir], marker) {
			layout.roots[dir] = true
		}
	}
	layout.Roots = make([]string, 0, len(layout.roots))
	for r := range layout.roots {
		layout.Roots = append(layout.Roots, r)
	}
	sort.Strings(layout.Roots)
	layout.Universe = &FileSet{paths: universe}

	log.Debug("Discovery finished",
		logger.F("dirs", len(layout.Dirs)),
		logger.F("files", len(universe)),
		logger.F("modules", len(layout.Roots)))

	return layout, err
}

func isModuleRoot(files []string, marker string) bool {
	hasMarker, hasReadme := false, false
	for _, f := range files {
		if f == marker {
			hasMarker = true
		}
		if IsReadme(f) {
			hasReadme = true
		}
	}
	return hasMarker && hasReadme
}

// IsReadme reports whether a file name is a readme, whatever its extension.
func IsReadme(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "readme")
}

// Parent returns the directory of a slash path, "" at the project root.
func Parent(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// DisplayName names the module rooted at rel: segments joined with "-",
// dropping a leading src, lib, or app segment when more follow. The
// project root is "root".
func DisplayName(rel string) string {
	if rel == "" {
		return "root"
	}
	parts := strings.Split(rel, "/")
	if len(parts) > 1 {
		switch parts[0] {
		case "src", "lib", "app":
			parts = parts[1:]
		}
	}
	return strings.Join(parts, "-")
}
