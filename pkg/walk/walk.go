// Package walk traverses a source tree in a deterministic depth-first,
// lexical order while pruning hidden, denylisted, and caller-rejected
// directories.
package walk

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// Entry is one visited file or directory.
type Entry struct {
	Path  string // root-joined filesystem path
	Rel   string // slash-separated path relative to the root, "" for the root itself
	Name  string
	IsDir bool
}

// Options configures directory traversal behavior
type Options struct {
	SkipDirs      []string                     // Directory base names to prune
	IncludeHidden bool                         // Descend into dot-directories (default: false)
	PruneDir      func(rel string) bool        // Extra pruning predicate, called with the directory's rel path
	OnError       func(path string, err error) // Called for unreadable entries below the root
}

// Walk calls visit for every directory and file under root in lexical
// order. Returning filepath.SkipDir from visit for a directory skips it.
// Hidden and denylisted directories are never passed to visit. The
// context is checked at every directory; on cancellation Walk stops and
// returns ctx.Err().
func Walk(ctx context.Context, root string, opts Options, visit func(Entry) error) error {
	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[d] = true
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel := RelSlash(root, path)

		if d.IsDir() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if rel != "" {
				name := d.Name()
				if skip[name] || (!opts.IncludeHidden && strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				if opts.PruneDir != nil && opts.PruneDir(rel) {
					return filepath.SkipDir
				}
			}
		}

		return visit(Entry{Path: path, Rel: rel, Name: d.Name(), IsDir: d.IsDir()})
	})
}

// RelSlash returns path relative to root with forward slashes, or "" for
// the root itself.
func RelSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
