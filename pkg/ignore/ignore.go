// Package ignore decides which project paths are excluded from a
// collection run.
//
// Paths are project-relative and slash-separated. Directory paths carry a
// trailing slash so matchers can apply directory-only rules.
package ignore

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=ignore.go -destination=mockoracle.gen.go -package=ignore

// Oracle reports whether a project-relative path is excluded.
type Oracle interface {
	IsIgnored(relPath string) bool
}

// Nop ignores nothing.
type Nop struct{}

func (Nop) IsIgnored(string) bool { return false }

// Gitignore matches paths against every .gitignore file in a tree.
type Gitignore struct {
	matcher gitignore.Matcher
	count   int
}

// LoadGitignore reads the .gitignore files under root (including nested
// ones and .git/info/exclude). A tree without any yields a matcher that
// ignores nothing.
func LoadGitignore(root string) (*Gitignore, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "reading gitignore patterns under %s", root)
	}
	return &Gitignore{matcher: gitignore.NewMatcher(patterns), count: len(patterns)}, nil
}

// NewGitignore builds a matcher from literal gitignore lines rooted at the
// project root.
func NewGitignore(lines ...string) *Gitignore {
	patterns := make([]gitignore.Pattern, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(l, nil))
	}
	return &Gitignore{matcher: gitignore.NewMatcher(patterns), count: len(patterns)}
}

// Len returns the number of loaded patterns.
func (g *Gitignore) Len() int { return g.count }

func (g *Gitignore) IsIgnored(relPath string) bool {
	rel, isDir := split(relPath)
	if rel == "" {
		return false
	}
	return g.matcher.Match(strings.Split(rel, "/"), isDir)
}

// Globs excludes paths matching any doublestar pattern. A pattern matches
// when it matches either the full relative path or the base name.
type Globs struct {
	patterns []string
}

// NewGlobs validates the patterns and returns the matcher.
func NewGlobs(patterns ...string) (*Globs, error) {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, errors.WithHint(
				errors.Newf("invalid exclude pattern %q", p),
				"exclude patterns use doublestar syntax, e.g. **/*.min.js or docs/*")
		}
		kept = append(kept, p)
	}
	return &Globs{patterns: kept}, nil
}

func (g *Globs) IsIgnored(relPath string) bool {
	rel, _ := split(relPath)
	if rel == "" {
		return false
	}
	base := path.Base(rel)
	for _, p := range g.patterns {
		if doublestar.MatchUnvalidated(p, rel) || doublestar.MatchUnvalidated(p, base) {
			return true
		}
	}
	return false
}

// Any combines oracles; a path is ignored when any of them ignores it.
type Any []Oracle

func (a Any) IsIgnored(relPath string) bool {
	for _, o := range a {
		if o != nil && o.IsIgnored(relPath) {
			return true
		}
	}
	return false
}

func split(relPath string) (string, bool) {
	isDir := strings.HasSuffix(relPath, "/")
	return strings.Trim(relPath, "/"), isDir
}
