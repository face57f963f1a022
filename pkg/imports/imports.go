// Package imports turns the import statements of a parsed file into
// project-relative file paths.
package imports

import (
	"path"
	"strings"

	"github.com/simonhull/magpie/pkg/pysyntax"
)

// Reference is one imported name. Depth 0 is an absolute import; depth n
// is relative and climbs n-1 directories above the importing file's
// directory.
type Reference struct {
	Name  string
	Depth int
}

// Relative reports whether r is a relative import.
func (r Reference) Relative() bool { return r.Depth > 0 }

// Extract lists the references of a parsed module in source order. A nil
// module (parse failure) has no references.
func Extract(mod *pysyntax.Module) []Reference {
	if mod == nil || len(mod.Imports) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(mod.Imports))
	for _, imp := range mod.Imports {
		refs = append(refs, Reference{Name: imp.Module, Depth: imp.Level})
	}
	return refs
}

// Profile carries the language conventions the resolver relies on.
type Profile struct {
	Ext        string   // source file extension, e.g. ".py"
	InitFile   string   // package marker, e.g. "__init__.py"
	SourceDirs []string // conventional source roots tried for absolute imports
}

// Python is the profile for Python projects.
var Python = Profile{
	Ext:        ".py",
	InitFile:   "__init__.py",
	SourceDirs: []string{"src"},
}

// Universe is the set of files an import may resolve to.
type Universe interface {
	Contains(relPath string) bool
}

// Resolver maps references to files in a Universe.
type Resolver struct {
	universe Universe
	profile  Profile
}

// NewResolver creates a resolver over universe.
func NewResolver(universe Universe, profile Profile) *Resolver {
	return &Resolver{universe: universe, profile: profile}
}

// Resolve returns the project-relative path ref points at from the file
// at from, or false when no candidate exists in the universe.
func (r *Resolver) Resolve(from string, ref Reference) (string, bool) {
	for _, c := range r.Candidates(from, ref) {
		if r.universe.Contains(c) {
			return c, true
		}
	}
	return "", false
}

// Candidates returns the paths tried for ref, in priority order.
func (r *Resolver) Candidates(from string, ref Reference) []string {
	rel := strings.ReplaceAll(ref.Name, ".", "/")

	if ref.Relative() {
		base := parentDir(from)
		for i := 1; i < ref.Depth; i++ {
			base = parentDir(base)
		}
		return r.moduleFiles(path.Join(base, rel), rel == "")
	}

	if rel == "" {
		return nil
	}
	out := r.moduleFiles(rel, false)
	for _, src := range r.profile.SourceDirs {
		out = append(out, r.moduleFiles(path.Join(src, rel), false)...)
	}
	return out
}

// moduleFiles returns the module file and package init candidates for
// the slash path p. With pkgOnly only the init file of p is returned.
func (r *Resolver) moduleFiles(p string, pkgOnly bool) []string {
	initFile := path.Join(p, r.profile.InitFile)
	if pkgOnly {
		return []string{initFile}
	}
	return []string{p + r.profile.Ext, initFile}
}

// parentDir returns the directory of a slash path, "" at the project root.
func parentDir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}
