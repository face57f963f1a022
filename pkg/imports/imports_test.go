package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simonhull/magpie/pkg/pysyntax"
)

type fileSet map[string]bool

func (s fileSet) Contains(p string) bool { return s[p] }

func universe(paths ...string) fileSet {
	s := fileSet{}
	for _, p := range paths {
		s[p] = true
	}
	return s
}

func TestExtract(t *testing.T) {
	mod := &pysyntax.Module{Imports: []pysyntax.Import{
		{Module: "os"},
		{Module: "models", Level: 1},
		{Module: "", Level: 2},
	}}

	assert.Equal(t, []Reference{
		{Name: "os"},
		{Name: "models", Depth: 1},
		{Name: "", Depth: 2},
	}, Extract(mod))
	assert.Nil(t, Extract(nil))
	assert.Nil(t, Extract(&pysyntax.Module{}))
}

func TestResolve(t *testing.T) {
	u := universe(
		"pkg/__init__.py",
		"pkg/a.py",
		"pkg/b.py",
		"pkg/sub/__init__.py",
		"pkg/sub/deep.py",
		"pkg/sub/inner/x.py",
		"src/app/__init__.py",
		"src/app/core.py",
		"top.py",
		"both.py",
		"both/__init__.py",
	)
	r := NewResolver(u, Python)

	tests := []struct {
		name   string
		from   string
		ref    Reference
		want   string
		wantOK bool
	}{
		{"relative depth 1 sibling", "pkg/a.py", Reference{"b", 1}, "pkg/b.py", true},
		{"relative depth 1 package", "pkg/a.py", Reference{"sub", 1}, "pkg/sub/__init__.py", true},
		{"relative dotted name", "pkg/a.py", Reference{"sub.deep", 1}, "pkg/sub/deep.py", true},
		{"relative depth 2", "pkg/sub/deep.py", Reference{"a", 2}, "pkg/a.py", true},
		{"relative bare dot is own package", "pkg/sub/deep.py", Reference{"", 1}, "pkg/sub/__init__.py", true},
		{"relative bare double dot", "pkg/sub/inner/x.py", Reference{"", 2}, "pkg/sub/__init__.py", true},
		{"relative from root file", "top.py", Reference{"both", 1}, "both.py", true},
		{"relative climbing past root stays at root", "top.py", Reference{"both", 4}, "both.py", true},
		{"absolute module", "pkg/a.py", Reference{"top", 0}, "top.py", true},
		{"absolute package init", "top.py", Reference{"pkg.sub", 0}, "pkg/sub/__init__.py", true},
		{"absolute module file wins over package", "top.py", Reference{"both", 0}, "both.py", true},
		{"absolute under src", "top.py", Reference{"app.core", 0}, "src/app/core.py", true},
		{"absolute src package", "top.py", Reference{"app", 0}, "src/app/__init__.py", true},
		{"third party unresolved", "pkg/a.py", Reference{"requests", 0}, "", false},
		{"stdlib unresolved", "pkg/a.py", Reference{"os.path", 0}, "", false},
		{"empty absolute unresolved", "pkg/a.py", Reference{"", 0}, "", false},
		{"relative missing", "pkg/a.py", Reference{"nope", 1}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.from, tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidates_Order(t *testing.T) {
	r := NewResolver(universe(), Python)

	assert.Equal(t, []string{"a/b.py", "a/b/__init__.py", "src/a/b.py", "src/a/b/__init__.py"},
		r.Candidates("x.py", Reference{"a.b", 0}))
	assert.Equal(t, []string{"pkg/m.py", "pkg/m/__init__.py"},
		r.Candidates("pkg/x.py", Reference{"m", 1}))
}
