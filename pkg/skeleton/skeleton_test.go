package skeleton

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/magpie/pkg/pysyntax"
)

func TestReturnDigest(t *testing.T) {
	long := strings.Repeat("x", 60)

	tests := []struct {
		name  string
		exprs []string
		want  string
	}{
		{"none", nil, ""},
		{"dedupe keeps first-seen order", []string{"a", "b", "a"}, "a | b"},
		{"exactly fifty kept", []string{strings.Repeat("y", 50)}, strings.Repeat("y", 50)},
		{"long truncated", []string{long}, strings.Repeat("x", 47) + "..."},
		{"truncated duplicates collapse", []string{long, long + "z"}, strings.Repeat("x", 47) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnDigest(tt.exprs))
		})
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	s := strings.Repeat("é", 51)
	got := Truncate(s)
	assert.Equal(t, strings.Repeat("é", 47)+"...", got)
	assert.Equal(t, "short", Truncate("short"))
}

func TestRender_Function(t *testing.T) {
	mod := &pysyntax.Module{
		Decls: []*pysyntax.Decl{{
			Kind:        pysyntax.AsyncFunction,
			Name:        "load",
			Decorators:  []string{"retry(3)"},
			Params:      "path: str",
			Returns:     "bytes",
			Doc:         "Load a file.\n\nMore.",
			ReturnExprs: []string{"a", "b", "a"},
		}},
	}

	want := "# SKELETON: io.py\n" +
		"@retry(3)\n" +
		"async def load(path: str) -> bytes:\n" +
		"    \"\"\"Load a file. ...\"\"\"\n" +
		"    ...; return a | b\n" +
		"\n"
	assert.Equal(t, want, Render(mod, "io.py"))
}

func TestRender_ClassLayout(t *testing.T) {
	mod := &pysyntax.Module{
		Constants: []string{"VERSION: str = \"1\""},
		Decls: []*pysyntax.Decl{{
			Kind:   pysyntax.Class,
			Name:   "Repo",
			Bases:  "Base",
			Doc:    "Storage.",
			Fields: []string{"table: str"},
			Body: []*pysyntax.Decl{
				{Kind: pysyntax.Class, Name: "Meta"},
				{Kind: pysyntax.Function, Name: "get", Params: "self, id"},
			},
		}},
	}

	want := "# SKELETON: repo.py\n" +
		"VERSION: str = \"1\"\n" +
		"class Repo(Base):\n" +
		"    \"\"\"Storage.\"\"\"\n" +
		"    table: str\n" +
		"    def get(self, id):\n" +
		"        ...\n" +
		"\n" +
		"    class Meta:\n" +
		"        pass\n"
	assert.Equal(t, want, Render(mod, "repo.py"))
}

func TestRender_EmptyClassWithDocHasNoPass(t *testing.T) {
	d := &pysyntax.Decl{Kind: pysyntax.Class, Name: "Marker", Doc: "Tag."}
	assert.Equal(t, "class Marker:\n    \"\"\"Tag.\"\"\"", Decl(d, 0))
}

func TestRenderError(t *testing.T) {
	got := RenderError("bad.py", errors.New("invalid syntax (line 1, column 12)"))
	assert.Equal(t, "# SYNTAX ERROR in bad.py: invalid syntax (line 1, column 12)\n", got)
}

func TestRender_FromSource(t *testing.T) {
	src := `
from typing import Optional

MAX: int = 10

class Shape:
    """Base shape."""
    sides: int

    def area(self) -> float:
        if self.sides == 0:
            return 0.0
        return self.compute()

def make(kind: str) -> Optional[Shape]:
    if kind == "square":
        return Square()
    return None
`
	res := pysyntax.NewParser(0).Parse(context.Background(), []byte(src))
	require.NoError(t, res.Err)

	want := "# SKELETON: shapes.py\n" +
		"MAX: int = 10\n" +
		"class Shape:\n" +
		"    \"\"\"Base shape.\"\"\"\n" +
		"    sides: int\n" +
		"    def area(self) -> float:\n" +
		"        ...; return 0.0 | self.compute()\n" +
		"\n" +
		"def make(kind: str) -> Optional[Shape]:\n" +
		"    ...; return Square() | None\n" +
		"\n"
	assert.Equal(t, want, Render(res.Module, "shapes.py"))
}
