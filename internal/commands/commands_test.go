package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/magpie/pkg/config"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func newTestRoot() *cobra.Command {
	root := RootCmd()
	root.AddCommand(CollectCmd(), SkeletonCmd(), InitCmd(), VersionCmd())
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newTestRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	}
}

func TestVersionCmd(t *testing.T) {
	chdir(t, t.TempDir())

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "magpie v"))
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, err := execute(t, "init", "proj")
	require.NoError(t, err)

	path := filepath.Join(dir, "proj", config.DefaultFile)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Collect.Extensions, cfg.Collect.Extensions)

	_, err = execute(t, "init", "proj")
	assert.Error(t, err, "existing file must not be overwritten")

	_, err = execute(t, "init", "proj", "--force")
	assert.NoError(t, err)
}

func TestSkeletonCmd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFiles(t, dir, map[string]string{
		"svc.py": "class Service:\n    \"\"\"Does things.\"\"\"\n\n    def run(self) -> int:\n        return 1\n",
	})

	out, err := execute(t, "skeleton", "svc.py")
	require.NoError(t, err)
	assert.Contains(t, out, "# SKELETON: svc.py")
	assert.Contains(t, out, "class Service:")
	assert.Contains(t, out, "def run(self) -> int:")
}

func TestSkeletonCmd_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFiles(t, dir, map[string]string{"bad.py": "def bad(:\n"})

	out, err := execute(t, "skeleton", "bad.py")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# SYNTAX ERROR in bad.py: "))
}

func TestCollectCmd(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFiles(t, dir, map[string]string{
		"magpie.yaml":         "collect:\n  tokenizer: heuristic\n",
		"src/app/README.md":   "# app\n",
		"src/app/__init__.py": "",
		"src/app/core.py":     "from . import util\n\ndef main():\n    return util.x\n",
		"src/app/util.py":     "x = 1\n",
		"src/app/gen_pb2.py":  "GENERATED = 1\n",
	})

	_, err := execute(t, "collect", "src", "--name", "demo", "-o", "out", "--exclude", "*_pb2.py")
	require.NoError(t, err)

	exportDir := filepath.Join(dir, "out", "demo")
	assert.FileExists(t, filepath.Join(exportDir, "code", "app.txt"))
	assert.FileExists(t, filepath.Join(exportDir, "signatures", "app_API.txt"))
	assert.FileExists(t, filepath.Join(exportDir, "dependencies.mermaid"))
	assert.FileExists(t, filepath.Join(exportDir, "index.json"))

	code, err := os.ReadFile(filepath.Join(exportDir, "code", "app.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(code), "GENERATED")
}

func TestCollectCmd_DryRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFiles(t, dir, map[string]string{"proj/a.py": "a = 1\n"})

	_, err := execute(t, "collect", "proj", "-o", "out", "--dry-run")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestCollectCmd_InvalidRoot(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "collect", "does-not-exist")
	assert.Error(t, err)
}

func TestCollectCmd_UnknownProject(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := execute(t, "collect", "--project", "nope")
	assert.Error(t, err)
}

func TestResolveProject(t *testing.T) {
	cfg := config.Default()
	cfg.Projects = map[string]config.ProjectConfig{
		"backend": {Path: "services/backend", ExcludeGlobs: []string{"*_pb2.py"}},
	}

	t.Run("profile", func(t *testing.T) {
		cmd := CollectCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--project", "backend"}))

		proj, err := resolveProject(cmd, cfg, collectFlags{project: "backend"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "backend", proj.Name)
		assert.True(t, strings.HasSuffix(filepath.ToSlash(proj.Root), "services/backend"))
		assert.Equal(t, []string{"*_pb2.py"}, proj.ExcludeGlobs)
		assert.Equal(t, cfg.Collect.Extensions, proj.Extensions)
	})

	t.Run("flags override", func(t *testing.T) {
		cmd := CollectCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--ext", ".py", "--exclude", "tests/**"}))
		f := collectFlags{exts: []string{".py"}, excludes: []string{"tests/**"}}

		proj, err := resolveProject(cmd, cfg, f, []string{"some/where"})
		require.NoError(t, err)
		assert.Equal(t, "where", proj.Name)
		assert.Equal(t, []string{".py"}, proj.Extensions)
		assert.Equal(t, []string{"tests/**"}, proj.ExcludeGlobs)
	})

	t.Run("path and profile conflict", func(t *testing.T) {
		cmd := CollectCmd()
		_, err := resolveProject(cmd, cfg, collectFlags{project: "backend"}, []string{"x"})
		assert.Error(t, err)
	})
}

func TestExportGlob(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")

	glob, ok := exportGlob(root, filepath.Join(root, "exports"))
	assert.True(t, ok)
	assert.Equal(t, "exports/**", glob)

	_, ok = exportGlob(root, filepath.Join(filepath.Dir(root), "elsewhere"))
	assert.False(t, ok)

	_, ok = exportGlob(root, root)
	assert.False(t, ok)
}
