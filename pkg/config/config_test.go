package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/magpie/pkg/logger"
	"github.com/simonhull/magpie/pkg/tokens"
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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "magpie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Export, cfg.Export)
	assert.Equal(t, d.Collect.Extensions, cfg.Collect.Extensions)
	assert.Equal(t, d.Collect.SkipDirs, cfg.Collect.SkipDirs)
	assert.Equal(t, d.Collect.MaxFileSize, cfg.Collect.MaxFileSize)
	assert.Equal(t, d.Collect.ParseTimeout, cfg.Collect.ParseTimeout)
	assert.Equal(t, tokens.CL100K, cfg.Collect.Tokenizer)
	assert.True(t, cfg.Collect.Gitignore)
	assert.Empty(t, cfg.Projects)
	assert.Equal(t, logger.LevelWarn, cfg.LogLevel())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
export:
  dir: out
collect:
  extensions: [".py"]
  max_file_size: 1024
  parse_timeout: 2s
  tokenizer: heuristic
projects:
  Backend:
    path: ./services/backend
    exclude_globs: ["*_pb2.py"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Export.Dir)
	assert.Equal(t, []string{".py"}, cfg.Collect.Extensions)
	assert.Equal(t, int64(1024), cfg.Collect.MaxFileSize)
	assert.Equal(t, 2*time.Second, cfg.Collect.ParseTimeout)
	assert.Equal(t, tokens.Heuristic, cfg.Collect.Tokenizer)
	// untouched keys keep their defaults
	assert.True(t, cfg.Collect.Gitignore)
	assert.Equal(t, Default().Collect.SkipDirs, cfg.Collect.SkipDirs)

	p, ok := cfg.Project("backend")
	require.True(t, ok)
	assert.Equal(t, "./services/backend", p.Path)
	assert.Equal(t, []string{"*_pb2.py"}, p.ExcludeGlobs)

	_, ok = cfg.Project("missing")
	assert.False(t, ok)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("collect:\n  workers: 3\n"), 0644))
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Collect.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "collect:\n  workers: 2\n")
	t.Setenv("MAGPIE_COLLECT_WORKERS", "8")
	t.Setenv("MAGPIE_EXPORT_DIR", "/tmp/elsewhere")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Collect.Workers)
	assert.Equal(t, "/tmp/elsewhere", cfg.Export.Dir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown tokenizer", "collect:\n  tokenizer: gpt2\n"},
		{"zero max size", "collect:\n  max_file_size: 0\n"},
		{"negative workers", "collect:\n  workers: -1\n"},
		{"empty export dir", "export:\n  dir: \"\"\n"},
		{"project without path", "projects:\n  api:\n    extensions: [\".py\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg := Default()
	cfg.Collect.ExcludeGlobs = []string{"migrations/**"}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Collect, loaded.Collect)
	assert.Equal(t, cfg.Export, loaded.Export)
}
