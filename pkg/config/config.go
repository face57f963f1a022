// Package config loads magpie settings from defaults, an optional
// magpie.yaml, and MAGPIE_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/magpie/pkg/logger"
	"github.com/simonhull/magpie/pkg/tokens"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "magpie.yaml"

// EnvPrefix prefixes environment overrides, e.g. MAGPIE_COLLECT_WORKERS.
const EnvPrefix = "MAGPIE"

// Config is the full set of settings.
type Config struct {
	Export   ExportConfig             `mapstructure:"export" yaml:"export"`
	Collect  CollectConfig            `mapstructure:"collect" yaml:"collect"`
	Log      LogConfig                `mapstructure:"log" yaml:"log"`
	Projects map[string]ProjectConfig `mapstructure:"projects" yaml:"projects,omitempty"`
}

// ExportConfig controls where artifacts are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// CollectConfig controls what is collected and how.
type CollectConfig struct {
	Extensions   []string      `mapstructure:"extensions" yaml:"extensions"`
	SkipDirs     []string      `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	ExcludeGlobs []string      `mapstructure:"exclude_globs" yaml:"exclude_globs"`
	MaxFileSize  int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	Gitignore    bool          `mapstructure:"gitignore" yaml:"gitignore"`
	Workers      int           `mapstructure:"workers" yaml:"workers"` // 0 means one per CPU
	ParseTimeout time.Duration `mapstructure:"parse_timeout" yaml:"parse_timeout"`
	Tokenizer    string        `mapstructure:"tokenizer" yaml:"tokenizer"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// ProjectConfig is a named project profile. Empty lists fall back to the
// collect section.
type ProjectConfig struct {
	Path         string   `mapstructure:"path" yaml:"path"`
	Extensions   []string `mapstructure:"extensions" yaml:"extensions,omitempty"`
	SkipDirs     []string `mapstructure:"skip_dirs" yaml:"skip_dirs,omitempty"`
	ExcludeGlobs []string `mapstructure:"exclude_globs" yaml:"exclude_globs,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Export: ExportConfig{Dir: "exports"},
		Collect: CollectConfig{
			Extensions:   []string{".py", ".md", ".txt"},
			SkipDirs:     []string{"venv", ".git", "__pycache__", "node_modules", "dist", ".idea", ".vscode"},
			ExcludeGlobs: []string{},
			MaxFileSize:  2_000_000,
			Gitignore:    true,
			ParseTimeout: 5 * time.Second,
			Tokenizer:    tokens.CL100K,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads settings. An empty path looks for DefaultFile in the working
// directory and uses defaults when it is absent; an explicit path must
// exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.WithHint(errors.Wrapf(err, "config file %s", path),
				"run 'magpie init' to create one, or drop --config")
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrapf(err, "reading %s", DefaultFile)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("collect.extensions", d.Collect.Extensions)
	v.SetDefault("collect.skip_dirs", d.Collect.SkipDirs)
	v.SetDefault("collect.exclude_globs", d.Collect.ExcludeGlobs)
	v.SetDefault("collect.max_file_size", d.Collect.MaxFileSize)
	v.SetDefault("collect.gitignore", d.Collect.Gitignore)
	v.SetDefault("collect.workers", d.Collect.Workers)
	v.SetDefault("collect.parse_timeout", d.Collect.ParseTimeout)
	v.SetDefault("collect.tokenizer", d.Collect.Tokenizer)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if c.Export.Dir == "" {
		return errors.New("export.dir must not be empty")
	}
	if c.Collect.MaxFileSize <= 0 {
		return errors.Newf("collect.max_file_size must be positive, got %d", c.Collect.MaxFileSize)
	}
	if c.Collect.Workers < 0 {
		return errors.Newf("collect.workers must not be negative, got %d", c.Collect.Workers)
	}
	if c.Collect.ParseTimeout < 0 {
		return errors.Newf("collect.parse_timeout must not be negative, got %s", c.Collect.ParseTimeout)
	}
	switch c.Collect.Tokenizer {
	case tokens.CL100K, tokens.Heuristic:
	default:
		return errors.WithHintf(errors.Newf("unknown tokenizer %q", c.Collect.Tokenizer),
			"use %q or %q", tokens.CL100K, tokens.Heuristic)
	}
	for name, p := range c.Projects {
		if p.Path == "" {
			return errors.Newf("projects.%s.path must not be empty", name)
		}
	}
	return nil
}

// LogLevel returns the configured logger level.
func (c *Config) LogLevel() logger.Level {
	return logger.ParseLevel(c.Log.Level)
}

// Project returns the named profile. Names are case-insensitive.
func (c *Config) Project(name string) (ProjectConfig, bool) {
	p, ok := c.Projects[strings.ToLower(name)]
	return p, ok
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
