// Package config loads phpscope settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete phpscope configuration.
type Config struct {
	Scan  ScanConfig  `koanf:"scan" toml:"scan"`
	Parse ParseConfig `koanf:"parse" toml:"parse"`
	View  ViewConfig  `koanf:"view" toml:"view"`
	Cache CacheConfig `koanf:"cache" toml:"cache"`
	Git   GitConfig   `koanf:"git" toml:"git"`
}

// ScanConfig selects the files to analyze.
type ScanConfig struct {
	Extensions  []string `koanf:"extensions" toml:"extensions"`
	Exclude     []string `koanf:"exclude" toml:"exclude"`
	Gitignore   bool     `koanf:"gitignore" toml:"gitignore"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = unlimited
	Workers     int      `koanf:"workers" toml:"workers"`
}

// ParseConfig controls parser behaviour.
type ParseConfig struct {
	InheritNamespace bool   `koanf:"inherit_namespace" toml:"inherit_namespace"`
	OnError          string `koanf:"on_error" toml:"on_error"` // skip, abort
	SyntaxCheck      bool   `koanf:"syntax_check" toml:"syntax_check"`
}

// ViewConfig controls the report.
type ViewConfig struct {
	Sort         string `koanf:"sort" toml:"sort"`
	Top          int    `koanf:"top" toml:"top"`
	Functions    int    `koanf:"functions" toml:"functions"` // per class, 0 = all
	Dependencies bool   `koanf:"dependencies" toml:"dependencies"`
	Statements   bool   `koanf:"statements" toml:"statements"`
	Format       string `koanf:"format" toml:"format"` // text, json, toon
	Color        bool   `koanf:"color" toml:"color"`
}

// CacheConfig controls the per-file parse cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Path    string `koanf:"path" toml:"path"`
}

// GitConfig controls git history enrichment.
type GitConfig struct {
	Enabled bool `koanf:"enabled" toml:"enabled"`
}

// Error policies for files that fail to lex or parse.
const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

// Formats lists the supported report formats.
var Formats = []string{"text", "json", "toon"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions:  []string{".php"},
			Exclude:     []string{"vendor/**"},
			Gitignore:   true,
			MaxFileSize: 1 << 20,
			Workers:     runtime.NumCPU(),
		},
		Parse: ParseConfig{
			OnError: OnErrorSkip,
		},
		View: ViewConfig{
			Sort:         "complexity",
			Top:          10,
			Dependencies: true,
			Statements:   true,
			Format:       "text",
			Color:        true,
		},
		Cache: CacheConfig{
			Path: ".phpscope-cache.json",
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched in order by Find.
var configNames = []string{
	"phpscope.toml",
	"phpscope.yaml",
	"phpscope.yml",
	"phpscope.json",
	".phpscope.toml",
	".phpscope.yaml",
	".phpscope.yml",
	".phpscope.json",
}

// Find returns the first config file present in dir, or "" if none.
func Find(dir string) string {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadOrDefault loads the config found in dir, or returns the defaults when
// dir holds none. A config file that exists but cannot be loaded is an error.
func LoadOrDefault(dir string) (*Config, string, error) {
	path := Find(dir)
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Parse.OnError {
	case OnErrorSkip, OnErrorAbort:
	default:
		errs = append(errs, fmt.Errorf("parse.on_error must be %q or %q, got %q", OnErrorSkip, OnErrorAbort, c.Parse.OnError))
	}
	if !validFormat(c.View.Format) {
		errs = append(errs, fmt.Errorf("view.format must be one of %s, got %q", strings.Join(Formats, ", "), c.View.Format))
	}
	if c.View.Top < 0 {
		errs = append(errs, fmt.Errorf("view.top must not be negative"))
	}
	if c.View.Functions < 0 {
		errs = append(errs, fmt.Errorf("view.functions must not be negative"))
	}
	if c.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("scan.workers must not be negative"))
	}
	if c.Scan.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("scan.max_file_size must not be negative"))
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}
