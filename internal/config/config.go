// Package config loads hdlfront.toml project files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"hdlfront/internal/trace"
)

// FileName is the project file looked up by Find.
const FileName = "hdlfront.toml"

const (
	DefaultMaxDiagnostics = 100
	DefaultTraceLevel     = "off"
	DefaultTraceOutput    = "-"
)

// Config is the resolved project configuration. Module paths are absolute
// or relative to Root.
type Config struct {
	Path           string
	Root           string
	Name           string
	Modules        []string
	Jobs           int
	MaxDiagnostics int
	MaxDepth       int
	TraceLevel     string
	TraceOutput    string
}

// ErrNoModules reports a project file that lists no module descriptions.
var ErrNoModules = errors.New("missing [project].modules")

type fileConfig struct {
	Project struct {
		Name    string   `toml:"name"`
		Modules []string `toml:"modules"`
	} `toml:"project"`
	Check struct {
		Jobs                  int `toml:"jobs"`
		MaxDiagnostics        int `toml:"max_diagnostics"`
		MaxInstantiationDepth int `toml:"max_instantiation_depth"`
	} `toml:"check"`
	Trace struct {
		Level  string `toml:"level"`
		Output string `toml:"output"`
	} `toml:"trace"`
}

// Default returns the configuration used without a project file.
func Default() Config {
	return Config{
		MaxDiagnostics: DefaultMaxDiagnostics,
		TraceLevel:     DefaultTraceLevel,
		TraceOutput:    DefaultTraceOutput,
	}
}

// Find walks up from startDir to locate hdlfront.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes the project file at path. Unset values keep their defaults.
func Load(path string) (Config, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("project", "modules") || len(fc.Project.Modules) == 0 {
		return Config{}, fmt.Errorf("%s: %w", path, ErrNoModules)
	}

	cfg := Default()
	cfg.Path = path
	cfg.Root = filepath.Dir(path)
	cfg.Name = strings.TrimSpace(fc.Project.Name)
	for _, m := range fc.Project.Modules {
		if !filepath.IsAbs(m) {
			m = filepath.Join(cfg.Root, m)
		}
		cfg.Modules = append(cfg.Modules, m)
	}
	if meta.IsDefined("check", "jobs") {
		if fc.Check.Jobs < 0 {
			return Config{}, fmt.Errorf("%s: [check].jobs must not be negative", path)
		}
		cfg.Jobs = fc.Check.Jobs
	}
	if meta.IsDefined("check", "max_diagnostics") {
		cfg.MaxDiagnostics = fc.Check.MaxDiagnostics
	}
	if meta.IsDefined("check", "max_instantiation_depth") {
		cfg.MaxDepth = fc.Check.MaxInstantiationDepth
	}
	if meta.IsDefined("trace", "level") {
		if _, err := trace.ParseLevel(fc.Trace.Level); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		cfg.TraceLevel = fc.Trace.Level
	}
	if meta.IsDefined("trace", "output") {
		cfg.TraceOutput = fc.Trace.Output
	}
	return cfg, nil
}
