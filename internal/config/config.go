// Package config loads mirlean.toml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"mirlean/internal/emit"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "mirlean.toml"

const (
	EnvJobs      = "MIRLEAN_JOBS"
	EnvMultiExit = "MIRLEAN_MULTI_EXIT"
)

type Config struct {
	// Path is the file the configuration was read from, empty for defaults.
	Path           string
	Jobs           int
	MaxDiagnostics int
	Cache          bool
	MultiExit      emit.ExitMode
	// TraitOnly restricts the methods emitted per trait.
	TraitOnly map[string][]string
	Skip      []string
}

func Default() Config {
	return Config{MaxDiagnostics: 100, Cache: true}
}

type traitSection struct {
	Only []string `toml:"only"`
}

type fileConfig struct {
	Translate struct {
		Jobs           int  `toml:"jobs"`
		MaxDiagnostics int  `toml:"max-diagnostics"`
		Cache          bool `toml:"cache"`
	} `toml:"translate"`
	Loops struct {
		MultiExit string `toml:"multi-exit"`
	} `toml:"loops"`
	Traits map[string]traitSection `toml:"traits"`
	Skip   struct {
		Defs []string `toml:"defs"`
	} `toml:"skip"`
}

// ErrInvalid marks values that parse but make no sense.
var ErrInvalid = errors.New("invalid configuration")

// Load parses path on top of the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%s: unknown keys %s: %w", path, strings.Join(keys, ", "), ErrInvalid)
	}
	cfg.Path = path

	if meta.IsDefined("translate", "jobs") {
		if fc.Translate.Jobs < 0 {
			return cfg, fmt.Errorf("%s: [translate].jobs must not be negative: %w", path, ErrInvalid)
		}
		cfg.Jobs = fc.Translate.Jobs
	}
	if meta.IsDefined("translate", "max-diagnostics") {
		if fc.Translate.MaxDiagnostics <= 0 {
			return cfg, fmt.Errorf("%s: [translate].max-diagnostics must be positive: %w", path, ErrInvalid)
		}
		cfg.MaxDiagnostics = fc.Translate.MaxDiagnostics
	}
	if meta.IsDefined("translate", "cache") {
		cfg.Cache = fc.Translate.Cache
	}
	if meta.IsDefined("loops", "multi-exit") {
		mode, err := emit.ParseExitMode(fc.Loops.MultiExit)
		if err != nil {
			return cfg, fmt.Errorf("%s: [loops].multi-exit: %w", path, err)
		}
		cfg.MultiExit = mode
	}
	if meta.IsDefined("traits") && len(fc.Traits) > 0 {
		cfg.TraitOnly = make(map[string][]string, len(fc.Traits))
		for trait, sec := range fc.Traits {
			if !meta.IsDefined("traits", trait, "only") {
				continue
			}
			only := slices.Clone(sec.Only)
			if only == nil {
				only = []string{}
			}
			cfg.TraitOnly[trait] = only
		}
	}
	if meta.IsDefined("skip", "defs") {
		for _, d := range fc.Skip.Defs {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Skip = append(cfg.Skip, d)
			}
		}
	}
	return cfg, nil
}

// Find walks up from startDir to locate mirlean.toml.
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

// Resolve loads the explicit path, or the nearest mirlean.toml above
// startDir, or the defaults; environment overrides apply in every case.
func Resolve(explicit, startDir string) (Config, error) {
	cfg := Default()
	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return cfg, err
		}
		if ok {
			path = found
		}
	}
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides jobs and the multi-exit mode from MIRLEAN_JOBS and
// MIRLEAN_MULTI_EXIT.
func (c *Config) ApplyEnv() error {
	if env.Has(EnvJobs) {
		jobs := env.Int(EnvJobs, -1)
		if jobs < 0 {
			return fmt.Errorf("%s=%q: %w", EnvJobs, env.Str(EnvJobs), ErrInvalid)
		}
		c.Jobs = jobs
	}
	if env.Has(EnvMultiExit) {
		mode, err := emit.ParseExitMode(env.Str(EnvMultiExit))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMultiExit, err)
		}
		c.MultiExit = mode
	}
	return nil
}

// EmitOptions returns the emitter settings.
func (c Config) EmitOptions() emit.Options {
	return emit.Options{MultiExit: c.MultiExit, TraitOnly: c.TraitOnly}
}
