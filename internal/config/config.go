// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// MaxDefaultWorkers caps the automatically sized worker pool.
const MaxDefaultWorkers = 16

// Config is the root configuration structure.
type Config struct {
	Log        LogConfig        `toml:"log"`
	Filter     FilterConfig     `toml:"filter"`
	History    HistoryConfig    `toml:"history"`
	Manifest   ManifestConfig   `toml:"manifest"`
	Reorganize ReorganizeConfig `toml:"reorganize"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// FilterConfig drives the quality filter pass.
type FilterConfig struct {
	Root           string           `toml:"root"`
	Extension      string           `toml:"extension"`
	LogFile        string           `toml:"log_file"` // empty: next to the executable
	Workers        int              `toml:"workers"`  // 0: min(2*GOMAXPROCS, 16)
	ProbeTimeout   time.Duration    `toml:"probe_timeout"`
	OnProbeFailure string           `toml:"on_probe_failure"`
	ProgressEvery  int              `toml:"progress_every"`
	FFprobe        string           `toml:"ffprobe"`
	Thresholds     ThresholdsConfig `toml:"thresholds"`
}

type ThresholdsConfig struct {
	MinDuration  float64 `toml:"min_duration"`
	MaxDuration  float64 `toml:"max_duration"`
	TargetFPS    float64 `toml:"target_fps"`
	FPSTolerance float64 `toml:"fps_tolerance"`
}

type HistoryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Database string `toml:"database"`
}

type ManifestConfig struct {
	Root      string `toml:"root"`
	Output    string `toml:"output"`
	Extension string `toml:"extension"`
}

type ReorganizeConfig struct {
	BaseDir  string   `toml:"base_dir"`
	SkipKeys []string `toml:"skip_keys"`
}

// Default returns the configuration used when no config file is found.
// Files are decoded on top of it, so absent keys keep these values and
// explicit zeros are honored.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Filter: FilterConfig{
			Root:           "./train/train",
			Extension:      ".mp4",
			ProbeTimeout:   45 * time.Second,
			OnProbeFailure: "delete",
			ProgressEvery:  50,
			FFprobe:        "ffprobe",
			Thresholds: ThresholdsConfig{
				MinDuration:  9.5,
				MaxDuration:  10.5,
				TargetFPS:    30,
				FPSTolerance: 1,
			},
		},
		History:    HistoryConfig{Enabled: true, Database: "./kprep.db"},
		Manifest:   ManifestConfig{Root: ".", Output: "kinetics.json", Extension: ".mp4"},
		Reorganize: ReorganizeConfig{BaseDir: "./train", SkipKeys: []string{"train"}},
	}
}

// EffectiveWorkers resolves the configured pool size.
func (f FilterConfig) EffectiveWorkers() int {
	if f.Workers > 0 {
		return f.Workers
	}
	return DefaultWorkers(runtime.GOMAXPROCS(0))
}

// DefaultWorkers returns min(2*parallelism, MaxDefaultWorkers), at least 1.
func DefaultWorkers(parallelism int) int {
	n := 2 * parallelism
	if n > MaxDefaultWorkers {
		n = MaxDefaultWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Load reads, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation parses the config and applies defaults but skips
// validation. Unresolved environment variables are left in place.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	cfg := Default()
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, missing, nil
}

// applyDefaults restores string settings a file set to "". Numeric zeros
// are meaningful and left alone.
func (c *Config) applyDefaults() {
	d := Default()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.Log.Level, d.Log.Level)
	fill(&c.Log.Format, d.Log.Format)
	fill(&c.Filter.Root, d.Filter.Root)
	fill(&c.Filter.Extension, d.Filter.Extension)
	fill(&c.Filter.OnProbeFailure, d.Filter.OnProbeFailure)
	fill(&c.Filter.FFprobe, d.Filter.FFprobe)
	fill(&c.History.Database, d.History.Database)
	fill(&c.Manifest.Root, d.Manifest.Root)
	fill(&c.Manifest.Output, d.Manifest.Output)
	fill(&c.Manifest.Extension, d.Manifest.Extension)
	fill(&c.Reorganize.BaseDir, d.Reorganize.BaseDir)
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// substituteEnvVars expands environment references and returns the names of
// variables that could not be resolved. Unresolved references are left as-is.
// Comment text is copied through untouched.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	seen := make(map[string]bool)

	expand := func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]

		value, ok := os.LookupEnv(name)
		if ok && (op == "" || value != "") {
			return value
		}
		if op == "-" {
			return arg
		}

		if !seen[name] {
			seen[name] = true
			if op == "?" && strings.TrimSpace(arg) != "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
			} else {
				missing = append(missing, name)
			}
		}
		return match
	}

	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		code, comment := splitComment(line)
		lines[i] = envVarPattern.ReplaceAllStringFunc(code, expand) + comment
	}
	return strings.Join(lines, ""), missing
}

// splitComment splits a TOML line at the first # outside a string.
// Multi-line strings are not tracked.
func splitComment(line string) (code, comment string) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i], line[i:]
		}
	}
	return line, ""
}
