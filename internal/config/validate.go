// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

var validFailureActions = map[string]bool{
	"delete": true, "skip": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level: must be one of debug, info, warn, error; got %q", c.Log.Level))
	}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format: must be text or json; got %q", c.Log.Format))
	}

	f := c.Filter
	if !strings.HasPrefix(f.Extension, ".") {
		errs = append(errs, fmt.Sprintf("filter.extension: must start with a dot, got %q", f.Extension))
	}
	if f.Workers < 0 {
		errs = append(errs, fmt.Sprintf("filter.workers: must be >= 0, got %d", f.Workers))
	}
	if f.ProbeTimeout < 0 {
		errs = append(errs, fmt.Sprintf("filter.probe_timeout: must be positive, got %s", f.ProbeTimeout))
	}
	if !validFailureActions[f.OnProbeFailure] {
		errs = append(errs, fmt.Sprintf("filter.on_probe_failure: must be delete or skip; got %q", f.OnProbeFailure))
	}
	if f.ProgressEvery < 0 {
		errs = append(errs, fmt.Sprintf("filter.progress_every: must be >= 0, got %d", f.ProgressEvery))
	}

	t := f.Thresholds
	if t.MinDuration > t.MaxDuration {
		errs = append(errs, fmt.Sprintf("filter.thresholds: min_duration %.2f exceeds max_duration %.2f", t.MinDuration, t.MaxDuration))
	}
	if t.TargetFPS <= 0 {
		errs = append(errs, fmt.Sprintf("filter.thresholds.target_fps: must be positive, got %.2f", t.TargetFPS))
	}
	if t.FPSTolerance < 0 {
		errs = append(errs, fmt.Sprintf("filter.thresholds.fps_tolerance: must be >= 0, got %.2f", t.FPSTolerance))
	}

	if c.History.Enabled && c.History.Database == "" {
		errs = append(errs, "history.database: required when history is enabled")
	}

	if !strings.HasPrefix(c.Manifest.Extension, ".") {
		errs = append(errs, fmt.Sprintf("manifest.extension: must start with a dot, got %q", c.Manifest.Extension))
	}

	return errs
}
