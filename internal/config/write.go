package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/vmunix/kprep/internal/fsx"
)

//go:embed default_config.toml
var defaultConfig string

// WriteDefault writes the commented default config to path.
func WriteDefault(path string) error {
	return fsx.WriteFileAtomic(path, []byte(defaultConfig), 0o644)
}

// Write saves the effective configuration as TOML. Comments from the
// original file are not preserved.
func (c *Config) Write(path string) error {
	var buf bytes.Buffer
	buf.WriteString("# kprep configuration (effective values)\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return fsx.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
