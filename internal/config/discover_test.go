package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := DefaultPath()
	assert.Contains(t, path, filepath.Join(".config", "kprep", "config.toml"))
}

func TestDefaultPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	path := DefaultPath()
	assert.Equal(t, "/custom/config/kprep/config.toml", path)
}

func TestDiscover_KPREP_CONFIG(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "custom.toml")
	err := os.WriteFile(cfgPath, []byte("[filter]"), 0644)
	require.NoError(t, err, "failed to create test config")

	t.Setenv("KPREP_CONFIG", cfgPath)

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, cfgPath, path)
}

func TestDiscover_KPREP_CONFIG_NotFound(t *testing.T) {
	t.Setenv("KPREP_CONFIG", "/nonexistent/kprep.toml")

	_, err := Discover()
	require.Error(t, err, "expected error for missing KPREP_CONFIG")
	assert.Contains(t, err.Error(), "KPREP_CONFIG")
}

func TestDiscover_CurrentDir(t *testing.T) {
	t.Setenv("KPREP_CONFIG", "")

	tmp := t.TempDir()
	err := os.WriteFile(filepath.Join(tmp, "kprep.toml"), []byte("[filter]"), 0644)
	require.NoError(t, err, "failed to create test config")
	testChdir(t, tmp)

	path, err := Discover()
	require.NoError(t, err)
	assert.Equal(t, "kprep.toml", filepath.Base(path))
}

func TestDiscover_NotFound(t *testing.T) {
	t.Setenv("KPREP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/xdg")
	testChdir(t, t.TempDir())

	_, err := Discover()
	require.Error(t, err, "expected error when no config found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "config not found")
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
