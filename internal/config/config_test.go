package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.ZigExePath)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zls.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"zig_exe_path": "/usr/bin/zig",
		"zig_lib_path": "/usr/lib/zig",
		"log_level": "debug"
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/zig", cfg.ZigExePath)
	assert.Equal(t, "/usr/lib/zig", cfg.ZigLibPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zls.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"zig_exe_path": "/from/file"}`), 0o644))

	t.Setenv("ZLS_ZIG_EXE_PATH", "/from/env")
	t.Setenv("ZLS_BUILTIN_PATH", "/env/builtin.zig")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.ZigExePath)
	assert.Equal(t, "/env/builtin.zig", cfg.BuiltinPath)
}

func TestLoadMissingFileIsSilent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}
