// Package config loads zls server configuration.
//
// Values are merged from three sources, later ones winning: struct defaults,
// an optional JSON config file, and ZLS_-prefixed environment variables
// (e.g. ZLS_ZIG_EXE_PATH).
package config

import (
	"fmt"
	"os"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is the read-only configuration record the document store borrows.
// The store treats it as immutable for its lifetime.
type Config struct {
	// ZigExePath is the absolute path to the zig compiler. When empty, no
	// build-file discovery is attempted.
	ZigExePath string `koanf:"zig_exe_path" json:"zig_exe_path"`

	// BuildRunnerPath is the absolute path to the build-extraction program
	// passed to `zig run`.
	BuildRunnerPath string `koanf:"build_runner_path" json:"build_runner_path"`

	// GlobalCachePath is the cache directory handed to the build runner and
	// used for translate-c artifacts.
	GlobalCachePath string `koanf:"global_cache_path" json:"global_cache_path"`

	// ZigLibPath is the root of the standard library; when empty, "std"
	// imports stay unresolved.
	ZigLibPath string `koanf:"zig_lib_path" json:"zig_lib_path"`

	// BuiltinPath is the fallback path for "builtin" imports when the
	// associated build file supplies no override.
	BuiltinPath string `koanf:"builtin_path" json:"builtin_path"`

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string `koanf:"log_level" json:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
	}
}

// Load reads configuration from the optional file at path (empty means no
// file) and the environment, merged over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "ZLS_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "ZLS_")), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
