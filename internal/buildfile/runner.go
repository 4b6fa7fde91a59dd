package buildfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/armon/circbuf"
	"github.com/sirupsen/logrus"
)

// Runner extracts a BuildConfig from a build.zig by executing the build
// runner program under the zig compiler.
type Runner interface {
	Run(ctx context.Context, buildFilePath string, buildOptions []string) (BuildConfig, error)
}

const runnerStderrTail = 4096

// CmdRunner invokes `zig run <build_runner>` as a sub-process and parses its
// stdout as a BuildConfig.
type CmdRunner struct {
	// ZigExePath is the compiler binary.
	ZigExePath string

	// RunnerPath is the build-extraction program handed to `zig run`.
	RunnerPath string

	// CachePath is passed through as --cache-dir.
	CachePath string

	Log *logrus.Entry
}

// NewCmdRunner returns a Runner using the given toolchain paths.
func NewCmdRunner(zigExePath, runnerPath, cachePath string, log *logrus.Entry) *CmdRunner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CmdRunner{ZigExePath: zigExePath, RunnerPath: runnerPath, CachePath: cachePath, Log: log}
}

// Argv assembles the exact invocation for a build file. Split out so tests
// can pin the wire protocol without spawning anything.
func (r *CmdRunner) Argv(buildFilePath string, buildOptions []string) []string {
	dir := filepath.Dir(buildFilePath)
	args := []string{
		r.ZigExePath, "run", r.RunnerPath,
		"--cache-dir", r.CachePath,
		"--pkg-begin", "@build@", buildFilePath, "--pkg-end",
		"--",
		r.ZigExePath, dir, "zig-cache", "ZLS_DONT_CARE",
	}
	return append(args, buildOptions...)
}

// Run executes the build runner and decodes its stdout. Any failure (spawn,
// non-zero exit, undecodable output) is returned as an error and no
// configuration; what to install instead is left to the caller.
func (r *CmdRunner) Run(ctx context.Context, buildFilePath string, buildOptions []string) (BuildConfig, error) {
	if r.RunnerPath == "" {
		return BuildConfig{}, fmt.Errorf("buildfile: build_runner_path not configured")
	}

	argv := r.Argv(buildFilePath, buildOptions)
	stderr, _ := circbuf.NewBuffer(runnerStderrTail)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return BuildConfig{}, fmt.Errorf("buildfile: run build runner for %s: %w (stderr: %s)",
			buildFilePath, err, stderr.String())
	}

	var cfg BuildConfig
	if err := json.Unmarshal(out, &cfg); err != nil {
		return BuildConfig{}, fmt.Errorf("buildfile: decode build runner output for %s: %w", buildFilePath, err)
	}
	return cfg, nil
}
