// Package translate runs `zig translate-c` over the C source emitted by
// @cImport blocks and materializes the result as a .zig artifact in the
// global cache directory.
package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/armon/circbuf"
	"github.com/cenkalti/backoff/v5"
	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/Mindgibber/zls/internal/uri"
)

// Result is the outcome of one translation, cached by the document store
// under the content hash of the C source. The failure arm carries no payload
// today; keep construction going through Failure so a diagnostic payload can
// be added without touching callers.
type Result struct {
	uri string
	ok  bool
}

// Success wraps the URI of a translated artifact.
func Success(u string) Result { return Result{uri: u, ok: true} }

// Failure marks a translation the compiler rejected.
func Failure() Result { return Result{} }

// URI returns the artifact URI and whether the translation succeeded.
func (r Result) URI() (string, bool) { return r.uri, r.ok }

// Failed reports whether this is a failure entry.
func (r Result) Failed() bool { return !r.ok }

// Translator turns C source into a translated artifact. A nil error with a
// failure Result means the compiler rejected the source (cacheable); a
// non-nil error means the attempt never produced a verdict and the caller
// should skip without caching.
type Translator interface {
	Translate(ctx context.Context, cSource string, includeDirs []string) (Result, error)
}

const stderrTailSize = 2048

// CmdTranslator shells out to `zig translate-c`.
type CmdTranslator struct {
	// ZigExePath is the compiler binary.
	ZigExePath string

	// CachePath is the global cache directory; artifacts land under
	// <CachePath>/zls-translate/.
	CachePath string

	Log *logrus.Entry
}

// NewCmdTranslator returns a Translator backed by the zig binary.
func NewCmdTranslator(zigExePath, cachePath string, log *logrus.Entry) *CmdTranslator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CmdTranslator{ZigExePath: zigExePath, CachePath: cachePath, Log: log}
}

// Translate writes cSource next to the cache, invokes translate-c with the
// given include directories, and stores the output as <digest>.zig.
// Transient spawn failures are retried briefly before giving up.
func (t *CmdTranslator) Translate(ctx context.Context, cSource string, includeDirs []string) (Result, error) {
	if t.ZigExePath == "" {
		return Result{}, errors.New("translate: zig_exe_path not configured")
	}

	dir := filepath.Join(t.CachePath, "zls-translate")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("translate: create cache dir: %w", err)
	}

	sum := digest.FromString(cSource)
	srcPath := filepath.Join(dir, sum.Encoded()+".c")
	outPath := filepath.Join(dir, sum.Encoded()+".zig")

	if err := os.WriteFile(srcPath, []byte(cSource), 0o644); err != nil {
		return Result{}, fmt.Errorf("translate: write source: %w", err)
	}

	args := []string{"translate-c", srcPath}
	for _, inc := range includeDirs {
		args = append(args, "-I"+inc)
	}

	run := func() ([]byte, error) {
		stderr, _ := circbuf.NewBuffer(stderrTailSize)
		cmd := exec.CommandContext(ctx, t.ZigExePath, args...)
		cmd.Stderr = stderr
		out, err := cmd.Output()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			t.Log.WithField("stderr", stderr.String()).Debug("translate-c rejected source")
			return nil, backoff.Permanent(err)
		}
		return out, err
	}

	out, err := backoff.Retry(ctx, run,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Failure(), nil
		}
		return Result{}, fmt.Errorf("translate: run %s: %w", t.ZigExePath, err)
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return Result{}, fmt.Errorf("translate: write artifact: %w", err)
	}
	return Success(uri.FromPath(outPath)), nil
}
