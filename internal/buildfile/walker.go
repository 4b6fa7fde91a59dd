package buildfile

import (
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BuildFileName is the build script probed in each ancestor directory.
const BuildFileName = "build.zig"

const walkerMemoSize = 512

// Walker enumerates the ancestor directories of a path that contain an
// accessible build.zig. Stat probes are memoized; a store lives as long as
// one editing session, so staleness is acceptable.
type Walker struct {
	stat func(string) (os.FileInfo, error)
	memo *lru.Cache[string, bool]
}

// NewWalker returns a Walker probing the real filesystem.
func NewWalker() *Walker {
	memo, _ := lru.New[string, bool](walkerMemoSize)
	return &Walker{stat: os.Stat, memo: memo}
}

// Ancestors returns the build.zig path of every ancestor directory of path
// that contains one, ordered from the root toward the path. The path's own
// final component is never probed.
func (w *Walker) Ancestors(path string) []string {
	path = strings.ReplaceAll(path, "\\", "/")

	var found []string
	// Step from each '/' to the next; each prefix names one ancestor dir.
	for i := 0; i < len(path); i++ {
		if path[i] != '/' {
			continue
		}
		candidate := path[:i+1] + BuildFileName
		if candidate == path {
			continue
		}
		if w.exists(candidate) {
			found = append(found, candidate)
		}
	}
	return found
}

func (w *Walker) exists(path string) bool {
	if hit, ok := w.memo.Get(path); ok {
		return hit
	}
	info, err := w.stat(path)
	ok := err == nil && !info.IsDir()
	w.memo.Add(path, ok)
	return ok
}
