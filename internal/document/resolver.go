package document

import (
	"path/filepath"
	"strings"

	"github.com/Mindgibber/zls/internal/uri"
	"github.com/Mindgibber/zls/internal/zig"
)

// uriFromImportStr resolves a raw import string for a handle. An empty
// result means the import is unresolved and will be dropped.
//
// Resolution policy:
//
//	"std"                 -> <zig_lib_path>/std/std.zig
//	"builtin"             -> build file's builtin override, else builtin_path
//	name (no .zig suffix) -> named package from the associated build file
//	anything ending .zig  -> relative to the importing document's URI
func (s *Store) uriFromImportStr(h *Handle, importStr string) string {
	switch {
	case importStr == "std":
		if s.cfg.ZigLibPath == "" {
			return ""
		}
		return uri.FromPath(filepath.Join(s.cfg.ZigLibPath, "std", "std.zig"))

	case importStr == "builtin":
		if h.AssociatedBuildFile != "" {
			if bf := s.buildFiles[h.AssociatedBuildFile]; bf != nil && bf.BuiltinURI != "" {
				return bf.BuiltinURI
			}
		}
		if s.cfg.BuiltinPath != "" {
			return uri.FromPath(s.cfg.BuiltinPath)
		}
		return ""

	case !strings.HasSuffix(importStr, ".zig"):
		if h.AssociatedBuildFile == "" {
			return ""
		}
		bf := s.buildFiles[h.AssociatedBuildFile]
		if bf == nil {
			return ""
		}
		for _, pkg := range bf.Config.Packages {
			if pkg.Name == importStr {
				return uri.FromPath(pkg.Path)
			}
		}
		return ""

	default:
		resolved, err := uri.Resolve(h.URI, importStr)
		if err != nil {
			return ""
		}
		return resolved
	}
}

// resolveImports maps raw import strings to URIs. Unresolved imports are
// dropped, as are targets that neither exist on disk nor in the store: a
// dangling import must never reach the imports list (the GC and dependency
// walk treat every listed URI as materializable).
func (s *Store) resolveImports(h *Handle, raw []string) []string {
	var out []string
	for _, imp := range raw {
		resolved := s.uriFromImportStr(h, imp)
		if resolved == "" || !s.importTargetExists(resolved) {
			continue
		}
		out = append(out, resolved)
	}
	return out
}

// importTargetExists reports whether a resolved import URI is backed by a
// live handle (unsaved editor buffers included) or a readable file.
func (s *Store) importTargetExists(u string) bool {
	if _, ok := s.handles.Get(u); ok {
		return true
	}
	path, err := uri.ToPath(u)
	if err != nil {
		return false
	}
	return s.fileExists(path)
}

// includeDirs returns the include directories of the handle's associated
// build file, or nil.
func (s *Store) includeDirs(h *Handle) []string {
	if h.AssociatedBuildFile == "" {
		return nil
	}
	bf := s.buildFiles[h.AssociatedBuildFile]
	if bf == nil {
		return nil
	}
	return bf.Config.IncludeDirs
}

// ResolveCImport returns the translated artifact URI for the @cImport block
// at the given syntax node, or "" when the node is unknown, untranslated, or
// the translation failed.
func (s *Store) ResolveCImport(h *Handle, node zig.NodeIndex) string {
	entry := h.cimportEntry(node)
	if entry == nil {
		return ""
	}
	res, ok := s.cimports[entry.Hash]
	if !ok {
		return ""
	}
	u, ok := res.URI()
	if !ok {
		return ""
	}
	return u
}
