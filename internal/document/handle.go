package document

import (
	"github.com/opencontainers/go-digest"

	"github.com/Mindgibber/zls/internal/zig"
)

// CImportEntry records one @cImport block of a handle: the syntax node that
// produced it, the content hash of the emitted C source, and the source
// itself. The hash keys the store-wide translation cache.
type CImportEntry struct {
	Node   zig.NodeIndex
	Hash   digest.Digest
	Source string
}

// Handle is the store-owned record for one source document. Handles refer
// to other handles only by URI, never by pointer; all traversal goes back
// through the store's map. Reachability GC, not reference counting, decides
// when a handle dies.
type Handle struct {
	// URI uniquely identifies the document across the store.
	URI string

	// Text is the source with a terminating NUL sentinel (parser contract).
	// The buffer is immutable once installed; refresh replaces it wholesale.
	Text []byte

	// Tree is the parsed directive tree.
	Tree *zig.Tree

	// Scope is the derived semantic index.
	Scope *zig.DocumentScope

	// Open is true while the editor has the document open.
	Open bool

	// Imports holds the resolved dependency URI per import directive, in
	// source order. Unresolved imports are dropped at collection time.
	Imports []string

	// CImports holds one entry per @cImport directive whose conversion to C
	// source succeeded.
	CImports []CImportEntry

	// AssociatedBuildFile is the URI of the build file governing this
	// document, when one was found.
	AssociatedBuildFile string

	// IsBuildFile is true iff this document is itself a build.zig.
	IsBuildFile bool
}

// cimportEntry returns the cimport entry for the given syntax node.
func (h *Handle) cimportEntry(node zig.NodeIndex) *CImportEntry {
	for i := range h.CImports {
		if h.CImports[i].Node == node {
			return &h.CImports[i]
		}
	}
	return nil
}
