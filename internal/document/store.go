// Package document implements the in-memory document store: the universe of
// source documents the editor is interacting with plus every transitive
// dependency, the build-file records governing them, and the cache of
// translated @cImport artifacts.
//
// The store assumes exclusive mutation by a single driver. There is no
// internal locking; the LSP front-end serializes calls.
package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/Mindgibber/zls/internal/buildfile"
	"github.com/Mindgibber/zls/internal/config"
	"github.com/Mindgibber/zls/internal/translate"
	"github.com/Mindgibber/zls/internal/uri"
	"github.com/Mindgibber/zls/internal/zig"
)

// Store owns every handle, build-file record and translated-cimport cache
// entry. Handles are keyed by URI in insertion order.
type Store struct {
	cfg *config.Config
	log *logrus.Entry

	handles    *orderedmap.OrderedMap[string, *Handle]
	buildFiles map[string]*buildfile.BuildFile
	cimports   map[digest.Digest]translate.Result

	runner     buildfile.Runner
	translator translate.Translator
	walker     *buildfile.Walker
	readFile   func(string) ([]byte, error)
	fileExists func(string) bool
}

// Option configures a Store.
type Option func(*Store)

// WithRunner replaces the build-runner sub-process invocation.
func WithRunner(r buildfile.Runner) Option {
	return func(s *Store) { s.runner = r }
}

// WithTranslator replaces the translate-c sub-process invocation.
func WithTranslator(t translate.Translator) Option {
	return func(s *Store) { s.translator = t }
}

// WithReadFile replaces filesystem reads during dependency materialization.
func WithReadFile(f func(string) ([]byte, error)) Option {
	return func(s *Store) { s.readFile = f }
}

// NewStore creates an empty store borrowing the given configuration. The
// configuration is treated as immutable for the store's lifetime.
func NewStore(cfg *config.Config, opts ...Option) *Store {
	log := logrus.WithField("component", "docstore")
	s := &Store{
		cfg:        cfg,
		log:        log,
		handles:    orderedmap.New[string, *Handle](),
		buildFiles: make(map[string]*buildfile.BuildFile),
		cimports:   make(map[digest.Digest]translate.Result),
		walker:     buildfile.NewWalker(),
		readFile:   os.ReadFile,
		fileExists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
	s.runner = buildfile.NewCmdRunner(cfg.ZigExePath, cfg.BuildRunnerPath, cfg.GlobalCachePath, log)
	s.translator = translate.NewCmdTranslator(cfg.ZigExePath, cfg.GlobalCachePath, log)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHandle returns the stored handle for uri, or nil with a warning log.
func (s *Store) GetHandle(u string) *Handle {
	h, ok := s.handles.Get(u)
	if !ok {
		s.log.WithField("uri", u).Warn("no handle for document")
		return nil
	}
	return h
}

// HandleCount reports the number of live handles.
func (s *Store) HandleCount() int {
	return s.handles.Len()
}

// BuildFile returns the build-file record for uri, if one exists.
func (s *Store) BuildFile(u string) *buildfile.BuildFile {
	return s.buildFiles[u]
}

// CImportResult returns the cached translation result for a content hash.
func (s *Store) CImportResult(hash digest.Digest) (translate.Result, bool) {
	res, ok := s.cimports[hash]
	return res, ok
}

// OpenDocument registers an editor-opened document. If the document is
// already tracked (as a dependency or already open) its open flag is set and
// the stored handle returned; otherwise a new handle is constructed and its
// transitive dependencies materialized before returning.
func (s *Store) OpenDocument(u, text string) (*Handle, error) {
	if h, ok := s.handles.Get(u); ok {
		if h.Open {
			s.log.WithField("uri", u).Warn("document already open")
		}
		h.Open = true
		return h, nil
	}

	h, err := s.createDocument(u, appendSentinel([]byte(text)), true)
	if err != nil {
		return nil, err
	}
	s.handles.Set(u, h)
	s.ensureDependenciesProcessed(h)
	return h, nil
}

// CloseDocument clears the open flag of the named document and collects
// everything no longer reachable from an open document.
func (s *Store) CloseDocument(u string) {
	h, ok := s.handles.Get(u)
	if !ok {
		s.log.WithField("uri", u).Warn("closing unknown document")
		return
	}
	h.Open = false
	s.garbageCollect()
}

// RefreshDocument replaces the text of an existing handle and rebuilds its
// derived state. The old state is kept when the new text fails to parse.
func (s *Store) RefreshDocument(u, text string) error {
	h, ok := s.handles.Get(u)
	if !ok {
		s.log.WithField("uri", u).Warn("refreshing unknown document")
		return nil
	}

	newText := appendSentinel([]byte(text))
	tree, err := zig.Parse(newText)
	if err != nil {
		return err
	}

	h.Text = newText
	h.Tree = tree
	h.Scope = zig.BuildDocumentScope(tree)
	h.Imports = s.resolveImports(h, tree.Imports())
	h.CImports = collectCImports(tree)
	s.ensureDependenciesProcessed(h)
	return nil
}

// ApplySave re-extracts the build configuration when a build file is saved.
// On runner failure the previous configuration is kept.
func (s *Store) ApplySave(u string) {
	h, ok := s.handles.Get(u)
	if !ok {
		s.log.WithField("uri", u).Warn("saving unknown document")
		return
	}
	if !h.IsBuildFile {
		return
	}
	bf := s.buildFiles[h.URI]
	if bf == nil {
		return
	}

	path, err := uri.ToPath(h.URI)
	if err != nil {
		s.log.WithError(err).WithField("uri", h.URI).Warn("build file has non-file URI")
		return
	}
	cfg, err := s.runner.Run(context.Background(), path, bf.BuildOptions())
	if err != nil {
		s.log.WithError(err).WithField("uri", h.URI).Error("build runner failed, keeping previous configuration")
		return
	}
	cfg.AbsolutePaths(filepath.Dir(path))
	bf.Config = cfg
}

// createDocument parses text and builds a fully-derived handle. It takes
// ownership of text, which must carry the NUL sentinel.
func (s *Store) createDocument(u string, text []byte, open bool) (*Handle, error) {
	tree, err := zig.Parse(text)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		URI:   u,
		Text:  text,
		Tree:  tree,
		Scope: zig.BuildDocumentScope(tree),
		Open:  open,
	}

	// Associate before resolving imports: "builtin" overrides and named
	// packages resolve through the associated build file.
	s.associateBuildFile(h)

	h.Imports = s.resolveImports(h, tree.Imports())
	h.CImports = collectCImports(tree)
	return h, nil
}

// createDocumentFromURI reads the document's file and delegates to
// createDocument. Used for dependency materialization; the caller decides
// whether failures are fatal.
func (s *Store) createDocumentFromURI(u string, open bool) (*Handle, error) {
	path, err := uri.ToPath(u)
	if err != nil {
		return nil, err
	}
	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}
	return s.createDocument(u, appendSentinel(data), open)
}

// associateBuildFile decides which build file governs h. A build.zig gets
// its own record; any other document outside the standard library walks its
// ancestor directories nearest-first and associates with the first build
// file that can prove membership, falling back to the nearest one.
func (s *Store) associateBuildFile(h *Handle) {
	if s.cfg.ZigExePath == "" {
		return
	}
	if strings.Contains(h.URI, "/std/") {
		return
	}

	if strings.HasSuffix(h.URI, "/"+buildfile.BuildFileName) {
		s.ensureBuildFile(h.URI)
		h.IsBuildFile = true
		return
	}

	path, err := uri.ToPath(h.URI)
	if err != nil {
		return
	}

	// The walker yields root-first; probe from the nearest ancestor outward.
	ancestors := s.walker.Ancestors(path)
	var nearest string
	for i := len(ancestors) - 1; i >= 0; i-- {
		buildURI := uri.FromPath(ancestors[i])
		bf := s.ensureBuildFile(buildURI)
		if s.uriAssociatedWithBuild(bf, h.URI) {
			h.AssociatedBuildFile = buildURI
			return
		}
		if nearest == "" {
			nearest = buildURI
		}
	}
	if nearest != "" {
		h.AssociatedBuildFile = nearest
	}
}

// ensureBuildFile returns the record for buildURI, constructing it on first
// sight: side-config load, build-runner invocation, package path rewriting.
// Runner failure is non-fatal and leaves the configuration empty.
func (s *Store) ensureBuildFile(buildURI string) *buildfile.BuildFile {
	if bf, ok := s.buildFiles[buildURI]; ok {
		return bf
	}

	bf := &buildfile.BuildFile{URI: buildURI}
	s.buildFiles[buildURI] = bf

	path, err := uri.ToPath(buildURI)
	if err != nil {
		s.log.WithError(err).WithField("uri", buildURI).Warn("build file has non-file URI")
		return bf
	}
	buildDir := filepath.Dir(path)

	bf.SideConfig = buildfile.LoadSideConfig(buildDir, s.log)
	if bf.SideConfig != nil && bf.SideConfig.RelativeBuiltinPath != "" {
		bf.BuiltinURI = uri.FromPath(filepath.Join(buildDir, bf.SideConfig.RelativeBuiltinPath))
	}

	cfg, err := s.runner.Run(context.Background(), path, bf.BuildOptions())
	if err != nil {
		s.log.WithError(err).WithField("uri", buildURI).Error("build runner failed, using empty configuration")
		return bf
	}
	cfg.AbsolutePaths(buildDir)
	bf.Config = cfg
	return bf
}

// uriAssociatedWithBuild reports whether u is one of the build file's
// package roots or transitively imported from one. Membership is defined by
// the document graph, not by what happens to be loaded already, so package
// roots (and their imports) are materialized on demand while probing.
func (s *Store) uriAssociatedWithBuild(bf *buildfile.BuildFile, u string) bool {
	visited := make(map[string]struct{})
	for _, pkg := range bf.Config.Packages {
		if s.importsURI(uri.FromPath(pkg.Path), u, visited) {
			return true
		}
	}
	return false
}

func (s *Store) importsURI(from, target string, visited map[string]struct{}) bool {
	if from == target {
		return true
	}
	if _, seen := visited[from]; seen {
		return false
	}
	visited[from] = struct{}{}
	h, ok := s.handles.Get(from)
	if !ok {
		dep, err := s.createDocumentFromURI(from, false)
		if err != nil {
			s.log.WithError(err).WithField("uri", from).Debug("skipping unloadable package root during association probe")
			return false
		}
		s.handles.Set(from, dep)
		h = dep
	}
	for _, imp := range h.Imports {
		if s.importsURI(imp, target, visited) {
			return true
		}
	}
	return false
}

// collectCImports converts every @cImport block to C source and hashes it.
// Blocks the converter cannot express are dropped.
func collectCImports(tree *zig.Tree) []CImportEntry {
	var out []CImportEntry
	for _, idx := range tree.CImports() {
		src, err := zig.ConvertCInclude(tree, idx)
		if err != nil {
			continue
		}
		out = append(out, CImportEntry{
			Node:   idx,
			Hash:   digest.FromString(src),
			Source: src,
		})
	}
	return out
}

func appendSentinel(text []byte) []byte {
	return append(text, 0)
}
