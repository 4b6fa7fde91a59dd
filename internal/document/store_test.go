package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindgibber/zls/internal/buildfile"
	"github.com/Mindgibber/zls/internal/config"
	"github.com/Mindgibber/zls/internal/translate"
	"github.com/Mindgibber/zls/internal/uri"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.PanicLevel)
	os.Exit(m.Run())
}

// fakeRunner serves canned build configurations keyed by build file path.
type fakeRunner struct {
	configs map[string]buildfile.BuildConfig
	err     error
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, buildFilePath string, _ []string) (buildfile.BuildConfig, error) {
	f.calls++
	if f.err != nil {
		return buildfile.BuildConfig{}, f.err
	}
	return f.configs[buildFilePath], nil
}

// fakeTranslator returns a fixed outcome for every source.
type fakeTranslator struct {
	result translate.Result
	err    error
	calls  int
}

func (f *fakeTranslator) Translate(_ context.Context, _ string, _ []string) (translate.Result, error) {
	f.calls++
	if f.err != nil {
		return translate.Result{}, f.err
	}
	return f.result, nil
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newTestStore(t *testing.T, cfg *config.Config, opts ...Option) *Store {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	base := []Option{
		WithRunner(&fakeRunner{}),
		WithTranslator(&fakeTranslator{err: errors.New("no translator in test")}),
	}
	return NewStore(cfg, append(base, opts...)...)
}

func TestIsolatedOpenClose(t *testing.T) {
	s := newTestStore(t, nil)

	h, err := s.OpenDocument("file:///a.zig", "const x = 1;")
	require.NoError(t, err)
	assert.True(t, h.Open)
	assert.Equal(t, "file:///a.zig", h.URI)
	assert.Equal(t, 1, s.HandleCount())

	s.CloseDocument("file:///a.zig")
	assert.Equal(t, 0, s.HandleCount())
}

func TestOpenPropagatesParseFailure(t *testing.T) {
	s := newTestStore(t, nil)

	_, err := s.OpenDocument("file:///bad.zig", `const s = "unterminated`)
	assert.Error(t, err)
	assert.Equal(t, 0, s.HandleCount())
}

func TestReopenReturnsStoredHandle(t *testing.T) {
	s := newTestStore(t, nil)

	first, err := s.OpenDocument("file:///a.zig", "const x = 1;")
	require.NoError(t, err)
	again, err := s.OpenDocument("file:///a.zig", "ignored")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, 1, s.HandleCount())
}

func TestTransitiveImport(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, filepath.Join(dir, "a.zig"), `const b = @import("b.zig");`)
	writeFile(t, filepath.Join(dir, "b.zig"), `const c = @import("c.zig");`)
	writeFile(t, filepath.Join(dir, "c.zig"), "const x = 1;")

	s := newTestStore(t, nil)
	aURI := uri.FromPath(aPath)
	_, err := s.OpenDocument(aURI, readText(t, aPath))
	require.NoError(t, err)

	assert.Equal(t, 3, s.HandleCount())
	a, _ := s.handles.Get(aURI)
	b, _ := s.handles.Get(uri.FromPath(filepath.Join(dir, "b.zig")))
	c, _ := s.handles.Get(uri.FromPath(filepath.Join(dir, "c.zig")))
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.True(t, a.Open)
	assert.False(t, b.Open)
	assert.False(t, c.Open)

	s.CloseDocument(aURI)
	assert.Equal(t, 0, s.HandleCount())
}

func TestSharedDependency(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, filepath.Join(dir, "a.zig"), `const s = @import("shared.zig");`)
	bPath := writeFile(t, filepath.Join(dir, "b.zig"), `const s = @import("shared.zig");`)
	writeFile(t, filepath.Join(dir, "shared.zig"), "const x = 1;")

	s := newTestStore(t, nil)
	aURI, bURI := uri.FromPath(aPath), uri.FromPath(bPath)
	sharedURI := uri.FromPath(filepath.Join(dir, "shared.zig"))

	_, err := s.OpenDocument(aURI, readText(t, aPath))
	require.NoError(t, err)
	_, err = s.OpenDocument(bURI, readText(t, bPath))
	require.NoError(t, err)
	assert.Equal(t, 3, s.HandleCount())

	s.CloseDocument(aURI)
	assert.Equal(t, 2, s.HandleCount())
	_, stillThere := s.handles.Get(sharedURI)
	assert.True(t, stillThere)
	_, gone := s.handles.Get(aURI)
	assert.False(t, gone)

	s.CloseDocument(bURI)
	assert.Equal(t, 0, s.HandleCount())
}

func TestImportCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, filepath.Join(dir, "a.zig"), `const b = @import("b.zig");`)
	writeFile(t, filepath.Join(dir, "b.zig"), `const a = @import("a.zig");`)

	s := newTestStore(t, nil)
	aURI := uri.FromPath(aPath)
	_, err := s.OpenDocument(aURI, readText(t, aPath))
	require.NoError(t, err)

	assert.Equal(t, 2, s.HandleCount())

	s.CloseDocument(aURI)
	assert.Equal(t, 0, s.HandleCount())
}

func TestUnresolvedImportDropped(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, filepath.Join(dir, "a.zig"), `const x = @import("nonexistent.zig");`)

	s := newTestStore(t, nil)
	h, err := s.OpenDocument(uri.FromPath(aPath), readText(t, aPath))
	require.NoError(t, err)

	assert.Empty(t, h.Imports)
	assert.Equal(t, 1, s.HandleCount())
}

func TestStdImportResolution(t *testing.T) {
	t.Run("unset lib path leaves std unresolved", func(t *testing.T) {
		s := newTestStore(t, &config.Config{})
		h, err := s.OpenDocument("file:///a.zig", `const std = @import("std");`)
		require.NoError(t, err)
		assert.Empty(t, h.Imports)
	})

	t.Run("configured lib path resolves std", func(t *testing.T) {
		lib := t.TempDir()
		stdPath := writeFile(t, filepath.Join(lib, "std", "std.zig"), "const x = 1;")

		s := newTestStore(t, &config.Config{ZigLibPath: lib})
		h, err := s.OpenDocument("file:///a.zig", `const std = @import("std");`)
		require.NoError(t, err)
		require.Len(t, h.Imports, 1)
		assert.Equal(t, uri.FromPath(stdPath), h.Imports[0])
		assert.Equal(t, 2, s.HandleCount())
	})
}

func TestBuiltinImportResolution(t *testing.T) {
	t.Run("falls back to configured builtin path", func(t *testing.T) {
		dir := t.TempDir()
		builtinPath := writeFile(t, filepath.Join(dir, "builtin.zig"), "const x = 1;")

		s := newTestStore(t, &config.Config{BuiltinPath: builtinPath})
		h, err := s.OpenDocument("file:///a.zig", `const b = @import("builtin");`)
		require.NoError(t, err)
		require.Len(t, h.Imports, 1)
		assert.Equal(t, uri.FromPath(builtinPath), h.Imports[0])
	})

	t.Run("unresolved without any builtin source", func(t *testing.T) {
		s := newTestStore(t, &config.Config{})
		h, err := s.OpenDocument("file:///a.zig", `const b = @import("builtin");`)
		require.NoError(t, err)
		assert.Empty(t, h.Imports)
	})
}

func TestBuildFileAssociationByMembership(t *testing.T) {
	dir := t.TempDir()
	buildPath := writeFile(t, filepath.Join(dir, "p", "build.zig"), "")
	mainPath := writeFile(t, filepath.Join(dir, "p", "src", "main.zig"), "const x = 1;")

	runner := &fakeRunner{configs: map[string]buildfile.BuildConfig{
		buildPath: {Packages: []buildfile.Package{{Name: "main", Path: mainPath}}},
	}}
	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"}, WithRunner(runner))

	h, err := s.OpenDocument(uri.FromPath(mainPath), readText(t, mainPath))
	require.NoError(t, err)

	assert.Equal(t, uri.FromPath(buildPath), h.AssociatedBuildFile)
	require.NotNil(t, s.BuildFile(h.AssociatedBuildFile))
	assert.Equal(t, 1, runner.calls)
}

func TestBuildFileAssociationLoadsPackageRoots(t *testing.T) {
	dir := t.TempDir()
	outerBuild := writeFile(t, filepath.Join(dir, "proj", "build.zig"), "")
	writeFile(t, filepath.Join(dir, "proj", "src", "build.zig"), "")
	mainPath := writeFile(t, filepath.Join(dir, "proj", "src", "main.zig"),
		`const h = @import("helper.zig");`)
	helperPath := writeFile(t, filepath.Join(dir, "proj", "src", "helper.zig"), "const x = 1;")
	unrelatedPath := writeFile(t, filepath.Join(dir, "proj", "src", "other.zig"), "const x = 1;")

	runner := &fakeRunner{configs: map[string]buildfile.BuildConfig{
		outerBuild: {Packages: []buildfile.Package{{Name: "app", Path: mainPath}}},
		filepath.Join(dir, "proj", "src", "build.zig"): {
			Packages: []buildfile.Package{{Name: "other", Path: unrelatedPath}},
		},
	}}
	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"}, WithRunner(runner))

	// helper.zig is opened directly; its package root main.zig has never
	// been touched. Membership must still be proven against the outer build
	// file's package graph, not decided by load order.
	h, err := s.OpenDocument(uri.FromPath(helperPath), readText(t, helperPath))
	require.NoError(t, err)

	assert.Equal(t, uri.FromPath(outerBuild), h.AssociatedBuildFile)
	_, mainLoaded := s.handles.Get(uri.FromPath(mainPath))
	assert.True(t, mainLoaded)
}

func TestBuildFileAssociationNearestFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.zig"), "")
	innerBuild := writeFile(t, filepath.Join(dir, "inner", "build.zig"), "")
	mainPath := writeFile(t, filepath.Join(dir, "inner", "src", "main.zig"), "const x = 1;")

	// No package membership anywhere: fall back to the nearest build file.
	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"})

	h, err := s.OpenDocument(uri.FromPath(mainPath), readText(t, mainPath))
	require.NoError(t, err)
	assert.Equal(t, uri.FromPath(innerBuild), h.AssociatedBuildFile)
}

func TestBuildFileSelfAssociation(t *testing.T) {
	dir := t.TempDir()
	buildPath := writeFile(t, filepath.Join(dir, "build.zig"), "const x = 1;")

	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"})
	h, err := s.OpenDocument(uri.FromPath(buildPath), readText(t, buildPath))
	require.NoError(t, err)

	assert.True(t, h.IsBuildFile)
	assert.NotNil(t, s.BuildFile(h.URI))
}

func TestStdDocumentsSkipAssociation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "std", "build.zig"), "")
	p := writeFile(t, filepath.Join(dir, "std", "mem.zig"), "const x = 1;")

	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"})
	h, err := s.OpenDocument(uri.FromPath(p), readText(t, p))
	require.NoError(t, err)
	assert.Empty(t, h.AssociatedBuildFile)
	assert.False(t, h.IsBuildFile)
}

func TestBuiltinOverrideFromSideConfig(t *testing.T) {
	dir := t.TempDir()
	buildPath := writeFile(t, filepath.Join(dir, "build.zig"), "")
	override := writeFile(t, filepath.Join(dir, "zig-out", "builtin.zig"), "const x = 1;")
	writeFile(t, filepath.Join(dir, buildfile.SideConfigName),
		`{"relative_builtin_path": "zig-out/builtin.zig"}`)
	mainPath := writeFile(t, filepath.Join(dir, "main.zig"), `const b = @import("builtin");`)

	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig", BuiltinPath: "/ignored/builtin.zig"})
	h, err := s.OpenDocument(uri.FromPath(mainPath), readText(t, mainPath))
	require.NoError(t, err)

	assert.Equal(t, uri.FromPath(buildPath), h.AssociatedBuildFile)
	require.Len(t, h.Imports, 1)
	assert.Equal(t, uri.FromPath(override), h.Imports[0])
}

func TestApplySaveReplacesBuildConfig(t *testing.T) {
	dir := t.TempDir()
	buildPath := writeFile(t, filepath.Join(dir, "build.zig"), "const x = 1;")
	pkgPath := writeFile(t, filepath.Join(dir, "src", "main.zig"), "const x = 1;")

	runner := &fakeRunner{configs: map[string]buildfile.BuildConfig{}}
	s := newTestStore(t, &config.Config{ZigExePath: "/usr/bin/zig"}, WithRunner(runner))

	buildURI := uri.FromPath(buildPath)
	_, err := s.OpenDocument(buildURI, readText(t, buildPath))
	require.NoError(t, err)
	assert.Empty(t, s.BuildFile(buildURI).Config.Packages)

	runner.configs[buildPath] = buildfile.BuildConfig{
		Packages: []buildfile.Package{{Name: "main", Path: pkgPath}},
	}
	s.ApplySave(buildURI)
	require.Len(t, s.BuildFile(buildURI).Config.Packages, 1)

	// Runner failure keeps the previous configuration.
	runner.err = errors.New("build runner exploded")
	s.ApplySave(buildURI)
	assert.Len(t, s.BuildFile(buildURI).Config.Packages, 1)
}

func TestHandleKeysMatchURIs(t *testing.T) {
	dir := t.TempDir()
	aPath := writeFile(t, filepath.Join(dir, "a.zig"), `const b = @import("b.zig");`)
	writeFile(t, filepath.Join(dir, "b.zig"), "const x = 1;")

	s := newTestStore(t, nil)
	_, err := s.OpenDocument(uri.FromPath(aPath), readText(t, aPath))
	require.NoError(t, err)

	for pair := s.handles.Oldest(); pair != nil; pair = pair.Next() {
		assert.Equal(t, pair.Key, pair.Value.URI)
	}
}
