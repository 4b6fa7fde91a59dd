package document

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/Mindgibber/zls/internal/uri"
)

// CollectDependencies enumerates the direct dependencies of a handle: every
// resolved import, the artifact of every successfully translated @cImport,
// and every package root of the associated build file. The returned slice
// is freshly allocated on each call.
func (s *Store) CollectDependencies(h *Handle) []string {
	var deps []string
	deps = append(deps, h.Imports...)

	for _, entry := range h.CImports {
		if res, ok := s.cimports[entry.Hash]; ok {
			if u, success := res.URI(); success {
				deps = append(deps, u)
			}
		}
	}

	if h.AssociatedBuildFile != "" {
		if bf := s.buildFiles[h.AssociatedBuildFile]; bf != nil {
			for _, pkg := range bf.Config.Packages {
				deps = append(deps, uri.FromPath(pkg.Path))
			}
		}
	}
	return deps
}

// ensureDependenciesProcessed transitively materializes every missing
// dependency of h, then resolves h's own cimports. Dependencies that fail to
// load or parse are logged at debug level and skipped.
func (s *Store) ensureDependenciesProcessed(h *Handle) {
	queue := s.CollectDependencies(h)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]

		if _, ok := s.handles.Get(u); ok {
			continue
		}
		dep, err := s.createDocumentFromURI(u, false)
		if err != nil {
			s.log.WithError(err).WithField("uri", u).Debug("skipping unloadable dependency")
			continue
		}
		s.handles.Set(u, dep)
		s.ensureCImportsProcessed(dep)
		queue = append(queue, s.CollectDependencies(dep)...)
	}
	s.ensureCImportsProcessed(h)
}

// ensureCImportsProcessed translates every cimport of h that has no cache
// entry yet. Successful translations also materialize a handle for the
// artifact. A failed translation is cached and stops the scan; a translation
// that produced no verdict is skipped without caching so the next pass
// retries it.
func (s *Store) ensureCImportsProcessed(h *Handle) {
	for i := range h.CImports {
		entry := &h.CImports[i]
		if _, ok := s.cimports[entry.Hash]; ok {
			continue
		}

		res, err := s.translator.Translate(context.Background(), entry.Source, s.includeDirs(h))
		if err != nil {
			s.log.WithError(err).WithField("uri", h.URI).Debug("cimport translation produced no result")
			continue
		}

		s.cimports[entry.Hash] = res
		u, ok := res.URI()
		if !ok {
			break
		}
		if _, exists := s.handles.Get(u); exists {
			continue
		}
		dep, err := s.createDocumentFromURI(u, false)
		if err != nil {
			s.log.WithError(err).WithField("uri", u).Debug("skipping unloadable cimport artifact")
			continue
		}
		s.handles.Set(u, dep)
	}
}

// garbageCollect removes every handle unreachable from an open document in
// the import/cimport/associated-packages digraph, then prunes the cimport
// cache.
func (s *Store) garbageCollect() {
	reachable := make(map[string]struct{})
	var queue []string

	for pair := s.handles.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Open {
			reachable[pair.Key] = struct{}{}
			queue = append(queue, s.CollectDependencies(pair.Value)...)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if _, ok := reachable[u]; ok {
			continue
		}
		reachable[u] = struct{}{}
		if h, ok := s.handles.Get(u); ok {
			queue = append(queue, s.CollectDependencies(h)...)
		}
	}

	var dead []string
	for pair := s.handles.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := reachable[pair.Key]; !ok {
			dead = append(dead, pair.Key)
		}
	}
	for _, u := range dead {
		s.handles.Delete(u)
		s.log.WithField("uri", u).Debug("collected document")
	}

	s.garbageCollectCImports()
}

// garbageCollectCImports drops every cache entry whose hash is no longer
// referenced by a live handle.
func (s *Store) garbageCollectCImports() {
	live := make(map[digest.Digest]struct{})
	for pair := s.handles.Oldest(); pair != nil; pair = pair.Next() {
		for _, entry := range pair.Value.CImports {
			live[entry.Hash] = struct{}{}
		}
	}
	for hash := range s.cimports {
		if _, ok := live[hash]; !ok {
			delete(s.cimports, hash)
		}
	}
}
