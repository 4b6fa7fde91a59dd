package document

import (
	lsp "github.com/TypeFox/go-lsp"

	"github.com/Mindgibber/zls/internal/zig"
)

// ErrorCompletionItems aggregates the error-set completion items of a handle
// with those of every directly imported document and every successful
// cimport artifact. Duplicate labels collapse, first occurrence wins.
func (s *Store) ErrorCompletionItems(h *Handle) []lsp.CompletionItem {
	return s.aggregateCompletions(h, func(scope *zig.DocumentScope) []lsp.CompletionItem {
		return scope.ErrorCompletions
	})
}

// EnumCompletionItems aggregates enum-field completion items the same way.
func (s *Store) EnumCompletionItems(h *Handle) []lsp.CompletionItem {
	return s.aggregateCompletions(h, func(scope *zig.DocumentScope) []lsp.CompletionItem {
		return scope.EnumCompletions
	})
}

func (s *Store) aggregateCompletions(h *Handle, pick func(*zig.DocumentScope) []lsp.CompletionItem) []lsp.CompletionItem {
	var out []lsp.CompletionItem
	seen := make(map[string]struct{})

	add := func(items []lsp.CompletionItem) {
		for _, item := range items {
			if _, dup := seen[item.Label]; dup {
				continue
			}
			seen[item.Label] = struct{}{}
			out = append(out, item)
		}
	}

	add(pick(h.Scope))
	for _, imp := range h.Imports {
		if dep, ok := s.handles.Get(imp); ok {
			add(pick(dep.Scope))
		}
	}
	for _, entry := range h.CImports {
		res, ok := s.cimports[entry.Hash]
		if !ok {
			continue
		}
		u, success := res.URI()
		if !success {
			continue
		}
		if dep, ok := s.handles.Get(u); ok {
			add(pick(dep.Scope))
		}
	}
	return out
}
