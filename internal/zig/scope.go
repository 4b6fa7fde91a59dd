package zig

import (
	lsp "github.com/TypeFox/go-lsp"
)

// DocumentScope is the semantic index derived from one document's tree.
// Completion queries aggregate these across the import graph.
type DocumentScope struct {
	// ErrorCompletions holds one item per distinct error-set member.
	ErrorCompletions []lsp.CompletionItem

	// EnumCompletions holds one item per distinct enum field.
	EnumCompletions []lsp.CompletionItem
}

// BuildDocumentScope derives the completion sets from a parsed tree.
// Members are deduplicated by name, first occurrence wins.
func BuildDocumentScope(t *Tree) *DocumentScope {
	scope := &DocumentScope{}

	seen := make(map[string]struct{}, len(t.ErrorNames))
	for _, name := range t.ErrorNames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		scope.ErrorCompletions = append(scope.ErrorCompletions, lsp.CompletionItem{
			Label:      name,
			Kind:       lsp.CIKField,
			Detail:     "error." + name,
			InsertText: name,
		})
	}

	seen = make(map[string]struct{}, len(t.EnumNames))
	for _, name := range t.EnumNames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		scope.EnumCompletions = append(scope.EnumCompletions, lsp.CompletionItem{
			Label:      name,
			Kind:       lsp.CIKEnum,
			InsertText: name,
		})
	}

	return scope
}
