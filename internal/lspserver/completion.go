package lspserver

import (
	"strings"

	lsp "github.com/TypeFox/go-lsp"

	"github.com/sourcegraph/jsonrpc2"
)

// handleCompletion serves error-tag and enum-tag completion from the store's
// transitive aggregation. `error.` prefixes complete error sets; any other
// `.`-triggered position completes enum fields.
func (s *Server) handleCompletion(req *jsonrpc2.Request) (any, error) {
	var params lsp.TextDocumentPositionParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	h := s.store.GetHandle(string(params.TextDocument.URI))
	if h == nil {
		return nil, nil
	}

	var items []lsp.CompletionItem
	if isErrorTagPosition(h.Text, params.Position) {
		items = s.store.ErrorCompletionItems(h)
	} else {
		items = s.store.EnumCompletionItems(h)
	}
	if len(items) == 0 {
		return nil, nil
	}

	return lsp.CompletionList{IsIncomplete: false, Items: items}, nil
}

// isErrorTagPosition reports whether the text immediately before the cursor
// reads "error." (the error-tag access form).
func isErrorTagPosition(text []byte, pos lsp.Position) bool {
	line := lineAt(text, pos.Line)
	if pos.Character > len(line) {
		return false
	}
	return strings.HasSuffix(line[:pos.Character], "error.")
}

// lineAt returns the given zero-based line of the NUL-terminated text.
func lineAt(text []byte, n int) string {
	s := string(text)
	if idx := strings.IndexByte(s, 0); idx >= 0 {
		s = s[:idx]
	}
	for range n {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			return ""
		}
		s = s[idx+1:]
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}
