package lspserver

import (
	lsp "github.com/TypeFox/go-lsp"

	"github.com/sourcegraph/jsonrpc2"
)

// handleDidOpen registers the document and materializes its dependencies.
func (s *Server) handleDidOpen(req *jsonrpc2.Request) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	u := string(params.TextDocument.URI)
	if _, err := s.store.OpenDocument(u, params.TextDocument.Text); err != nil {
		// Parse failure on open propagates as the handler error. didOpen is a
		// notification, so jsonrpc2 logs the error and sends no reply.
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: err.Error(),
		}
	}
	return nil, nil
}

// handleDidChange replaces the document text. Sync is full, so the last
// content change carries the complete text.
func (s *Server) handleDidChange(req *jsonrpc2.Request) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	u := string(params.TextDocument.URI)
	for _, change := range params.ContentChanges {
		if err := s.store.RefreshDocument(u, change.Text); err != nil {
			s.log.WithError(err).WithField("uri", u).Debug("refresh kept previous state")
		}
	}
	return nil, nil
}

// handleDidSave re-extracts build configuration for saved build files.
func (s *Server) handleDidSave(req *jsonrpc2.Request) (any, error) {
	var params lsp.DidSaveTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	s.store.ApplySave(string(params.TextDocument.URI))
	return nil, nil
}

// handleDidClose drops the open flag and garbage-collects.
func (s *Server) handleDidClose(req *jsonrpc2.Request) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	s.store.CloseDocument(string(params.TextDocument.URI))
	return nil, nil
}
