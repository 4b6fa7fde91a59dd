// Package lspserver implements the Language Server Protocol front-end that
// drives the document store.
//
// The server handles document synchronization (didOpen/didChange/didSave/
// didClose) and completion for error and enum tags. Any other request is
// answered with MethodNotFound; any other notification is ignored.
//
// Transport: stdio only. Protocol types via github.com/TypeFox/go-lsp,
// JSON-RPC via github.com/sourcegraph/jsonrpc2. Requests are handled
// synchronously: the store assumes a single writer, and the connection's
// in-order dispatch is what provides it.
package lspserver

import (
	"context"
	"encoding/json"
	"os"

	lsp "github.com/TypeFox/go-lsp"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/Mindgibber/zls/internal/config"
	"github.com/Mindgibber/zls/internal/document"
)

const serverName = "zls"

// Server is the zls LSP server.
type Server struct {
	store *document.Store
	log   *logrus.Entry

	shutdown bool
}

// New creates an LSP server around a fresh document store.
func New(cfg *config.Config) *Server {
	return &Server{
		store: document.NewStore(cfg),
		log:   logrus.WithField("component", "lsp"),
	}
}

// NewWithStore creates an LSP server around an existing store.
func NewWithStore(store *document.Store) *Server {
	return &Server{
		store: store,
		log:   logrus.WithField("component", "lsp"),
	}
}

// RunStdio serves LSP over stdin/stdout until the client disconnects or the
// context is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	stream := jsonrpc2.NewBufferedStream(stdioReadWriteCloser{}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle))

	select {
	case <-ctx.Done():
		return conn.Close()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// Handler returns the JSON-RPC handler, for serving over other transports
// and for tests.
func (s *Server) Handler() jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(s.handle)
}

// handle dispatches one JSON-RPC request.
func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if s.shutdown && req.Method != "exit" {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidRequest,
			Message: "server is shutting down",
		}
	}

	switch req.Method {
	// Lifecycle
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil, nil
	case "shutdown":
		s.shutdown = true
		return nil, nil
	case "exit":
		return nil, conn.Close()
	case "$/setTrace", "$/cancelRequest":
		return nil, nil

	// Document sync
	case "textDocument/didOpen":
		return s.handleDidOpen(req)
	case "textDocument/didChange":
		return s.handleDidChange(req)
	case "textDocument/didSave":
		return s.handleDidSave(req)
	case "textDocument/didClose":
		return s.handleDidClose(req)

	// Language features
	case "textDocument/completion":
		return s.handleCompletion(req)

	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "method not supported: " + req.Method,
		}
	}
}

// handleInitialize advertises server capabilities.
func (s *Server) handleInitialize(req *jsonrpc2.Request) (any, error) {
	var params lsp.InitializeParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}

	s.log.WithField("pid", params.ProcessID).Info("initialize")

	syncKind := lsp.TDSKFull
	return lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Kind: &syncKind,
			},
			CompletionProvider: &lsp.CompletionOptions{
				TriggerCharacters: []string{"."},
			},
		},
	}, nil
}

// unmarshalParams decodes request params, mapping failure to a JSON-RPC
// parse error.
func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return nil
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: "invalid params: " + err.Error(),
		}
	}
	return nil
}

// stdioReadWriteCloser wraps stdin/stdout as an io.ReadWriteCloser for JSON-RPC.
type stdioReadWriteCloser struct{}

func (stdioReadWriteCloser) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioReadWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioReadWriteCloser) Close() error                { return nil }
