// Package lsptest runs an in-process language server for tests.
package lsptest

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/hide-org/hide-mcp/internal/document"
	"github.com/hide-org/hide-mcp/internal/lsp"
)

// DiagnoseFunc computes the diagnostics published for a document's text.
type DiagnoseFunc func(uri, text string) []document.Diagnostic

// Server answers initialize and shutdown, and publishes diagnostics after
// every didOpen and didChange.
type Server struct {
	Diagnose DiagnoseFunc

	// Silent suppresses publishing, to exercise client timeouts.
	Silent bool

	// Symbols are answered to workspace/symbol, filtered by name.
	Symbols []lsp.SymbolInformation

	codec   *lsp.Codec
	out     io.Closer
	replies chan *lsp.Message

	mu      sync.Mutex
	methods []string
}

// Dial starts a server and returns a client connected to it.
func Dial(diagnose DiagnoseFunc) (*Server, *lsp.Client) {
	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	s := &Server{
		Diagnose: diagnose,
		codec:    lsp.NewCodec(serverR, serverW),
		out:      serverW,
		replies:  make(chan *lsp.Message, 1),
	}
	go s.serve()
	return s, lsp.NewClient("lsptest", clientR, clientW)
}

// Methods returns the methods received so far, in order.
func (s *Server) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.methods...)
}

// Request sends a server-to-client request and waits for the client's reply.
func (s *Server) Request(ctx context.Context, method string, params any) (*lsp.Message, error) {
	if err := s.codec.WriteRequest(s.codec.NextID(), method, params); err != nil {
		return nil, err
	}
	select {
	case msg := <-s.replies:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) serve() {
	defer s.out.Close()
	for {
		msg, err := s.codec.Read()
		if err != nil {
			return
		}
		if msg.IsResponse() {
			s.replies <- msg
			continue
		}
		if msg.Method == nil {
			continue
		}
		method := *msg.Method
		s.mu.Lock()
		s.methods = append(s.methods, method)
		s.mu.Unlock()

		switch method {
		case "initialize":
			s.codec.WriteResponse(*msg.ID, map[string]any{"capabilities": map[string]any{"textDocumentSync": 1}})
		case "shutdown":
			s.codec.WriteResponse(*msg.ID, nil)
		case "exit":
			return
		case lsp.MethodWorkspaceSymbol:
			var p lsp.WorkspaceSymbolParams
			json.Unmarshal(msg.Params, &p)
			s.codec.WriteResponse(*msg.ID, s.matchSymbols(p.Query))
		case "textDocument/didOpen":
			var p lsp.DidOpenTextDocumentParams
			if json.Unmarshal(msg.Params, &p) == nil {
				s.publish(p.TextDocument.URI, p.TextDocument.Version, p.TextDocument.Text)
			}
		case "textDocument/didChange":
			var p lsp.DidChangeTextDocumentParams
			if json.Unmarshal(msg.Params, &p) == nil && len(p.ContentChanges) > 0 {
				s.publish(p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges[len(p.ContentChanges)-1].Text)
			}
		default:
			if msg.ID != nil {
				s.codec.WriteResponse(*msg.ID, nil)
			}
		}
	}
}

func (s *Server) publish(uri string, version int, text string) {
	if s.Silent {
		return
	}
	diags := []document.Diagnostic{}
	if s.Diagnose != nil {
		if d := s.Diagnose(uri, text); d != nil {
			diags = d
		}
	}
	s.codec.WriteNotification(lsp.MethodPublishDiagnostics, &lsp.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diags,
	})
}

func (s *Server) matchSymbols(query string) []lsp.SymbolInformation {
	matched := []lsp.SymbolInformation{}
	for _, sym := range s.Symbols {
		if strings.Contains(strings.ToLower(sym.Name), strings.ToLower(query)) {
			matched = append(matched, sym)
		}
	}
	return matched
}
