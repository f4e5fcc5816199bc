package lsp

// protocol.go — text synchronization messages and diagnostics notifications.

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hide-org/hide-mcp/internal/document"
)

const MethodPublishDiagnostics = "textDocument/publishDiagnostics"

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type PublishDiagnosticsParams struct {
	URI         string                `json:"uri"`
	Version     int                   `json:"version,omitempty"`
	Diagnostics []document.Diagnostic `json:"diagnostics"`
}

// ParsePublishDiagnostics decodes publishDiagnostics params.
func ParsePublishDiagnostics(params json.RawMessage) (*PublishDiagnosticsParams, error) {
	var p PublishDiagnosticsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DidOpen(uri, languageID string, version int, text string) error {
	return c.Notify("textDocument/didOpen", &DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: languageID, Version: version, Text: text},
	})
}

// DidChange sends the full new text of the document.
func (c *Client) DidChange(uri string, version int, text string) error {
	return c.Notify("textDocument/didChange", &DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: text}},
	})
}

func (c *Client) DidClose(uri string) error {
	return c.Notify("textDocument/didClose", &DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// FileURI converts a path to a file:// URI, making it absolute first.
func FileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// URIPath returns the filesystem path of a file:// URI, or the input unchanged.
func URIPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// LanguageID guesses the LSP language identifier from a file extension.
func LanguageID(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "go":
		return "go"
	case "py":
		return "python"
	case "js", "mjs", "cjs":
		return "javascript"
	case "ts":
		return "typescript"
	case "tsx":
		return "typescriptreact"
	case "jsx":
		return "javascriptreact"
	case "rs":
		return "rust"
	case "md":
		return "markdown"
	case "yml":
		return "yaml"
	case "":
		return "plaintext"
	}
	return ext
}
