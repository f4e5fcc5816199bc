package lsp

// symbols.go — workspace/symbol requests and symbol kinds.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hide-org/hide-mcp/internal/document"
)

const MethodWorkspaceSymbol = "workspace/symbol"

type SymbolKind int

var symbolKindNames = [...]string{
	1: "File", 2: "Module", 3: "Namespace", 4: "Package", 5: "Class",
	6: "Method", 7: "Property", 8: "Field", 9: "Constructor", 10: "Enum",
	11: "Interface", 12: "Function", 13: "Variable", 14: "Constant",
	15: "String", 16: "Number", 17: "Boolean", 18: "Array", 19: "Object",
	20: "Key", 21: "Null", 22: "EnumMember", 23: "Struct", 24: "Event",
	25: "Operator", 26: "TypeParameter",
}

func (k SymbolKind) String() string {
	if k > 0 && int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Location is an LSP location; the URI is a file:// URI.
type Location struct {
	URI   string         `json:"uri"`
	Range document.Range `json:"range"`
}

// SymbolInformation covers both SymbolInformation and WorkspaceSymbol
// replies. WorkspaceSymbol may leave Range out, leaving it zero.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

// WorkspaceSymbols asks the server for symbols matching query.
func (c *Client) WorkspaceSymbols(ctx context.Context, query string) ([]SymbolInformation, error) {
	raw, err := c.Request(ctx, MethodWorkspaceSymbol, &WorkspaceSymbolParams{Query: query})
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var symbols []SymbolInformation
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, fmt.Errorf("decode symbols: %w", err)
	}
	return symbols, nil
}
