package workspace

// symbols.go — project-wide symbol search across the configured language servers.

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hide-org/hide-mcp/internal/document"
	"github.com/hide-org/hide-mcp/internal/lsp"
)

// Symbol is a named declaration found by a language server.
type Symbol struct {
	Name     string
	Kind     string
	Location document.Location
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Name, strings.ToLower(s.Kind), s.Location)
}

// Symbols asks every configured language server for symbols matching query.
// Servers that fail are logged and skipped. limit <= 0 means no limit.
func (m *Manager) Symbols(ctx context.Context, query string, limit int) ([]Symbol, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	exts := make([]string, 0, len(m.cfg.LanguageServers))
	for ext := range m.cfg.LanguageServers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	var symbols []Symbol
	for _, ext := range exts {
		client, err := m.clientFor(ctx, ext, m.cfg.LanguageServers[ext])
		if err != nil {
			log.Printf("language server for %s: %v", ext, err)
			continue
		}
		found, err := client.WorkspaceSymbols(ctx, query)
		if err != nil {
			log.Printf("symbols from %s server: %v", ext, err)
			continue
		}
		for _, s := range found {
			symbols = append(symbols, Symbol{
				Name: s.Name,
				Kind: s.Kind.String(),
				Location: document.Location{
					Path:  m.displayPath(lsp.URIPath(s.Location.URI)),
					Range: s.Location.Range,
				},
			})
		}
	}
	if limit > 0 && len(symbols) > limit {
		symbols = symbols[:limit]
	}
	return symbols, nil
}

// displayPath shows paths inside the root relative to it.
func (m *Manager) displayPath(p string) string {
	if rel, ok := within(m.root, filepath.Clean(p)); ok {
		return filepath.ToSlash(rel)
	}
	return p
}
