package workspace

// search.go — content search returning documents that hold only matching lines.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hide-org/hide-mcp/internal/document"
)

var ErrEmptyQuery = errors.New("search query is empty")

type SearchMode int

const (
	// SearchDefault matches substrings ignoring case.
	SearchDefault SearchMode = iota
	SearchExact
	SearchRegex
)

type SearchOptions struct {
	Mode       SearchMode
	ShowHidden bool
	Include    []string
	Exclude    []string
}

// Search returns one document per file with at least one matching line.
// Each document keeps its matching lines under their original numbers, so
// rendering shows the gaps between them.
func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) ([]*document.Document, error) {
	matches, err := matcher(query, opts.Mode)
	if err != nil {
		return nil, err
	}

	type file struct{ abs, rel string }
	var files []file
	err = m.walk(opts.ShowHidden, opts.Include, opts.Exclude, func(abs, rel string) error {
		files = append(files, file{abs, rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]*document.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := searchFile(f.abs, f.rel, matches)
			if err != nil {
				return err
			}
			results[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := results[:0]
	for _, doc := range results {
		if doc != nil {
			found = append(found, doc)
		}
	}
	return found, nil
}

func matcher(query string, mode SearchMode) (func(string) bool, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	switch mode {
	case SearchExact:
		return func(line string) bool { return strings.Contains(line, query) }, nil
	case SearchRegex:
		re, err := regexp.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return re.MatchString, nil
	default:
		lower := strings.ToLower(query)
		return func(line string) bool { return strings.Contains(strings.ToLower(line), lower) }, nil
	}
}

// searchFile returns nil for binary files and files without matches.
func searchFile(abs, rel string, matches func(string) bool) (*document.Document, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, nil
	}
	doc := document.FromContent(rel, string(data))
	var kept []document.Line
	for _, line := range doc.Lines {
		if matches(line.Content) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	doc.Lines = kept
	return doc, nil
}
