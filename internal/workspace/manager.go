package workspace

// manager.go — project files as line-addressable documents, kept in sync with language servers.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/match"

	"github.com/hide-org/hide-mcp/internal/config"
	"github.com/hide-org/hide-mcp/internal/document"
	"github.com/hide-org/hide-mcp/internal/lsp"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrExists      = errors.New("file already exists")
	ErrOutsideRoot = errors.New("path is outside the project root")
	ErrDirectory   = errors.New("path is a directory")
)

// settleWindow is how long to keep listening for follow-up diagnostics after
// the first publish; servers often publish syntax and type errors separately.
const settleWindow = 300 * time.Millisecond

// fileState tracks what a language server knows about one file.
type fileState struct {
	URI     string
	Version int

	// Bridges async publishDiagnostics notifications to sync calls.
	DiagnosticCh chan []document.Diagnostic
}

// Dialer starts a language server client.
type Dialer func(ls *config.LanguageServer) (*lsp.Client, error)

// Manager serves the files of one project root. Operations are serialized;
// each one reads the file from disk, so edits made elsewhere are picked up.
type Manager struct {
	cfg      *config.Config
	root     string
	realRoot string // root with symlinks resolved
	dial     Dialer

	settle time.Duration

	opMu sync.Mutex // serializes operations

	mu      sync.Mutex // protects files and clients
	files   map[string]*fileState
	clients map[string]*lsp.Client // keyed by file extension
	failed  map[string]error       // servers that could not start, by extension
}

// NewManager returns a manager for cfg.Root. A nil dial starts language
// servers as subprocesses.
func NewManager(cfg *config.Config, dial Dialer) (*Manager, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if dial == nil {
		dial = func(ls *config.LanguageServer) (*lsp.Client, error) {
			return lsp.Start(ls.Command, ls.Args...)
		}
	}
	return &Manager{
		cfg:     cfg,
		root:     root,
		realRoot: realRoot,
		dial:     dial,
		settle:   settleWindow,
		files:    make(map[string]*fileState),
		clients:  make(map[string]*lsp.Client),
		failed:   make(map[string]error),
	}, nil
}

func (m *Manager) Root() string {
	return m.root
}

// Get returns the file with fresh diagnostics. When startLine > 0 only
// numLines lines from startLine are kept (all remaining if numLines <= 0).
func (m *Manager) Get(ctx context.Context, path string, startLine, numLines int) (*document.Document, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	abs, rel, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := m.read(abs, rel)
	if err != nil {
		return nil, err
	}
	doc := document.FromContent(rel, content)
	doc.WithDiagnostics(m.sync(ctx, abs, content))
	if startLine > 0 || numLines > 0 {
		doc = doc.Window(max(startLine, 1), numLines)
	}
	return doc, nil
}

// Create writes a new file, creating parent directories as needed.
func (m *Manager) Create(ctx context.Context, path, content string) (*document.Document, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	abs, rel, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, rel)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}
	doc := document.FromContent(rel, content)
	if err := m.write(abs, doc.Content()); err != nil {
		return nil, err
	}
	return doc.WithDiagnostics(m.sync(ctx, abs, doc.Content())), nil
}

// InsertLines inserts text so that its first line becomes startLine.
func (m *Manager) InsertLines(ctx context.Context, path string, startLine int, text string) (*document.Document, error) {
	return m.edit(ctx, path, func(doc *document.Document) error {
		doc.InsertLines(startLine, text)
		return nil
	})
}

// ReplaceLines replaces lines [startLine, endLine) with text.
func (m *Manager) ReplaceLines(ctx context.Context, path string, startLine, endLine int, text string) (*document.Document, error) {
	return m.edit(ctx, path, func(doc *document.Document) error {
		_, err := doc.ReplaceLines(startLine, endLine, text)
		return err
	})
}

// AppendLines adds text after the last line.
func (m *Manager) AppendLines(ctx context.Context, path, text string) (*document.Document, error) {
	return m.edit(ctx, path, func(doc *document.Document) error {
		doc.AppendLines(text)
		return nil
	})
}

// Overwrite replaces the whole content of an existing file.
func (m *Manager) Overwrite(ctx context.Context, path, content string) (*document.Document, error) {
	return m.edit(ctx, path, func(doc *document.Document) error {
		*doc = *document.FromContent(doc.Path, content)
		return nil
	})
}

// Delete removes a file and closes it on its language server.
func (m *Manager) Delete(ctx context.Context, path string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	abs, rel, err := m.resolve(path)
	if err != nil {
		return err
	}
	if _, err := m.read(abs, rel); err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return err
	}

	m.mu.Lock()
	st, open := m.files[abs]
	delete(m.files, abs)
	client := m.clients[strings.ToLower(filepath.Ext(abs))]
	m.mu.Unlock()

	if open && client != nil {
		if err := client.DidClose(st.URI); err != nil {
			log.Printf("didClose %s: %v", rel, err)
		}
	}
	return nil
}

// List returns the project's files as slash-separated relative paths,
// skipping hidden files and directories. Non-empty include keeps only paths
// matching one of its patterns; exclude drops paths matching any of its
// patterns. Patterns use * and ?, where * also matches "/".
func (m *Manager) List(include, exclude []string) ([]string, error) {
	var files []string
	err := m.walk(false, include, exclude, func(_, rel string) error {
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// walk calls fn for each regular file under the root in path order.
// Symlinks are followed only when they resolve to a file inside the root.
func (m *Manager) walk(showHidden bool, include, exclude []string, fn func(abs, rel string) error) error {
	var paths [][2]string
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == m.root {
			return nil
		}
		if !showHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(m.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.Type()&fs.ModeSymlink != 0 {
			if _, _, err := m.resolve(rel); err != nil {
				return nil
			}
			if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if !matchesAny(rel, include, true) || matchesAny(rel, exclude, false) {
			return nil
		}
		paths = append(paths, [2]string{p, rel})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i][1] < paths[j][1] })
	for _, p := range paths {
		if err := fn(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// matchesAny reports whether rel matches one of patterns, or empty when
// patterns has none.
func matchesAny(rel string, patterns []string, empty bool) bool {
	if len(patterns) == 0 {
		return empty
	}
	for _, pattern := range patterns {
		if match.Match(rel, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

// Shutdown stops every language server started by the manager.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*lsp.Client)
	m.failed = make(map[string]error)
	m.mu.Unlock()

	var errs []error
	for ext, c := range clients {
		if err := c.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s server: %w", ext, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) edit(ctx context.Context, path string, apply func(*document.Document) error) (*document.Document, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	abs, rel, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := m.read(abs, rel)
	if err != nil {
		return nil, err
	}
	doc := document.FromContent(rel, content)
	if err := apply(doc); err != nil {
		return nil, err
	}
	updated := doc.Content()
	if err := m.write(abs, updated); err != nil {
		return nil, err
	}
	return doc.WithDiagnostics(m.sync(ctx, abs, updated)), nil
}

// resolve maps a project-relative (or absolute, inside the root) path to an
// absolute path and its slash-separated relative form. Symlinks are
// resolved, so a link pointing outside the root is rejected.
func (m *Manager) resolve(path string) (string, string, error) {
	p := filepath.FromSlash(strings.TrimSpace(path))
	if p == "" {
		return "", "", fmt.Errorf("%w: empty path", ErrNotFound)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.root, p)
	}
	abs := filepath.Clean(p)
	rel, ok := within(m.root, abs)
	if !ok {
		// An absolute path may name the root through a symlink.
		if resolved, err := evalExisting(abs); err == nil {
			if realRel, ok := within(m.realRoot, resolved); ok {
				abs, rel = filepath.Join(m.root, realRel), realRel
			}
		}
		if rel == "" {
			return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
		}
	}
	if rel == "." {
		return "", "", fmt.Errorf("%w: %s", ErrDirectory, path)
	}

	resolved, err := evalExisting(abs)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, ok := within(m.realRoot, resolved); !ok {
		return "", "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, filepath.ToSlash(rel), nil
}

// within returns p relative to root, or false if p is outside root.
func within(root, p string) (string, bool) {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// evalExisting resolves symlinks in p. Missing trailing elements are kept
// as they are; a dangling link is resolved to its target.
func evalExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if target, lerr := os.Readlink(p); lerr == nil {
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p), target)
		}
		return evalExisting(target)
	}
	parent := filepath.Dir(p)
	if parent == p {
		return "", err
	}
	realParent, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(realParent, filepath.Base(p)), nil
}

func (m *Manager) read(abs, rel string) (string, error) {
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrDirectory, rel)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func (m *Manager) write(abs, content string) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(abs, []byte(content), mode); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// sync sends content to the file's language server and waits for the
// diagnostics it publishes. Files without a server have no diagnostics.
func (m *Manager) sync(ctx context.Context, abs, content string) []document.Diagnostic {
	ls, ok := m.cfg.ServerFor(abs)
	if !ok {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(abs))
	client, err := m.clientFor(ctx, ext, ls)
	if err != nil {
		log.Printf("language server for %s: %v", ext, err)
		return nil
	}

	m.mu.Lock()
	st, open := m.files[abs]
	if !open {
		st = &fileState{
			URI:          lsp.FileURI(abs),
			DiagnosticCh: make(chan []document.Diagnostic, 16),
		}
		m.files[abs] = st
	}
	drain(st.DiagnosticCh)
	st.Version++
	version := st.Version
	m.mu.Unlock()

	if open {
		err = client.DidChange(st.URI, version, content)
	} else {
		err = client.DidOpen(st.URI, lsp.LanguageID(abs), version, content)
	}
	if err != nil {
		log.Printf("sync %s: %v", abs, err)
		return nil
	}
	return m.waitDiagnostics(ctx, st)
}

// waitDiagnostics waits for the first publish, then keeps the latest one
// received within the settle window.
func (m *Manager) waitDiagnostics(ctx context.Context, st *fileState) []document.Diagnostic {
	timer := time.NewTimer(m.cfg.NotifyTimeout)
	defer timer.Stop()

	var diags []document.Diagnostic
	got := false
	for {
		select {
		case diags = <-st.DiagnosticCh:
			got = true
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.settle)
		case <-timer.C:
			if !got {
				log.Printf("no diagnostics for %s within %s", st.URI, m.cfg.NotifyTimeout)
			}
			return diags
		case <-ctx.Done():
			return diags
		}
	}
}

// clientFor returns the running server for ext, starting it on first use.
// A server that fails to start is not retried until Shutdown.
func (m *Manager) clientFor(ctx context.Context, ext string, ls *config.LanguageServer) (*lsp.Client, error) {
	m.mu.Lock()
	client, ok := m.clients[ext]
	failed := m.failed[ext]
	m.mu.Unlock()
	if ok {
		return client, nil
	}
	if failed != nil {
		return nil, failed
	}

	client, err := m.startClient(ctx, ls)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed[ext] = err
		return nil, err
	}
	m.clients[ext] = client
	return client, nil
}

func (m *Manager) startClient(ctx context.Context, ls *config.LanguageServer) (*lsp.Client, error) {
	client, err := m.dial(ls)
	if err != nil {
		return nil, err
	}
	client.OnNotification(lsp.MethodPublishDiagnostics, m.handleDiagnostics)
	if err := client.Initialize(ctx, lsp.FileURI(m.root)); err != nil {
		if cerr := client.Close(); cerr != nil {
			log.Printf("close %s: %v", ls.Command, cerr)
		}
		return nil, err
	}
	return client, nil
}

// handleDiagnostics processes publishDiagnostics notifications.
func (m *Manager) handleDiagnostics(params json.RawMessage) {
	p, err := lsp.ParsePublishDiagnostics(params)
	if err != nil {
		log.Printf("parse diagnostics: %v", err)
		return
	}

	abs := filepath.Clean(lsp.URIPath(p.URI))
	m.mu.Lock()
	st, ok := m.files[abs]
	// A publish for an older version describes text we no longer have.
	stale := ok && p.Version != 0 && p.Version < st.Version
	m.mu.Unlock()

	if ok && !stale {
		select {
		case st.DiagnosticCh <- p.Diagnostics:
		default:
		}
	}
}

func drain(ch chan []document.Diagnostic) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
