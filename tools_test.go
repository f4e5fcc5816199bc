package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hide-org/hide-mcp/internal/config"
	"github.com/hide-org/hide-mcp/internal/workspace"
)

func contentText(r *mcp.CallToolResult) string {
	if r == nil {
		return "<nil>"
	}
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// connect serves a temporary project and returns a client session to it.
func connect(t *testing.T, files map[string]string, configure ...func(*config.Config)) (*mcp.ClientSession, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	cfg := config.Default(root)
	for _, f := range configure {
		f(cfg)
	}
	ws, err := workspace.NewManager(cfg, nil)
	require.NoError(t, err)

	server := mcp.NewServer(&mcp.Implementation{Name: "hide-mcp", Version: version}, nil)
	registerTools(server, ws)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	_, err = server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session, root
}

func call(t *testing.T, s *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, name)
	return contentText(res), res.IsError
}

func TestListTools(t *testing.T) {
	s, _ := connect(t, nil)
	tools, err := s.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"file_get", "file_create", "file_insert_lines", "file_replace_lines",
		"file_append_lines", "file_overwrite", "file_delete", "file_list",
		"file_search", "symbol_search", "task_list", "task_run",
	}, names)
}

func TestEditSession(t *testing.T) {
	s, root := connect(t, map[string]string{"file.txt": "Line 1\nLine 2\nLine 3\n"})

	text, isErr := call(t, s, "file_insert_lines", map[string]any{"path": "file.txt", "start_line": 2, "content": "Line 4\nLine 5"})
	require.False(t, isErr, text)
	want := `File updated:
  ┌ file.txt
1 │ Line 1
2 │ Line 4
3 │ Line 5
4 │ Line 2
5 │ Line 3
  └`
	if text != want {
		t.Errorf("mismatch.\nwant:\n%s\ngot:\n%s", want, text)
	}

	text, isErr = call(t, s, "file_replace_lines", map[string]any{"path": "file.txt", "start_line": 2, "end_line": 4, "content": "X"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "2 │ X\n3 │ Line 2\n4 │ Line 3")

	text, isErr = call(t, s, "file_append_lines", map[string]any{"path": "file.txt", "content": "tail"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "5 │ tail")

	data, err := os.ReadFile(filepath.Join(root, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Line 1\nX\nLine 2\nLine 3\ntail\n", string(data))

	text, isErr = call(t, s, "file_get", map[string]any{"path": "file.txt", "start_line": 4, "num_lines": 1})
	require.False(t, isErr, text)
	want = `  ┌ file.txt
… │ …
4 │ Line 3
  └`
	if text != want {
		t.Errorf("mismatch.\nwant:\n%s\ngot:\n%s", want, text)
	}
}

func TestReplaceLinesInvalidRange(t *testing.T) {
	s, _ := connect(t, map[string]string{"file.txt": "a\nb\n"})

	text, isErr := call(t, s, "file_replace_lines", map[string]any{"path": "file.txt", "start_line": 1, "end_line": 0, "content": "x"})
	assert.True(t, isErr)
	assert.Equal(t, "Failed to replace lines: invalid range: start line 1 must be less than end line 0", text)
}

func TestCreateListDelete(t *testing.T) {
	s, _ := connect(t, map[string]string{"a.txt": "a\n"})

	text, isErr := call(t, s, "file_create", map[string]any{"path": "src/b.txt", "content": "hello"})
	require.False(t, isErr, text)
	assert.True(t, strings.HasPrefix(text, "File created:\n"), text)

	text, isErr = call(t, s, "file_create", map[string]any{"path": "a.txt", "content": "again"})
	assert.True(t, isErr)
	assert.Equal(t, "Failed to create file: file already exists: a.txt", text)

	text, _ = call(t, s, "file_list", map[string]any{})
	assert.Equal(t, "a.txt\nsrc/b.txt", text)

	text, isErr = call(t, s, "file_delete", map[string]any{"path": "a.txt"})
	require.False(t, isErr, text)
	assert.Equal(t, "File deleted: a.txt", text)

	text, isErr = call(t, s, "file_get", map[string]any{"path": "a.txt"})
	assert.True(t, isErr)
	assert.Equal(t, "Failed to get file: file not found: a.txt", text)
}

func TestFileSearchAndFilteredList(t *testing.T) {
	s, _ := connect(t, map[string]string{
		"a.go":     "package a\n\n// TODO: rename\nfunc A() {}\n",
		"b.go":     "package b\n",
		"notes.md": "todo list\n",
	})

	text, isErr := call(t, s, "file_search", map[string]any{"query": "todo"})
	require.False(t, isErr, text)
	want := `  ┌ a.go
… │ …
3 │ // TODO: rename
  └

  ┌ notes.md
1 │ todo list
  └`
	if text != want {
		t.Errorf("mismatch.\nwant:\n%s\ngot:\n%s", want, text)
	}

	text, _ = call(t, s, "file_search", map[string]any{"query": "TODO", "exact": true, "include": []string{"*.md"}})
	assert.Equal(t, "No matches.", text)

	text, isErr = call(t, s, "file_search", map[string]any{"query": "[", "regex": true})
	assert.True(t, isErr)
	assert.True(t, strings.HasPrefix(text, "Failed to search files: invalid pattern"), text)

	text, _ = call(t, s, "file_list", map[string]any{"include": []string{"*.go"}, "exclude": []string{"b*"}})
	assert.Equal(t, "a.go", text)
}

func TestTasks(t *testing.T) {
	s, _ := connect(t, map[string]string{"a.txt": "a\n"}, func(cfg *config.Config) {
		cfg.Tasks = []config.Task{{Alias: "show", Command: "cat a.txt"}}
	})

	text, isErr := call(t, s, "task_list", map[string]any{})
	require.False(t, isErr, text)
	assert.JSONEq(t, `[{"alias": "show", "command": "cat a.txt"}]`, text)

	text, isErr = call(t, s, "task_run", map[string]any{"alias": "show"})
	require.False(t, isErr, text)
	assert.Equal(t, "exit code: 0\nstdout: a\n\nstderr: ", text)

	text, isErr = call(t, s, "task_run", map[string]any{"command": "exit 2"})
	require.False(t, isErr, text)
	assert.Equal(t, "exit code: 2\nstdout: \nstderr: ", text)

	text, isErr = call(t, s, "task_run", map[string]any{"alias": "missing"})
	assert.True(t, isErr)
	assert.Equal(t, "Failed to run task: unknown task alias: missing", text)
}

func TestSymbolSearchWithoutServers(t *testing.T) {
	s, _ := connect(t, nil)
	text, isErr := call(t, s, "symbol_search", map[string]any{"query": "Manager"})
	require.False(t, isErr, text)
	assert.Equal(t, "No symbols found.", text)
}
