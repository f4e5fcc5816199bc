package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRenderWithDiagnosticArray(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "README.md", "Hello World\nThis is a test\nThanks bye\n")
	diags := writeFile(t, dir, "diags.json", `[
		{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 5}},
		 "severity": 1, "code": "E0001", "message": "This is an error"}
	]`)

	got := run(t, "--no-color", "-d", diags, file)
	want := strings.Join([]string{
		"  ┌ " + file,
		"1 │ Hello World",
		"    ^^^^^ Error: This is an error",
		"",
		"2 │ This is a test",
		"3 │ Thanks bye",
		"  └",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRenderPublishParamsWindow(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.txt", "1\n2\n3\n4\n")
	diags := writeFile(t, dir, "diags.json", `{"uri": "file:///a.txt", "diagnostics": [
		{"range": {"start": {"line": 2, "character": 0}, "end": {"line": 2, "character": 1}},
		 "severity": 2, "message": "w"}
	]}`)

	got := run(t, "--no-color", "-d", diags, "--start", "3", "-n", "1", file)
	assert.Contains(t, got, "… │ …\n3 │ 3\n    ^ Warning: w\n")
	assert.NotContains(t, got, "4 │ 4")
}

func TestColorizeCaretRows(t *testing.T) {
	saved := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = saved })

	rendered := "1 │ x\n    ^ Error: boom\n"
	got := colorize(rendered)
	assert.NotEqual(t, rendered, got)
	assert.Contains(t, got, "boom")
	assert.True(t, strings.HasPrefix(got, "1 │ x\n"), "content rows are left alone")
}

func TestLoadDiagnosticsInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := loadDiagnostics(writeFile(t, dir, "bad.json", "[{"))
	require.Error(t, err)
	_, err = loadDiagnostics(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
