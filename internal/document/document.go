package document

// document.go — line-addressable text document and its line-editing operations.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is returned by ReplaceLines when startLine >= endLine.
var ErrInvalidRange = errors.New("invalid range")

// Document is a file held as an ordered sequence of 1-indexed lines plus the
// diagnostics reported for it.
//
// Edits mutate the document in place and return it, so calls can be chained.
// A Document must not be edited concurrently.
type Document struct {
	Path        string       `json:"path"`
	Lines       []Line       `json:"lines"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// FromContent builds a document from raw text, numbering lines 1..N.
func FromContent(path, content string) *Document {
	doc := &Document{Path: path}
	for i, text := range splitLines(content) {
		doc.Lines = append(doc.Lines, Line{Number: i + 1, Content: text})
	}
	return doc
}

// Content joins the lines with "\n" and appends a single trailing newline.
func (d *Document) Content() string {
	var sb strings.Builder
	for i, l := range d.Lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.Content)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// LineCount returns the number of lines held by the document.
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// InsertLines inserts text so its first line becomes line startLine.
// A startLine past the end inserts after the last line; it is not an error.
func (d *Document) InsertLines(startLine int, text string) *Document {
	idx := clampIndex(startLine-1, len(d.Lines))
	inserted := toLines(splitLines(text))

	lines := make([]Line, 0, len(d.Lines)+len(inserted))
	lines = append(lines, d.Lines[:idx]...)
	lines = append(lines, inserted...)
	lines = append(lines, d.Lines[idx:]...)
	d.Lines = lines
	d.renumber()
	return d
}

// ReplaceLines replaces lines [startLine, endLine) with the lines of text.
// Lines outside the range keep their content and are renumbered.
func (d *Document) ReplaceLines(startLine, endLine int, text string) (*Document, error) {
	if startLine >= endLine {
		return nil, fmt.Errorf("%w: start line %d must be less than end line %d", ErrInvalidRange, startLine, endLine)
	}
	head := clampIndex(startLine-1, len(d.Lines))
	tail := clampIndex(endLine-1, len(d.Lines))
	replacement := toLines(splitLines(text))

	lines := make([]Line, 0, head+len(replacement)+len(d.Lines)-tail)
	lines = append(lines, d.Lines[:head]...)
	lines = append(lines, replacement...)
	lines = append(lines, d.Lines[tail:]...)
	d.Lines = lines
	d.renumber()
	return d, nil
}

// AppendLines adds the lines of text after the last line, numbered onward
// from the last line number (or from 1 for an empty document).
func (d *Document) AppendLines(text string) *Document {
	last := 0
	if n := len(d.Lines); n > 0 {
		last = d.Lines[n-1].Number
	}
	for i, content := range splitLines(text) {
		d.Lines = append(d.Lines, Line{Number: last + i + 1, Content: content})
	}
	return d
}

// WithDiagnostics replaces the diagnostics attached to the document.
func (d *Document) WithDiagnostics(diags []Diagnostic) *Document {
	d.Diagnostics = diags
	return d
}

// Window returns a copy holding the lines numbered [startLine, startLine+numLines),
// keeping their numbers and all diagnostics. numLines <= 0 means up to the end.
func (d *Document) Window(startLine, numLines int) *Document {
	w := &Document{Path: d.Path, Diagnostics: d.Diagnostics}
	for _, l := range d.Lines {
		if l.Number < startLine {
			continue
		}
		if numLines > 0 && l.Number >= startLine+numLines {
			break
		}
		w.Lines = append(w.Lines, l)
	}
	return w
}

func (d *Document) renumber() {
	for i := range d.Lines {
		d.Lines[i].Number = i + 1
	}
}

// toLines wraps raw strings as Lines; numbers are assigned by the caller.
func toLines(texts []string) []Line {
	lines := make([]Line, len(texts))
	for i, t := range texts {
		lines[i] = Line{Content: t}
	}
	return lines
}

func clampIndex(i, n int) int {
	return max(0, min(i, n))
}

// splitLines splits on "\n", "\r\n" and "\r". A trailing break does not
// produce an empty final line, and empty input yields no lines.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
