package document

// render.go — annotated rendering of a document with carets under diagnostic ranges.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	upperLeftCorner    = "┌"
	lowerLeftCorner    = "└"
	verticalLine       = "│"
	horizontalEllipsis = "…"
	caret              = "^"
)

// String renders the document; see Render.
func (d *Document) String() string {
	return d.Render()
}

// Render returns the document as a gutter-numbered listing framed by a
// header with the path and a footer. Each line that a diagnostic covers is
// followed by a caret row under the covered characters, the severity, and
// the message. A gap in line numbers is shown as an ellipsis row.
func (d *Document) Render() string {
	width := len(strconv.Itoa(d.maxLineNumber()))
	gutter := strings.Repeat(" ", width)

	var rows []string
	rows = append(rows, fmt.Sprintf("%s %s %s", gutter, upperLeftCorner, d.Path))

	prev := 0
	for _, l := range d.Lines {
		if l.Number != prev+1 {
			rows = append(rows, fmt.Sprintf("%s%s %s %s",
				strings.Repeat(" ", width-1), horizontalEllipsis, verticalLine, horizontalEllipsis))
		}
		rows = append(rows, fmt.Sprintf("%*d %s %s", width, l.Number, verticalLine, l.Content))

		idx := l.Number - 1
		for i := range d.Diagnostics {
			diag := &d.Diagnostics[i]
			if !diag.covers(idx) {
				continue
			}
			rows = append(rows, caretRow(diag, idx, l.Content, width), "")
		}
		prev = l.Number
	}

	rows = append(rows, fmt.Sprintf("%s %s", gutter, lowerLeftCorner))
	return strings.Join(rows, "\n")
}

// caretRow marks the part of content that diag covers on zero-indexed line idx.
// Columns are clipped to the line, so a multi-line diagnostic gets one row
// per covered line.
func caretRow(diag *Diagnostic, idx int, content string, width int) string {
	length := utf8.RuneCountInString(content)

	start := 0
	if idx == diag.Range.Start.Line {
		start = diag.Range.Start.Character
	}
	end := length
	if idx == diag.Range.End.Line {
		end = diag.Range.End.Character
	}
	start = max(0, min(start, length))
	end = max(start, min(end, length))

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", start+width+3))
	sb.WriteString(strings.Repeat(caret, end-start))
	fmt.Fprintf(&sb, " %s: %s", diag.Severity, diag.Message)
	return sb.String()
}

func (d *Document) maxLineNumber() int {
	n := 0
	for _, l := range d.Lines {
		n = max(n, l.Number)
	}
	return n
}
