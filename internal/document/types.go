package document

// types.go — LSP-shaped positions, ranges, and diagnostics attached to a document.

import "fmt"

// Position is a zero-indexed line and character offset into the raw content.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range spans from Start to End; End is inclusive for rendering purposes.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range inside a file.
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

func (l Location) String() string {
	if l.Range.Start.Line == l.Range.End.Line {
		return fmt.Sprintf("%s:%d", l.Path, l.Range.Start.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Range.Start.Line, l.Range.End.Line)
}

type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

// String returns the severity name, or "" for an unset or unknown severity.
func (s DiagnosticSeverity) String() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	case SeverityInformation:
		return "Information"
	case SeverityHint:
		return "Hint"
	}
	return ""
}

type DiagnosticTag int

const (
	TagUnnecessary DiagnosticTag = 1
	TagDeprecated  DiagnosticTag = 2
)

type CodeDescription struct {
	Href string `json:"href"`
}

type DiagnosticRelatedInformation struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

// Diagnostic is a compiler or linter message attached to a character range.
// Code holds either a string or a number, as sent by the language server.
type Diagnostic struct {
	Range              Range                          `json:"range"`
	Severity           DiagnosticSeverity             `json:"severity,omitempty"`
	Code               any                            `json:"code,omitempty"`
	CodeDescription    *CodeDescription               `json:"codeDescription,omitempty"`
	Source             string                         `json:"source,omitempty"`
	Message            string                         `json:"message"`
	Tags               []DiagnosticTag                `json:"tags,omitempty"`
	RelatedInformation []DiagnosticRelatedInformation `json:"relatedInformation,omitempty"`
	Data               any                            `json:"data,omitempty"`
}

// covers reports whether the diagnostic's line span includes the zero-indexed line.
func (d *Diagnostic) covers(line int) bool {
	return d.Range.Start.Line <= line && line <= d.Range.End.Line
}

// Line is a single 1-indexed line of a document, without its line break.
type Line struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}
