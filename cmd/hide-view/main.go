package main

// hide-view renders a file with diagnostics the way the MCP tools show it.
// Diagnostics come from a JSON file holding either an LSP Diagnostic array or
// publishDiagnostics params. For debugging renderer output.

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hide-org/hide-mcp/internal/document"
	"github.com/hide-org/hide-mcp/internal/lsp"
)

var severityColors = map[string]*color.Color{
	"Error":       color.New(color.FgRed, color.Bold),
	"Warning":     color.New(color.FgYellow, color.Bold),
	"Information": color.New(color.FgBlue),
	"Hint":        color.New(color.FgCyan),
}

// caretRow matches the caret rows produced by document.Render.
var caretRow = regexp.MustCompile(`^(\s*\^*) (Error|Warning|Information|Hint)?(: .*)$`)

func newRootCmd() *cobra.Command {
	var (
		diagPath  string
		startLine int
		numLines  int
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "hide-view <file>",
		Short: "Render a file with line numbers and diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			doc := document.FromContent(args[0], string(content))

			if diagPath != "" {
				diags, err := loadDiagnostics(diagPath)
				if err != nil {
					return err
				}
				doc.WithDiagnostics(diags)
			}
			if startLine > 0 || numLines > 0 {
				doc = doc.Window(max(startLine, 1), numLines)
			}

			if noColor {
				color.NoColor = true
			}
			fmt.Fprintln(cmd.OutOrStdout(), colorize(doc.Render()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&diagPath, "diagnostics", "d", "", "JSON file with diagnostics")
	cmd.Flags().IntVar(&startLine, "start", 0, "first line to show (1-indexed)")
	cmd.Flags().IntVarP(&numLines, "lines", "n", 0, "number of lines to show")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

// loadDiagnostics accepts a Diagnostic array or a publishDiagnostics object.
func loadDiagnostics(path string) ([]document.Diagnostic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var diags []document.Diagnostic
		if err := json.Unmarshal(data, &diags); err != nil {
			return nil, fmt.Errorf("parse diagnostics: %w", err)
		}
		return diags, nil
	}
	p, err := lsp.ParsePublishDiagnostics(data)
	if err != nil {
		return nil, fmt.Errorf("parse diagnostics: %w", err)
	}
	return p.Diagnostics, nil
}

// colorize highlights caret rows by severity. With color disabled it
// returns the rendering unchanged.
func colorize(rendered string) string {
	if color.NoColor {
		return rendered
	}
	rows := strings.Split(rendered, "\n")
	for i, row := range rows {
		m := caretRow.FindStringSubmatch(row)
		if m == nil {
			continue
		}
		c, ok := severityColors[m[2]]
		if !ok {
			continue
		}
		rows[i] = c.Sprint(m[1]) + " " + c.Sprint(m[2]) + m[3]
	}
	return strings.Join(rows, "\n")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
