package main

// tools.go — MCP tool registration wiring each tool name to a workspace operation.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hide-org/hide-mcp/internal/document"
	"github.com/hide-org/hide-mcp/internal/workspace"
)

// Tool argument types.

type pathArg struct {
	Path string `json:"path" jsonschema:"project-relative path of the file"`
}

type getArg struct {
	Path      string `json:"path" jsonschema:"project-relative path of the file"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"1-indexed first line to show; omit to show the whole file"`
	NumLines  int    `json:"num_lines,omitempty" jsonschema:"number of lines to show from start_line; omit to show the rest of the file"`
}

type contentArg struct {
	Path    string `json:"path" jsonschema:"project-relative path of the file"`
	Content string `json:"content" jsonschema:"text to write; lines are separated by newlines"`
}

type insertArg struct {
	Path      string `json:"path" jsonschema:"project-relative path of the file"`
	StartLine int    `json:"start_line" jsonschema:"1-indexed line the first inserted line will occupy"`
	Content   string `json:"content" jsonschema:"lines to insert"`
}

type replaceArg struct {
	Path      string `json:"path" jsonschema:"project-relative path of the file"`
	StartLine int    `json:"start_line" jsonschema:"1-indexed first line to replace, inclusive"`
	EndLine   int    `json:"end_line" jsonschema:"1-indexed line where replacement stops, exclusive"`
	Content   string `json:"content" jsonschema:"replacement lines"`
}

type listArg struct {
	Include []string `json:"include,omitempty" jsonschema:"glob patterns a path must match, e.g. *.go; * also matches /"`
	Exclude []string `json:"exclude,omitempty" jsonschema:"glob patterns of paths to leave out"`
}

type searchArg struct {
	Query      string   `json:"query" jsonschema:"text to look for"`
	Exact      bool     `json:"exact,omitempty" jsonschema:"match case-sensitively"`
	Regex      bool     `json:"regex,omitempty" jsonschema:"treat query as a regular expression"`
	ShowHidden bool     `json:"show_hidden,omitempty" jsonschema:"also search hidden files and directories"`
	Include    []string `json:"include,omitempty" jsonschema:"glob patterns a path must match"`
	Exclude    []string `json:"exclude,omitempty" jsonschema:"glob patterns of paths to leave out"`
}

type symbolArg struct {
	Query string `json:"query" jsonschema:"symbol name or part of it"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of symbols to return"`
}

type taskArg struct {
	Command string `json:"command,omitempty" jsonschema:"shell command to run in the project root"`
	Alias   string `json:"alias,omitempty" jsonschema:"alias of a configured task; see task_list"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"timeout in seconds"`
}

type noArg struct{}

// registerTools registers all MCP tools on the server.
func registerTools(server *mcp.Server, ws *workspace.Manager) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_get",
		Description: "Get a file from the project with line numbers and diagnostics. Use start_line and num_lines to view part of a large file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.Get(ctx, args.Path, args.StartLine, args.NumLines)
		if err != nil {
			return failed("get file", err), nil, nil
		}
		return textResult(doc.Render()), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_create",
		Description: "Create a new file in the project. Fails if the file already exists.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contentArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.Create(ctx, args.Path, args.Content)
		return fileResult("File created", "create file", doc, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_insert_lines",
		Description: "Insert lines in a project file. Lines are 1-indexed; the first inserted line becomes start_line and later lines shift down.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args insertArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.InsertLines(ctx, args.Path, args.StartLine, args.Content)
		return fileResult("File updated", "insert lines", doc, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_replace_lines",
		Description: "Replace lines in a project file. Lines are 1-indexed. start_line is inclusive, end_line is exclusive.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args replaceArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.ReplaceLines(ctx, args.Path, args.StartLine, args.EndLine, args.Content)
		return fileResult("File updated", "replace lines", doc, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_append_lines",
		Description: "Append lines to the end of a project file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contentArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.AppendLines(ctx, args.Path, args.Content)
		return fileResult("File updated", "append lines", doc, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_overwrite",
		Description: "Replace the whole content of an existing project file.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contentArg) (*mcp.CallToolResult, any, error) {
		doc, err := ws.Overwrite(ctx, args.Path, args.Content)
		return fileResult("File updated", "overwrite file", doc, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_delete",
		Description: "Delete a file from the project.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args pathArg) (*mcp.CallToolResult, any, error) {
		if err := ws.Delete(ctx, args.Path); err != nil {
			return failed("delete file", err), nil, nil
		}
		return textResult("File deleted: " + args.Path), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_list",
		Description: "List the files in the project, one path per line. Hidden files are skipped.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args listArg) (*mcp.CallToolResult, any, error) {
		files, err := ws.List(args.Include, args.Exclude)
		if err != nil {
			return failed("list files", err), nil, nil
		}
		if len(files) == 0 {
			return textResult("No files."), nil, nil
		}
		return textResult(strings.Join(files, "\n")), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "file_search",
		Description: "Search file contents in the project. Shows each matching file with only its matching lines. Case-insensitive unless exact or regex is set.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchArg) (*mcp.CallToolResult, any, error) {
		opts := workspace.SearchOptions{ShowHidden: args.ShowHidden, Include: args.Include, Exclude: args.Exclude}
		switch {
		case args.Regex:
			opts.Mode = workspace.SearchRegex
		case args.Exact:
			opts.Mode = workspace.SearchExact
		}
		docs, err := ws.Search(ctx, args.Query, opts)
		if err != nil {
			return failed("search files", err), nil, nil
		}
		if len(docs) == 0 {
			return textResult("No matches."), nil, nil
		}
		rendered := make([]string, len(docs))
		for i, doc := range docs {
			rendered[i] = doc.Render()
		}
		return textResult(strings.Join(rendered, "\n\n")), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "symbol_search",
		Description: "Search the project for symbols (types, functions, variables) by name using the configured language servers.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args symbolArg) (*mcp.CallToolResult, any, error) {
		symbols, err := ws.Symbols(ctx, args.Query, args.Limit)
		if err != nil {
			return failed("search symbols", err), nil, nil
		}
		if len(symbols) == 0 {
			return textResult("No symbols found."), nil, nil
		}
		lines := make([]string, len(symbols))
		for i, s := range symbols {
			lines[i] = s.String()
		}
		return textResult(strings.Join(lines, "\n")), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "task_list",
		Description: "Get the available tasks and their aliases in the project.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args noArg) (*mcp.CallToolResult, any, error) {
		data, err := json.Marshal(ws.Tasks())
		if err != nil {
			return failed("get tasks", err), nil, nil
		}
		return textResult(string(data)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "task_run",
		Description: "Run a task in the project. Provide either command or alias. Set timeout in seconds. The command is executed in the shell. For the list of available tasks and their aliases, use the task_list tool.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args taskArg) (*mcp.CallToolResult, any, error) {
		res, err := ws.RunTask(ctx, args.Command, args.Alias, time.Duration(args.Timeout)*time.Second)
		if err != nil {
			return failed("run task", err), nil, nil
		}
		return textResult(res.String()), nil, nil
	})
}

// fileResult renders doc under a header, or reports err.
func fileResult(header, action string, doc *document.Document, err error) *mcp.CallToolResult {
	if err != nil {
		return failed(action, err)
	}
	return textResult(fmt.Sprintf("%s:\n%s", header, doc.Render()))
}
