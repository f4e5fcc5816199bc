package main

// main.go — entrypoint: serves a project's files as MCP tools over stdio.

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hide-org/hide-mcp/internal/config"
	"github.com/hide-org/hide-mcp/internal/workspace"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var root, configPath string

	cmd := &cobra.Command{
		Use:   "hide-mcp",
		Short: "Line-addressed file editing with diagnostics, as MCP tools",
		Long: `hide-mcp serves the files of a project over MCP (stdio). Every tool answer
shows the file with line numbers and the diagnostics reported by the language
server configured for its extension in .hide.yaml.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, root)
			if err != nil {
				return err
			}
			ws, err := workspace.NewManager(cfg, nil)
			if err != nil {
				return err
			}

			server := mcp.NewServer(&mcp.Implementation{
				Name:    "hide-mcp",
				Version: version,
			}, nil)
			registerTools(server, ws)

			log.Printf("serving %s", ws.Root())
			runErr := server.Run(cmd.Context(), &mcp.StdioTransport{})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ws.Shutdown(ctx); err != nil {
				log.Printf("shutdown error: %v", err)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "project root directory")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default <root>/"+config.DefaultFileName+")")
	return cmd
}

func main() {
	// stdout carries the MCP stream; keep logs on stderr.
	log.SetOutput(os.Stderr)

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
