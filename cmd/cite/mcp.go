package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the citation tools over MCP on stdio",
	Long: `Run a Model Context Protocol server on stdin and stdout exposing the
tools extract_citations, resolve_citation, format_document and list_styles.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	s := mcp.NewServer(mcp.ServerConfig{
		Pipeline:     p,
		DefaultStyle: cfg.Style,
		Version:      Version,
		Logger:       logger.Named("mcp"),
	})
	return mcp.Serve(ctx, s)
}
