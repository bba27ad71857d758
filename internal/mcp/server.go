// Package mcp serves the citation pipeline as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/matsen/citeweave/internal/docio"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/pipeline"
	"github.com/matsen/citeweave/internal/reference"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Pipeline     *pipeline.Pipeline
	DefaultStyle string
	Version      string // version string for MCP server info
	Logger       *zap.Logger
}

// NewServer creates an MCP server exposing the pipeline's tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = "apa7"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := server.NewMCPServer(
		"cite",
		ver,
		server.WithToolCapabilities(false),
	)

	registerExtractTool(s, cfg)
	registerResolveTool(s, cfg)
	registerFormatTool(s, cfg)
	registerStylesTool(s, cfg)
	return s
}

// Serve runs the server on stdin and stdout until ctx ends or the input closes.
func Serve(ctx context.Context, s *server.MCPServer) error {
	return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
}

// optionalString returns the named argument or def when it is absent.
func optionalString(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil && v != "" {
		return v
	}
	return def
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// --- Tools ---

type extractedCitation struct {
	Raw   string         `json:"raw"`
	Kind  reference.Kind `json:"kind"`
	Route string         `json:"route"`
	Tier  []string       `json:"tier"`
	Start int            `json:"start"`
	End   int            `json:"end"`
}

func registerExtractTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("extract_citations",
		mcp.WithDescription("Find the citation markers in a text and classify each one. Makes no network requests."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		doc, err := docio.Read(strings.NewReader(text), docio.FormatText)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cites, discarded := cfg.Pipeline.Extract(doc)
		out := struct {
			Citations []extractedCitation `json:"citations"`
			Discarded int                 `json:"discarded"`
		}{Citations: make([]extractedCitation, 0, len(cites)), Discarded: discarded}
		for _, c := range cites {
			out.Citations = append(out.Citations, extractedCitation{
				Raw: c.Raw, Kind: c.Kind, Route: string(c.Route), Tier: c.Tier,
				Start: c.Span.Start, End: c.Span.End,
			})
		}
		return jsonResult(out)
	})
}

type resolvedCitation struct {
	Raw      string             `json:"raw"`
	Accepted bool               `json:"accepted"`
	Metadata reference.Metadata `json:"metadata"`
}

func registerResolveTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("resolve_citation",
		mcp.WithDescription("Resolve the citation markers in a short text (a DOI, URL, PMID, ISBN or an author-year parenthetical) to bibliographic metadata."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("citation",
			mcp.Required(),
			mcp.Description("Citation text, e.g. 'https://doi.org/10.1086/226147' or '(Granovetter, 1973)'"),
		),
		mcp.WithString("context",
			mcp.Description("Sentence the citation appears in, used by model tiers"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		citation, err := req.RequireString("citation")
		if err != nil || strings.TrimSpace(citation) == "" {
			return mcp.NewToolResultError("citation is required"), nil
		}
		text := citation
		if sentence := optionalString(req, "context", ""); sentence != "" {
			text = sentence + " " + citation
		}

		cites, _ := cfg.Pipeline.Extract(document.FromText(text))
		if len(cites) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("no citation found in %q", citation)), nil
		}
		occs, err := cfg.Pipeline.Resolve(ctx, cites, pipeline.TopicContext(text))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("resolve error: %v", err)), nil
		}

		out := make([]resolvedCitation, 0, len(occs))
		for _, o := range occs {
			out = append(out, resolvedCitation{Raw: o.Raw, Accepted: o.Accepted, Metadata: o.Metadata})
		}
		return jsonResult(out)
	})
}

func registerFormatTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("format_document",
		mcp.WithDescription("Resolve every citation in a document and rewrite it in a citation style, adding footnotes and a reference list. Returns the document and a per-citation report."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text"),
		),
		mcp.WithString("style",
			mcp.Description(fmt.Sprintf("Citation style (default: %s)", cfg.DefaultStyle)),
		),
		mcp.WithString("format",
			mcp.Description("Input and output format (default: markdown)"),
			mcp.Enum(string(docio.FormatMarkdown), string(docio.FormatText)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		styleName := optionalString(req, "style", cfg.DefaultStyle)
		format := docio.Format(optionalString(req, "format", string(docio.FormatMarkdown)))
		if format != docio.FormatMarkdown && format != docio.FormatText {
			return mcp.NewToolResultError(fmt.Sprintf("invalid format %q", format)), nil
		}

		doc, err := docio.Read(strings.NewReader(text), format)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := cfg.Pipeline.Run(ctx, doc, styleName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("format error: %v", err)), nil
		}
		rendered, err := docio.Render(res.Document, format)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		cfg.Logger.Info("mcp format_document",
			zap.String("run", res.RunID),
			zap.String("style", res.Style),
			zap.Int("citations", len(res.Report)))

		return jsonResult(struct {
			RunID    string                 `json:"run_id"`
			Style    string                 `json:"style"`
			Document string                 `json:"document"`
			Report   []pipeline.ReportEntry `json:"report"`
		}{res.RunID, res.Style, rendered, res.Report})
	})
}

type styleInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Mode  string `json:"mode"`
}

func registerStylesTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("list_styles",
		mcp.WithDescription("List the supported citation styles."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var out []styleInfo
		for _, st := range cfg.Pipeline.Styles().Styles() {
			out = append(out, styleInfo{Name: st.Name(), Title: st.Title(), Mode: st.Mode().String()})
		}
		return jsonResult(out)
	})
}
