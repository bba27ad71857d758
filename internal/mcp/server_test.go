package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/matsen/citeweave/internal/pipeline"
	"github.com/matsen/citeweave/internal/resolve"
	"github.com/matsen/citeweave/internal/source"
)

const weakTiesWork = `{"message": {
	"DOI": "10.1086/226147", "type": "journal-article",
	"title": ["The Strength of Weak Ties"], "container-title": ["American Journal of Sociology"],
	"volume": "78", "issue": "6", "page": "1360-1380",
	"author": [{"given": "Mark", "family": "Granovetter"}],
	"published-print": {"date-parts": [[1973]]}}}`

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1086/226147" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weakTiesWork))
	}))
	t.Cleanup(srv.Close)

	crossref := source.NewCrossref(source.WithBaseURL(srv.URL), source.WithRateLimit(1000))
	p := pipeline.New(resolve.New(source.NewRegistry(crossref)))
	return NewServer(ServerConfig{Pipeline: p, Version: "test"})
}

// callTool invokes an MCP tool through the JSON-RPC entry point and
// returns its text content and error flag.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()

	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	result := srv.HandleMessage(context.Background(), msg)
	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result.Content) == 0 {
		t.Fatal("no content in result")
	}
	return resp.Result.Content[0].Text, resp.Result.IsError
}

func TestNewServer(t *testing.T) {
	if srv := newTestServer(t); srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestListStyles(t *testing.T) {
	srv := newTestServer(t)
	text, isErr := callTool(t, srv, "list_styles", map[string]any{})
	if isErr {
		t.Fatalf("list_styles error: %s", text)
	}

	var styles []styleInfo
	if err := json.Unmarshal([]byte(text), &styles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names := map[string]string{}
	for _, s := range styles {
		names[s.Name] = s.Mode
	}
	for _, want := range []string{"apa7", "mla9", "chicago-ad", "chicago-nb", "harvard", "bluebook"} {
		if _, ok := names[want]; !ok {
			t.Errorf("style %q missing from %v", want, names)
		}
	}
	if names["chicago-nb"] != "footnote" {
		t.Errorf("chicago-nb mode = %q, want footnote", names["chicago-nb"])
	}
}

func TestExtractCitations(t *testing.T) {
	srv := newTestServer(t)
	text, isErr := callTool(t, srv, "extract_citations", map[string]any{
		"text": "Weak ties matter (https://doi.org/10.1086/226147), as others agree (Smith, 2020; Lee, 2019).",
	})
	if isErr {
		t.Fatalf("extract_citations error: %s", text)
	}

	var out struct {
		Citations []extractedCitation `json:"citations"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Citations) != 3 {
		t.Fatalf("got %d citations, want 3: %+v", len(out.Citations), out.Citations)
	}
	if got := out.Citations[0]; got.Route != "doi" || got.Tier[0] != "crossref" {
		t.Errorf("first citation = %+v, want doi routed to crossref", got)
	}
	if got := out.Citations[1].Raw; got != "Smith, 2020" {
		t.Errorf("second citation raw = %q, want %q", got, "Smith, 2020")
	}
}

func TestResolveCitation(t *testing.T) {
	srv := newTestServer(t)
	text, isErr := callTool(t, srv, "resolve_citation", map[string]any{
		"citation": "https://doi.org/10.1086/226147",
	})
	if isErr {
		t.Fatalf("resolve_citation error: %s", text)
	}

	var out []resolvedCitation
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d results, want 1", len(out))
	}
	if !out[0].Accepted || out[0].Metadata.Title != "The Strength of Weak Ties" {
		t.Errorf("result = %+v, want accepted Granovetter record", out[0])
	}
}

func TestResolveCitationErrors(t *testing.T) {
	srv := newTestServer(t)

	text, isErr := callTool(t, srv, "resolve_citation", map[string]any{"citation": "no marker here"})
	if !isErr || !strings.Contains(text, "no citation found") {
		t.Errorf("got %q (error=%v), want no citation error", text, isErr)
	}

	_, isErr = callTool(t, srv, "resolve_citation", map[string]any{})
	if !isErr {
		t.Error("missing citation did not return an error result")
	}
}

func TestFormatDocument(t *testing.T) {
	srv := newTestServer(t)
	text, isErr := callTool(t, srv, "format_document", map[string]any{
		"text":  "Weak ties *bridge* groups (https://doi.org/10.1086/226147).",
		"style": "apa",
	})
	if isErr {
		t.Fatalf("format_document error: %s", text)
	}

	var out struct {
		Style    string                 `json:"style"`
		Document string                 `json:"document"`
		Report   []pipeline.ReportEntry `json:"report"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Style != "apa7" {
		t.Errorf("style = %q, want apa7", out.Style)
	}
	if !strings.HasPrefix(out.Document, "Weak ties *bridge* groups (Granovetter, 1973).") {
		t.Errorf("document = %q", out.Document)
	}
	if !strings.Contains(out.Document, "## References") {
		t.Errorf("document has no reference list: %q", out.Document)
	}
	if len(out.Report) != 1 || out.Report[0].Flagged {
		t.Errorf("report = %+v, want one unflagged entry", out.Report)
	}
}

func TestFormatDocumentUnknownStyle(t *testing.T) {
	srv := newTestServer(t)
	text, isErr := callTool(t, srv, "format_document", map[string]any{
		"text":  "Plain text.",
		"style": "vancouver",
	})
	if !isErr {
		t.Errorf("unknown style returned %q, want an error result", text)
	}
}

