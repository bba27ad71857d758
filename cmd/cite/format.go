package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citeweave/internal/assemble"
	"github.com/matsen/citeweave/internal/clipboard"
	"github.com/matsen/citeweave/internal/docio"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/pipeline"
)

var (
	formatStyle  string
	formatOut    string
	formatReport string
	formatCopy   bool
)

func init() {
	formatCmd.Flags().StringVarP(&formatStyle, "style", "s", "", "Citation style (default from config, see 'cite styles')")
	formatCmd.Flags().StringVarP(&formatOut, "out", "o", "", "Write the formatted document to this file (.md or .txt)")
	formatCmd.Flags().StringVar(&formatReport, "report", "", "Write the per-citation report as JSON to this file")
	formatCmd.Flags().BoolVar(&formatCopy, "copy", false, "Copy the reference list to the clipboard")
	rootCmd.AddCommand(formatCmd)
}

var formatCmd = &cobra.Command{
	Use:   "format <file>",
	Short: "Resolve and format every citation in a document",
	Long: `Resolve every citation marker in a document and rewrite it in a
citation style. Footnote styles get numbered notes; author-date styles get
parenthetical citations. A reference list is appended where the style has one.

Reads .txt, .md and .pdf files.

Examples:
  cite format paper.md --style apa7
  cite format paper.md --style chicago-nb --out paper.cited.md
  cite format paper.pdf --style bluebook --report report.json --human`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

// FormatResponse is the JSON output of the format command.
type FormatResponse struct {
	RunID     string                 `json:"run_id"`
	Style     string                 `json:"style"`
	Output    string                 `json:"output,omitempty"`   // file written with --out
	Document  string                 `json:"document,omitempty"` // rendered document when no --out
	Citations int                    `json:"citations"`
	Works     int                    `json:"works"`
	Flagged   int                    `json:"flagged"`
	Discarded int                    `json:"discarded"`
	Copied    int                    `json:"copied,omitempty"` // reference list entries copied with --copy
	Report    []pipeline.ReportEntry `json:"report"`
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	doc, err := docio.ReadFile(path)
	if err != nil {
		return err
	}
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	styleName := formatStyle
	if styleName == "" {
		styleName = cfg.Style
	}
	res, err := p.Run(ctx, doc, styleName)
	if err != nil {
		return err
	}

	resp := FormatResponse{
		RunID:     res.RunID,
		Style:     res.Style,
		Citations: len(res.Report),
		Works:     len(res.Works),
		Discarded: res.Discarded,
		Report:    res.Report,
	}
	for _, e := range res.Report {
		if e.Flagged {
			resp.Flagged++
		}
	}

	if formatOut != "" {
		if resp.Output, err = docio.WriteFile(formatOut, res.Document); err != nil {
			return err
		}
	} else {
		in, _ := docio.FormatOf(path)
		if in == docio.FormatPDF {
			in = docio.FormatMarkdown
		}
		if resp.Document, err = docio.Render(res.Document, in); err != nil {
			return err
		}
	}

	if formatReport != "" {
		if err := writeJSONFile(formatReport, res.Report); err != nil {
			return err
		}
	}

	if formatCopy {
		s, err := p.Styles().Lookup(res.Style)
		if err != nil {
			return err
		}
		entries := assemble.Bibliography(res.Works, s)
		plain := make([]string, len(entries))
		for i, e := range entries {
			plain[i] = document.StripInline(e)
		}
		if err := clipboard.Copy(ctx, strings.Join(plain, "\n")); err != nil {
			logger.Warn("copying reference list", zap.Error(err))
		} else {
			resp.Copied = len(plain)
		}
	}

	if humanOutput {
		if resp.Document != "" {
			outputHuman("%s", resp.Document)
		} else {
			outputHuman("Wrote %s\n", resp.Output)
		}
		printReportSummary(resp)
		return nil
	}
	return outputJSON(resp)
}

// printReportSummary writes counts and flagged citations to stderr so
// stdout carries only the document.
func printReportSummary(resp FormatResponse) {
	fmt.Fprintf(os.Stderr, "\n%d citations, %d works, %d flagged (%s)\n", resp.Citations, resp.Works, resp.Flagged, resp.Style)
	for _, e := range resp.Report {
		if !e.Flagged {
			continue
		}
		fmt.Fprintf(os.Stderr, "  ! %s [%s, %.2f]\n", truncateString(e.Original, ListTitleMaxLen), e.Kind, e.Confidence)
	}
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := encodeJSON(f, v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
