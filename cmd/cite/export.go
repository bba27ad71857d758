package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/dedupe"
	"github.com/matsen/citeweave/internal/docio"
	"github.com/matsen/citeweave/internal/export"
	"github.com/matsen/citeweave/internal/pipeline"
	"github.com/matsen/citeweave/internal/reference"
)

var (
	exportFormat string
	exportAppend string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "bibtex", "Output format: bibtex, ris or csv")
	exportCmd.Flags().StringVar(&exportAppend, "append", "", "Append new BibTeX entries to this .bib file, skipping ones already there")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the works cited in a document",
	Long: `Resolve the citations in a document and export each distinct work
once. Unresolved citations are left out.

Examples:
  cite export paper.md
  cite export paper.md --format ris > refs.ris
  cite export paper.md --append ~/refs.bib`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format := strings.ToLower(exportFormat)
	if exportAppend != "" && format != "bibtex" {
		return fmt.Errorf("--append requires --format bibtex")
	}
	if format != "bibtex" && format != "ris" && format != "csv" {
		return fmt.Errorf("unknown export format %q (valid: bibtex, ris, csv)", exportFormat)
	}

	doc, err := docio.ReadFile(args[0])
	if err != nil {
		return err
	}
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	cites, _ := p.Extract(doc)
	occs, err := p.Resolve(ctx, cites, pipeline.TopicContext(doc.Text()))
	if err != nil {
		return err
	}
	entries := export.Entries(resolvedWorks(dedupe.Deduplicate(occs)))

	if exportAppend != "" {
		return appendBibTeX(exportAppend, entries)
	}

	// Note: exports are always text output, never JSON
	switch format {
	case "ris":
		fmt.Print(export.ToRISList(entries))
	case "csv":
		return export.WriteCSV(os.Stdout, entries)
	default:
		fmt.Print(export.ToBibTeXList(entries))
	}
	return nil
}

// resolvedWorks returns the representative record of every resolved work.
func resolvedWorks(works []dedupe.Work) []reference.Metadata {
	var refs []reference.Metadata
	for _, w := range works {
		if !w.IsUnresolved() {
			refs = append(refs, w.Metadata)
		}
	}
	return refs
}

// AppendResponse reports what --append wrote.
type AppendResponse struct {
	Path    string   `json:"path"`
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

func appendBibTeX(path string, entries []export.Entry) error {
	idx, err := export.IndexBibTeXFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	resp := AppendResponse{Path: path, Added: []string{}, Skipped: []string{}}
	var fresh []export.Entry
	for _, e := range entries {
		if idx.HasEntry(e.Key, e.Metadata.DOI) {
			resp.Skipped = append(resp.Skipped, e.Key)
			continue
		}
		idx.Add(e)
		fresh = append(fresh, e)
		resp.Added = append(resp.Added, e.Key)
	}
	if len(fresh) > 0 {
		if err := export.AppendToBibFile(path, export.ToBibTeXList(fresh)); err != nil {
			return fmt.Errorf("appending to %s: %w", path, err)
		}
	}

	if humanOutput {
		outputHuman("Added %d entries to %s (%d already present)\n", len(resp.Added), path, len(resp.Skipped))
		return nil
	}
	return outputJSON(resp)
}
