package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/pipeline"
	"github.com/matsen/citeweave/internal/reference"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <citation>...",
	Short: "Resolve citation identifiers or parentheticals to metadata",
	Long: `Resolve one or more citations to bibliographic metadata. Each argument
may be a DOI, URL, PMID, ISBN, arXiv ID or an author-year parenthetical.

Examples:
  cite resolve 10.1086/226147
  cite resolve "PMID: 31978945" "ISBN 978-0-674-00078-0"
  cite resolve "(Granovetter, 1973)" --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

// ResolveResult is one resolved citation.
type ResolveResult struct {
	Input    string             `json:"input"`
	Accepted bool               `json:"accepted"`
	Metadata reference.Metadata `json:"metadata"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	text := strings.Join(args, document.ParagraphSeparator)
	cites, _ := p.Extract(document.FromText(text))
	if len(cites) == 0 {
		return fmt.Errorf("no citation found in %q", strings.Join(args, " "))
	}

	occs, err := p.Resolve(ctx, cites, pipeline.TopicContext(text))
	if err != nil {
		return err
	}

	results := make([]ResolveResult, 0, len(occs))
	for _, o := range occs {
		results = append(results, ResolveResult{Input: o.Raw, Accepted: o.Accepted, Metadata: o.Metadata})
	}

	if humanOutput {
		for _, r := range results {
			status := "ok"
			if !r.Accepted {
				status = "low confidence"
			}
			if r.Metadata.IsUnresolved() {
				status = "unresolved"
			}
			outputHuman("%s: %s\n", r.Input, status)
			if !r.Metadata.IsUnresolved() {
				outputHuman("%s\n", formatRecordHuman(r.Metadata))
			}
		}
		return nil
	}
	return outputJSON(results)
}
