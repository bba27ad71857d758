package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/docio"
	"github.com/matsen/citeweave/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "List the citation markers in a document without resolving them",
	Long: `List the citation markers found in a document, each with its
citation kind and the tier of sources it would be resolved through.
Makes no network requests.

Examples:
  cite extract paper.md
  cite extract paper.pdf --human`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractResponse is the JSON output of the extract command.
type ExtractResponse struct {
	Citations []classify.Citation `json:"citations"`
	Discarded int                 `json:"discarded"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	doc, err := docio.ReadFile(args[0])
	if err != nil {
		return err
	}

	p := pipeline.New(nil,
		pipeline.WithClassifier(classify.New(cfg.ClassifyRouting())),
		pipeline.WithLogger(logger.Named("pipeline")))
	cites, discarded := p.Extract(doc)
	if cites == nil {
		cites = []classify.Citation{}
	}

	if humanOutput {
		for i, c := range cites {
			outputHuman("%d. %s\n", i+1, c.Raw)
			outputHuman("   %s via %s [%d:%d]\n", c.Kind, c.Route, c.Span.Start, c.Span.End)
		}
		outputHuman("\n%d citations", len(cites))
		if discarded > 0 {
			outputHuman(" (%d overlapping candidates discarded)", discarded)
		}
		outputHuman("\n")
		return nil
	}
	return outputJSON(ExtractResponse{Citations: cites, Discarded: discarded})
}
