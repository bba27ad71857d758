package pipeline

import (
	"github.com/matsen/citeweave/internal/dedupe"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/reference"
	"github.com/matsen/citeweave/internal/style"
)

// ReportEntry describes what happened to one marker.
type ReportEntry struct {
	Original   string          `json:"original"`
	Kind       reference.Kind  `json:"kind"`
	Confidence float64         `json:"confidence"`
	Complete   bool            `json:"complete"`
	Engine     string          `json:"engine"`
	Flagged    bool            `json:"flagged"`
	Positions  []document.Span `json:"positions"` // every occurrence of the same work
	Formatted  string          `json:"formatted"`
	Role       string          `json:"role"`
	Note       int             `json:"note,omitempty"`
}

// buildReport returns one entry per formatted occurrence, in document
// order. An entry is flagged when resolution stayed below the threshold
// or formatting lacked a field.
func buildReport(works []dedupe.Work, formatted []style.Formatted) []ReportEntry {
	report := make([]ReportEntry, 0, len(formatted))
	for _, f := range formatted {
		w := works[f.Work]
		m := w.Metadata
		report = append(report, ReportEntry{
			Original:   f.Occurrence.Raw,
			Kind:       m.Kind,
			Confidence: m.Confidence,
			Complete:   f.Complete,
			Engine:     m.Engine,
			Flagged:    !w.Accepted || !f.Complete,
			Positions:  w.Positions(),
			Formatted:  document.StripInline(f.Text),
			Role:       f.Role.String(),
			Note:       f.Note,
		})
	}
	return report
}

func countFlagged(report []ReportEntry) int {
	n := 0
	for _, e := range report {
		if e.Flagged {
			n++
		}
	}
	return n
}
