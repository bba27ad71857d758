// Package marker extracts candidate citation markers from document text.
package marker

import (
	"errors"
	"fmt"

	"github.com/matsen/citeweave/internal/document"
)

// Hint is the identifier shape a marker was recognized by.
type Hint string

const (
	HintDOI           Hint = "doi"
	HintPMID          Hint = "pmid"
	HintArXiv         Hint = "arxiv"
	HintISBN          Hint = "isbn"
	HintURL           Hint = "url"
	HintParenthetical Hint = "parenthetical"
)

// priority orders hints from most to least specific. Lower wins when
// candidate spans overlap.
func (h Hint) priority() int {
	switch h {
	case HintDOI:
		return 0
	case HintPMID:
		return 1
	case HintArXiv:
		return 2
	case HintISBN:
		return 3
	case HintURL:
		return 4
	default:
		return 5
	}
}

// Marker is a span of document text identified as a candidate citation.
type Marker struct {
	Raw        string        `json:"raw"`
	Hint       Hint          `json:"kind_hint"`
	Identifier string        `json:"identifier"` // DOI, PMID, arXiv ID, ISBN, URL, or author-year query
	Span       document.Span `json:"span"`
	Context    string        `json:"context,omitempty"`

	// URL is set when the marker was found as a link, including DOI,
	// PubMed and arXiv links.
	URL string `json:"url,omitempty"`

	// Parenthetical fields
	Authors   []string `json:"authors,omitempty"`
	EtAl      bool     `json:"et_al,omitempty"`
	Year      string   `json:"year,omitempty"`
	Page      string   `json:"page,omitempty"`
	Narrative bool     `json:"narrative,omitempty"` // Coleman (1988) rather than (Coleman, 1988)
	Enclosed  bool     `json:"enclosed,omitempty"`  // one entry of a ";"-separated list inside shared parentheses
}

// ErrExtractionAmbiguous marks a candidate discarded because a more
// specific candidate claimed an overlapping span.
var ErrExtractionAmbiguous = errors.New("ambiguous marker span")

// Conflict describes one discarded candidate.
type Conflict struct {
	Kept    Marker
	Dropped Marker
}

// Err returns the conflict as an error wrapping ErrExtractionAmbiguous.
func (c Conflict) Err() error {
	return fmt.Errorf("%w: %s %q at %s loses to %s %q at %s", ErrExtractionAmbiguous,
		c.Dropped.Hint, c.Dropped.Raw, c.Dropped.Span, c.Kept.Hint, c.Kept.Raw, c.Kept.Span)
}
