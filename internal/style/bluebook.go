package style

import (
	"strconv"

	"github.com/matsen/citeweave/internal/reference"
)

// Bluebook is The Bluebook: A Uniform System of Citation, in footnote
// form. It has no reference list.
type Bluebook struct{}

func (Bluebook) Name() string         { return "bluebook" }
func (Bluebook) Title() string        { return "Bluebook" }
func (Bluebook) Mode() Mode           { return Footnote }
func (Bluebook) SectionTitle() string { return "" }

func (Bluebook) SortKey(m reference.Metadata) string { return sortKey(m) }

func (Bluebook) Bibliography(reference.Metadata) (string, bool) { return "", true }

// InText renders the full citation sentence.
func (Bluebook) InText(c Cite) (string, bool) {
	m := c.Metadata
	pin := pageRange(c.Page)
	if m.Kind == reference.KindLegalCase {
		return terminate(legalCitation(m, pin)), complete(m)
	}
	authors := noteAuthors(m.Authors)

	switch m.Kind {
	case reference.KindBook:
		s := joinNonEmpty(", ", authors, m.Title)
		if pin != "" {
			s += " " + pin
		}
		paren := joinNonEmpty(" ", editionLabel(m.Edition), yearOrEmpty(m))
		if paren != "" {
			s += " (" + paren + ")"
		}
		return terminate(s), complete(m)
	case reference.KindJournal:
		src := joinNonEmpty(" ", m.Volume, m.Container, firstPage(m.Pages))
		if pin != "" {
			src += ", " + pin
		}
		if y := yearOrEmpty(m); y != "" {
			src += " (" + y + ")"
		}
		return terminate(joinNonEmpty(", ", authors, italic(m.Title), src)), complete(m)
	}

	s := joinNonEmpty(", ", authors, italic(m.Title), m.Container)
	if m.Published.Year > 0 {
		s += " (" + bluebookDate(m.Published) + ")"
	}
	return terminate(joinNonEmpty(", ", s, m.URL)), complete(m)
}

// Short renders `*Miranda*, 384 U.S. at 444.` for cases and
// `Granovetter, *supra*, at 1361.` otherwise.
func (Bluebook) Short(c Cite) (string, bool) {
	m := c.Metadata
	page := pageRange(c.Page)
	if m.Kind == reference.KindLegalCase {
		return shortCaseCite(m, page), complete(m)
	}
	name := ""
	if len(m.Authors) > 0 {
		name = m.Authors[0].Last
	} else {
		name = italic(reference.ShortTitle(m.Title))
	}
	s := joinNonEmpty(", ", name, "*supra*")
	if page != "" {
		s += ", at " + page
	}
	return terminate(s), complete(m)
}

// Ibid renders "*Id.*" or "*Id.* at 444."
func (Bluebook) Ibid(page string) string {
	if page == "" {
		return "*Id.*"
	}
	return "*Id.* at " + pageRange(page) + "."
}

func firstPage(pages string) string {
	for i, r := range pages {
		if r == '-' || r == '–' {
			return pages[:i]
		}
	}
	return pages
}

func editionLabel(ed string) string {
	if ed == "" {
		return ""
	}
	return ed + " ed."
}

// bluebookDate renders "Jan. 2, 2020".
func bluebookDate(d reference.PublicationDate) string {
	s := shortMonth(d.Month)
	if s == "" {
		return d.YearString()
	}
	if d.Day > 0 {
		s += " " + strconv.Itoa(d.Day) + ","
	}
	return s + " " + d.YearString()
}
