package style

import (
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// APA is APA 7th edition.
type APA struct{}

func (APA) Name() string         { return "apa7" }
func (APA) Title() string        { return "APA 7" }
func (APA) Mode() Mode           { return AuthorDate }
func (APA) SectionTitle() string { return "References" }

func (APA) SortKey(m reference.Metadata) string { return sortKey(m) }

func (APA) Short(Cite) (string, bool) { return "", true }

// InText renders (Granovetter, 1973), (Smith & Jones, 2020, p. 4) or the
// narrative Granovetter (1973).
func (APA) InText(c Cite) (string, bool) {
	m := c.Metadata
	name := surnames(m.Authors, "&", 2)
	if name == "" {
		name = fallbackName(m)
	}
	parts := joinNonEmpty(", ", year(m), pagePrefix(c.Page))
	if c.Narrative {
		return name + " (" + parts + ")", complete(m)
	}
	return "(" + joinNonEmpty(", ", name, parts) + ")", complete(m)
}

// apaAuthor renders "Granovetter, M. S." or an organization name.
func apaAuthor(a reference.Author) string {
	if a.Org {
		return a.Last
	}
	s := a.Last
	if in := a.Initials(); in != "" {
		s += ", " + in
	}
	if a.Suffix != "" {
		s += ", " + a.Suffix
	}
	return s
}

// apaAuthors joins up to 20 authors; longer lists keep the first 19, an
// ellipsis and the last.
func apaAuthors(authors []reference.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = apaAuthor(a)
	}
	if len(names) > 20 {
		return strings.Join(names[:19], ", ") + ", . . . " + names[len(names)-1]
	}
	return series(names, "&", true)
}

func (APA) Bibliography(m reference.Metadata) (string, bool) {
	if m.IsUnresolved() {
		return "", false
	}
	date := "(" + year(m) + ")"
	if m.Kind == reference.KindNewspaper && m.Published.Month > 0 {
		date = "(" + apaNewsDate(m.Published) + ")"
	}

	var title string
	switch m.Kind {
	case reference.KindBook, reference.KindWebpage:
		title = italic(m.Title)
		if m.Edition != "" && m.Kind == reference.KindBook {
			title += " (" + m.Edition + " ed.)"
		}
	case reference.KindLegalCase:
		return terminate(legalCitation(m, "")), complete(m)
	default:
		title = m.Title
	}

	// Without authors the title takes the author position.
	lead := apaAuthors(m.Authors)
	if lead == "" {
		lead, title = title, ""
	}

	var source string
	switch m.Kind {
	case reference.KindJournal:
		source = joinNonEmpty(", ", italic(m.Container), volumeIssue(m), pageRange(m.Pages))
	case reference.KindBook:
		source = m.Publisher
	case reference.KindNewspaper:
		source = italic(m.Container)
	case reference.KindWebpage:
		if m.Container != "" && !sameName(m.Container, m.Authors) {
			source = m.Container
		}
	}

	return joinNonEmpty(" ", terminate(lead), terminate(date), sentences(title, source), link(m)), complete(m)
}

// apaNewsDate renders "2020, January 2".
func apaNewsDate(d reference.PublicationDate) string {
	long := longDate(d)
	if d.Day == 0 {
		month, _, _ := strings.Cut(long, " ")
		return d.YearString() + ", " + month
	}
	monthDay, _, _ := strings.Cut(long, ",")
	return d.YearString() + ", " + monthDay
}

// sameName reports whether the site name repeats the only author, as
// with agency pages.
func sameName(site string, authors []reference.Author) bool {
	return len(authors) == 1 && strings.EqualFold(authors[0].Last, site)
}
