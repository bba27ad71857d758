package style

import (
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// Harvard is the Cite Them Right Harvard style.
type Harvard struct{}

func (Harvard) Name() string         { return "harvard" }
func (Harvard) Title() string        { return "Harvard" }
func (Harvard) Mode() Mode           { return AuthorDate }
func (Harvard) SectionTitle() string { return "References" }

func (Harvard) SortKey(m reference.Metadata) string { return sortKey(m) }

func (Harvard) Short(Cite) (string, bool) { return "", true }

// InText renders (Granovetter 1973, p. 1361).
func (Harvard) InText(c Cite) (string, bool) {
	m := c.Metadata
	name := surnames(m.Authors, "and", 3)
	if name == "" {
		name = fallbackName(m)
	}
	when := joinNonEmpty(", ", year(m), pagePrefix(c.Page))
	if c.Narrative {
		return name + " (" + when + ")", complete(m)
	}
	return "(" + joinNonEmpty(" ", name, when) + ")", complete(m)
}

// harvardAuthor renders "Granovetter, M.S.".
func harvardAuthor(a reference.Author) string {
	if a.Org || a.First == "" {
		return a.Last
	}
	return a.Last + ", " + strings.ReplaceAll(a.Initials(), " ", "")
}

func harvardAuthors(authors []reference.Author) string {
	if len(authors) > 3 {
		return harvardAuthor(authors[0]) + " et al."
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = harvardAuthor(a)
	}
	if len(names) == 2 {
		return names[0] + " and " + names[1]
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func (Harvard) Bibliography(m reference.Metadata) (string, bool) {
	if m.IsUnresolved() {
		return "", false
	}
	if m.Kind == reference.KindLegalCase {
		return terminate(legalCitation(m, "")), complete(m)
	}

	lead := harvardAuthors(m.Authors)
	if lead == "" {
		lead = m.Container
	}
	lead = joinNonEmpty(" ", lead, "("+year(m)+")")

	var body string
	switch m.Kind {
	case reference.KindBook:
		title := italic(m.Title)
		if m.Edition != "" {
			title += ". " + m.Edition + " edn"
		}
		body = sentences(title, joinNonEmpty(": ", m.Place, m.Publisher))
	case reference.KindJournal:
		body = terminate(joinNonEmpty(", ", "‘"+m.Title+"’", italic(m.Container), volumeIssue(m), pagePrefix(m.Pages)))
	case reference.KindNewspaper:
		body = terminate(joinNonEmpty(", ", "‘"+m.Title+"’", italic(m.Container), monthDay(m.Published)))
	default:
		body = terminate(italic(m.Title))
	}

	var tail string
	switch {
	case m.DOI != "":
		tail = "doi:" + reference.NormalizeDOI(m.DOI) + "."
	case m.URL != "":
		tail = "Available at: " + m.URL + "."
	}
	return joinNonEmpty(" ", lead, body, tail), complete(m)
}
