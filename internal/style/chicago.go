package style

import (
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// chicagoAuthors renders the bibliography list: the first author
// inverted, the rest in natural order.
func chicagoAuthors(authors []reference.Author) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		if i == 0 {
			names[i] = a.Inverted()
		} else {
			names[i] = a.FullName()
		}
	}
	if len(names) > 10 {
		return strings.Join(names[:7], ", ") + ", et al"
	}
	return series(names, "and", true)
}

// noteAuthors renders the note list in natural order, with "et al." past
// three names.
func noteAuthors(authors []reference.Author) string {
	if len(authors) > 3 {
		return authors[0].FullName() + " et al."
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.FullName()
	}
	return series(names, "and", false)
}

// chicagoJournal renders `*Journal* 78, no. 6 (1973)`.
func chicagoJournal(m reference.Metadata) string {
	s := italic(m.Container)
	if m.Volume != "" {
		s = joinNonEmpty(" ", s, m.Volume)
	}
	if m.Issue != "" {
		s += ", no. " + m.Issue
	}
	return s
}

// ChicagoAuthorDate is the Chicago Manual of Style author-date system.
type ChicagoAuthorDate struct{}

func (ChicagoAuthorDate) Name() string         { return "chicago-ad" }
func (ChicagoAuthorDate) Title() string        { return "Chicago (author-date)" }
func (ChicagoAuthorDate) Mode() Mode           { return AuthorDate }
func (ChicagoAuthorDate) SectionTitle() string { return "References" }

func (ChicagoAuthorDate) SortKey(m reference.Metadata) string { return sortKey(m) }

func (ChicagoAuthorDate) Short(Cite) (string, bool) { return "", true }

// InText renders (Granovetter 1973, 1361).
func (ChicagoAuthorDate) InText(c Cite) (string, bool) {
	m := c.Metadata
	name := surnames(m.Authors, "and", 3)
	if name == "" {
		name = fallbackName(m)
	}
	inner := joinNonEmpty(" ", name, year(m))
	if c.Page != "" {
		inner += ", " + pageRange(c.Page)
	}
	if c.Narrative {
		return name + " (" + strings.TrimSpace(strings.TrimPrefix(inner, name)) + ")", complete(m)
	}
	return "(" + inner + ")", complete(m)
}

func (ChicagoAuthorDate) Bibliography(m reference.Metadata) (string, bool) {
	if m.IsUnresolved() {
		return "", false
	}
	if m.Kind == reference.KindLegalCase {
		return terminate(legalCitation(m, "")), complete(m)
	}

	var body string
	switch m.Kind {
	case reference.KindBook:
		body = sentences(italic(m.Title), joinNonEmpty(": ", m.Place, m.Publisher))
	case reference.KindJournal:
		src := chicagoJournal(m)
		if m.Issue != "" {
			src = joinNonEmpty(" ", italic(m.Container), m.Volume+" ("+m.Issue+")")
		}
		if m.Pages != "" {
			src += ": " + pageRange(m.Pages)
		}
		body = sentences(quoted(terminate(m.Title)), src)
	default:
		body = sentences(quoted(terminate(m.Title)), joinNonEmpty(", ", italic(m.Container), monthDay(m.Published)))
	}

	lead := chicagoAuthors(m.Authors)
	return joinNonEmpty(" ", terminate(lead), terminate(year(m)), body, terminate(link(m))), complete(m)
}

// monthDay renders "January 2" when the month is known.
func monthDay(d reference.PublicationDate) string {
	if shortMonth(d.Month) == "" {
		return ""
	}
	long := longDate(d)
	head, _, _ := strings.Cut(long, ",")
	return strings.TrimSuffix(head, " "+d.YearString())
}

// ChicagoNotes is the Chicago notes-bibliography system.
type ChicagoNotes struct{}

func (ChicagoNotes) Name() string         { return "chicago-nb" }
func (ChicagoNotes) Title() string        { return "Chicago (notes and bibliography)" }
func (ChicagoNotes) Mode() Mode           { return Footnote }
func (ChicagoNotes) SectionTitle() string { return "Bibliography" }

func (ChicagoNotes) SortKey(m reference.Metadata) string { return sortKey(m) }

// InText renders the full first note.
func (ChicagoNotes) InText(c Cite) (string, bool) {
	m := c.Metadata
	if m.Kind == reference.KindLegalCase {
		return terminate(legalCitation(m, pageRange(c.Page))), complete(m)
	}
	authors := noteAuthors(m.Authors)
	pages := pageRange(c.Page)

	var s string
	switch m.Kind {
	case reference.KindBook:
		pub := joinNonEmpty(", ", joinNonEmpty(": ", m.Place, m.Publisher), yearOrEmpty(m))
		s = joinNonEmpty(", ", authors, italic(m.Title))
		if pub != "" {
			s += " (" + pub + ")"
		}
		s = joinNonEmpty(", ", s, pages)
	case reference.KindJournal:
		if pages == "" {
			pages = pageRange(m.Pages)
		}
		src := chicagoJournal(m)
		if y := yearOrEmpty(m); y != "" {
			src += " (" + y + ")"
		}
		if pages != "" {
			src += ": " + pages
		}
		s = noteHead(authors, m.Title) + " " + joinNonEmpty(", ", src, link(m))
	default:
		date := longDate(m.Published)
		if m.Published.Year == 0 {
			date = ""
		}
		s = noteHead(authors, m.Title) + " " + joinNonEmpty(", ", italic(m.Container), date, link(m))
	}
	return terminate(strings.TrimSpace(strings.TrimSuffix(s, ","))), complete(m)
}

// noteHead renders `Author, “Title,”`, keeping the trailing comma when
// the title is missing.
func noteHead(authors, title string) string {
	if title == "" {
		if authors == "" {
			return ""
		}
		return authors + ","
	}
	return joinNonEmpty(", ", authors, quoted(title+","))
}

// Short renders `Granovetter, “Strength of Weak Ties,” 1361.`
func (ChicagoNotes) Short(c Cite) (string, bool) {
	m := c.Metadata
	page := pageRange(c.Page)
	if m.Kind == reference.KindLegalCase {
		return shortCaseCite(m, page), complete(m)
	}
	title := reference.ShortTitle(reference.StripLeadingArticle(m.Title))
	name := ""
	switch {
	case len(m.Authors) > 3:
		name = m.Authors[0].Last + " et al."
	case len(m.Authors) > 0:
		names := make([]string, len(m.Authors))
		for i, a := range m.Authors {
			names[i] = a.Last
		}
		name = series(names, "and", false)
	}
	if m.Kind == reference.KindBook || title == "" {
		return terminate(joinNonEmpty(", ", name, italic(title), page)), complete(m)
	}
	if page == "" {
		return joinNonEmpty(", ", name, quoted(title+".")), complete(m)
	}
	return joinNonEmpty(", ", name, quoted(title+",")) + " " + page + ".", complete(m)
}

// Ibid renders "Ibid." or "Ibid., 45."
func (ChicagoNotes) Ibid(page string) string {
	if page == "" {
		return "Ibid."
	}
	return "Ibid., " + pageRange(page) + "."
}

func (ChicagoNotes) Bibliography(m reference.Metadata) (string, bool) {
	if m.IsUnresolved() {
		return "", false
	}
	if m.Kind == reference.KindLegalCase {
		return terminate(legalCitation(m, "")), complete(m)
	}
	lead := terminate(chicagoAuthors(m.Authors))

	switch m.Kind {
	case reference.KindBook:
		pub := joinNonEmpty(", ", joinNonEmpty(": ", m.Place, m.Publisher), yearOrEmpty(m))
		return joinNonEmpty(" ", lead, terminate(italic(m.Title)), terminate(pub), terminate(link(m))), complete(m)
	case reference.KindJournal:
		src := chicagoJournal(m)
		if y := yearOrEmpty(m); y != "" {
			src += " (" + y + ")"
		}
		if m.Pages != "" {
			src += ": " + pageRange(m.Pages)
		}
		return joinNonEmpty(" ", lead, quoted(terminate(m.Title)), terminate(src), terminate(link(m))), complete(m)
	}
	date := longDate(m.Published)
	if m.Published.Year == 0 {
		date = ""
	}
	return joinNonEmpty(" ", lead, quoted(terminate(m.Title)), terminate(joinNonEmpty(", ", italic(m.Container), date)), terminate(link(m))), complete(m)
}

// shortCaseCite renders `*Miranda*, 384 U.S. at 444.`
func shortCaseCite(m reference.Metadata, page string) string {
	name := italic(shortCaseName(m.DisplayTitle()))
	vol, rep, first, ok := splitReporter(m.Reporter)
	switch {
	case !ok:
		return terminate(joinNonEmpty(", ", name, m.Reporter))
	case page != "":
		return name + ", " + vol + " " + rep + " at " + page + "."
	}
	return name + ", " + vol + " " + rep + " " + first + "."
}
