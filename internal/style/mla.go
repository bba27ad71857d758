package style

import (
	"strconv"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// MLA is MLA 9th edition.
type MLA struct{}

func (MLA) Name() string         { return "mla9" }
func (MLA) Title() string        { return "MLA 9" }
func (MLA) Mode() Mode           { return AuthorDate }
func (MLA) SectionTitle() string { return "Works Cited" }

func (MLA) SortKey(m reference.Metadata) string { return sortKey(m) }

func (MLA) Short(Cite) (string, bool) { return "", true }

// InText renders (Granovetter 1361), or (Granovetter) without a page.
func (MLA) InText(c Cite) (string, bool) {
	m := c.Metadata
	name := surnames(m.Authors, "and", 2)
	if name == "" {
		name = fallbackName(m)
	}
	page := pageRange(c.Page)
	if c.Narrative {
		if page == "" {
			return name, complete(m)
		}
		return name + " (" + page + ")", complete(m)
	}
	return "(" + joinNonEmpty(" ", name, page) + ")", complete(m)
}

func mlaAuthors(authors []reference.Author) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0].Inverted()
	case 2:
		return authors[0].Inverted() + ", and " + authors[1].FullName()
	}
	return authors[0].Inverted() + ", et al"
}

// mlaDate renders "2 Jan. 2020", "Jan. 2020" or the year.
func mlaDate(d reference.PublicationDate) string {
	if d.Year == 0 {
		return ""
	}
	month := shortMonth(d.Month)
	if month == "" {
		return d.YearString()
	}
	if d.Day == 0 {
		return month + " " + d.YearString()
	}
	return strconv.Itoa(d.Day) + " " + month + " " + d.YearString()
}

func (MLA) Bibliography(m reference.Metadata) (string, bool) {
	if m.IsUnresolved() {
		return "", false
	}
	url := strings.TrimPrefix(strings.TrimPrefix(link(m), "https://"), "http://")

	switch m.Kind {
	case reference.KindLegalCase:
		return sentences(italic(m.DisplayTitle()), m.Reporter, joinNonEmpty(", ", m.Court, yearOrEmpty(m))), complete(m)
	case reference.KindBook:
		return sentences(mlaAuthors(m.Authors), italic(m.Title), joinNonEmpty(", ", m.Publisher, yearOrEmpty(m)), url), complete(m)
	}

	title := quoted(terminate(m.Title))
	container := joinNonEmpty(", ",
		italic(m.Container),
		prefixed("vol. ", m.Volume),
		prefixed("no. ", m.Issue),
		mlaDate(m.Published),
		prefixed("pp. ", pageRange(m.Pages)),
		url,
	)
	return joinNonEmpty(" ", terminate(mlaAuthors(m.Authors)), title, terminate(container)), complete(m)
}

func prefixed(prefix, s string) string {
	if s == "" {
		return ""
	}
	return prefix + s
}
