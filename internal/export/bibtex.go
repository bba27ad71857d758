// Package export writes resolved references as BibTeX, RIS, or CSV and
// reads BibTeX libraries back.
package export

import (
	"fmt"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// Entry is a reference with the citation key it is exported under.
type Entry struct {
	Key      string
	Metadata reference.Metadata
}

// Entries assigns citation keys to refs in order.
func Entries(refs []reference.Metadata) []Entry {
	keys := NewKeyer()
	out := make([]Entry, 0, len(refs))
	for _, m := range refs {
		out = append(out, Entry{Key: keys.Key(m), Metadata: m})
	}
	return out
}

// ToBibTeX converts an entry to BibTeX format.
func ToBibTeX(e Entry) string {
	m := e.Metadata
	entryType := determineEntryType(m)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, e.Key))

	field := func(name, value string) {
		if value != "" {
			b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, value))
		}
	}

	if len(m.Authors) > 0 {
		field("author", formatAuthors(m.Authors))
	}
	field("title", escapeLatex(m.DisplayTitle()))

	switch entryType {
	case "article":
		field("journal", escapeLatex(m.Container))
	case "inproceedings":
		field("booktitle", escapeLatex(m.Container))
	case "misc", "online":
		field("howpublished", escapeLatex(m.Container))
	}
	field("publisher", escapeLatex(m.Publisher))
	field("address", escapeLatex(m.Place))
	field("edition", m.Edition)
	field("volume", m.Volume)
	field("number", m.Issue)
	field("pages", strings.ReplaceAll(m.Pages, "–", "--"))

	if m.Published.Year > 0 {
		field("year", fmt.Sprintf("%d", m.Published.Year))
	}
	if m.Published.Month > 0 {
		field("month", fmt.Sprintf("%d", m.Published.Month))
	}
	if m.Kind == reference.KindLegalCase {
		field("court", escapeLatex(m.Court))
		field("reporter", escapeLatex(m.Reporter))
	}

	field("doi", m.DOI)
	field("isbn", m.ISBN)
	field("pmid", m.PMID)
	if m.ArXivID != "" {
		field("eprint", m.ArXivID)
		field("archiveprefix", "arXiv")
	}
	field("url", m.URL)

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple entries to BibTeX format.
func ToBibTeXList(entries []Entry) string {
	var parts []string
	for _, e := range entries {
		parts = append(parts, ToBibTeX(e))
	}
	return strings.Join(parts, "\n")
}

// determineEntryType returns the BibTeX entry type for a record.
func determineEntryType(m reference.Metadata) string {
	switch m.Kind {
	case reference.KindBook:
		return "book"
	case reference.KindLegalCase:
		return "jurisdiction"
	case reference.KindWebpage, reference.KindNewspaper:
		if m.Kind == reference.KindNewspaper && m.Container != "" {
			return "article"
		}
		return "misc"
	case reference.KindUnresolved:
		return "misc"
	}

	venue := strings.ToLower(m.Container)
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}
	return "article"
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First".
// Organizations are braced so BibTeX does not split them.
func formatAuthors(authors []reference.Author) string {
	var formatted []string
	for _, a := range authors {
		switch {
		case a.Org:
			formatted = append(formatted, "{"+escapeLatex(a.Last)+"}")
		case a.First != "" && a.Suffix != "":
			formatted = append(formatted, fmt.Sprintf("%s, %s, %s", a.Last, a.Suffix, a.First))
		case a.First != "":
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		default:
			formatted = append(formatted, a.Last)
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & first so later escapes are not re-escaped.
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
