package style

import (
	"regexp"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

func italic(s string) string {
	if s == "" {
		return ""
	}
	return "*" + s + "*"
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return "“" + s + "”"
}

// terminate ends s with a period unless it already ends a sentence.
func terminate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	trimmed := strings.TrimRight(s, "*”’")
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "!") {
		return s
	}
	return s + "."
}

// sentences joins non-empty parts, each terminated, with single spaces.
func sentences(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, terminate(p))
		}
	}
	return strings.Join(out, " ")
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// series joins items as "a", "a conj b" or "a, b, conj c". serial adds
// the comma before conj in two-item lists.
func series(items []string, conj string, serial bool) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		if serial {
			return items[0] + ", " + conj + " " + items[1]
		}
		return items[0] + " " + conj + " " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", " + conj + " " + items[len(items)-1]
}

// surnames renders in-text author names: up to maxNames joined with conj,
// and "First et al." beyond that.
func surnames(authors []reference.Author, conj string, maxNames int) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) > maxNames {
		return authors[0].Last + " et al."
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Last
	}
	if len(names) == 2 {
		return names[0] + " " + conj + " " + names[1]
	}
	return series(names, conj, false)
}

// fallbackName is the in-text name for a work without authors: the case
// name for legal cases, otherwise the short title.
func fallbackName(m reference.Metadata) string {
	if m.Kind == reference.KindLegalCase && m.CaseName != "" {
		return italic(m.CaseName)
	}
	title := reference.ShortTitle(reference.StripLeadingArticle(m.DisplayTitle()))
	if title == "" {
		return ""
	}
	if m.Kind == reference.KindBook || m.Kind == reference.KindWebpage {
		return italic(title)
	}
	return quoted(title)
}

// shortCaseName is the first party of a case name: "Miranda v. Arizona"
// gives "Miranda".
func shortCaseName(name string) string {
	if head, _, ok := strings.Cut(name, " v. "); ok {
		return strings.TrimSpace(head)
	}
	return name
}

var reporterParts = regexp.MustCompile(`^(\d+)\s+(.+?)\s+(\d+)$`)

// splitReporter splits "384 U.S. 436" into volume, reporter and first page.
func splitReporter(cite string) (vol, rep, page string, ok bool) {
	m := reporterParts.FindStringSubmatch(strings.TrimSpace(cite))
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// pageRange uses an en dash between page numbers.
func pageRange(p string) string {
	return strings.ReplaceAll(strings.ReplaceAll(p, "--", "–"), "-", "–")
}

func isRange(p string) bool {
	return strings.ContainsAny(p, "-–,")
}

// pagePrefix renders "p. 12" or "pp. 12–14".
func pagePrefix(p string) string {
	if p == "" {
		return ""
	}
	if isRange(p) {
		return "pp. " + pageRange(p)
	}
	return "p. " + p
}

// link is the DOI URL when there is a DOI, else the URL.
func link(m reference.Metadata) string {
	if m.DOI != "" {
		return "https://doi.org/" + reference.NormalizeDOI(m.DOI)
	}
	return m.URL
}

func year(m reference.Metadata) string { return m.Published.YearString() }

// longDate renders "January 2, 2006", "January 2006" or the year.
func longDate(d reference.PublicationDate) string {
	switch {
	case d.Year == 0:
		return "n.d."
	case d.Month < 1 || d.Month > 12:
		return d.YearString()
	case d.Day == 0:
		return time.Month(d.Month).String() + " " + d.YearString()
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Format("January 2, 2006")
}

// volumeIssue renders "78(6)", "78" or "".
func volumeIssue(m reference.Metadata) string {
	if m.Issue == "" {
		return m.Volume
	}
	return m.Volume + "(" + m.Issue + ")"
}

// sortKey is surname, year, then title without its leading article.
func sortKey(m reference.Metadata) string {
	name := ""
	for _, a := range m.Authors {
		name += reference.NormalizeSurname(a.Last) + " " + reference.NormalizeTitle(a.First) + " "
	}
	title := reference.NormalizeTitle(reference.StripLeadingArticle(m.DisplayTitle()))
	if name == "" {
		name = title
	}
	return strings.TrimSpace(name) + "\x00" + year(m) + "\x00" + title
}

// legalCitation renders "*Miranda v. Arizona*, 384 U.S. 436 (1966)" with
// an optional pinpoint page after the first page.
func legalCitation(m reference.Metadata, pin string) string {
	s := italic(m.CaseName)
	if s == "" {
		s = italic(m.Title)
	}
	if m.Reporter != "" {
		s += ", " + m.Reporter
		if pin != "" {
			s += ", " + pin
		}
	}
	paren := joinNonEmpty(" ", courtAbbrev(m), yearOrEmpty(m))
	if paren != "" {
		s += " (" + paren + ")"
	}
	return s
}

// courtAbbrev drops the court for U.S. Supreme Court reporters, where the
// reporter already names it.
func courtAbbrev(m reference.Metadata) string {
	if m.Court == "" {
		return ""
	}
	if _, rep, _, ok := splitReporter(m.Reporter); ok && (rep == "U.S." || rep == "S. Ct." || rep == "L. Ed." || rep == "L. Ed. 2d") {
		return ""
	}
	if strings.Contains(strings.ToLower(m.Court), "supreme court of the united states") {
		return ""
	}
	return m.Court
}

func yearOrEmpty(m reference.Metadata) string {
	if m.Published.Year == 0 {
		return ""
	}
	return m.Published.YearString()
}

// complete reports whether m has every field its kind needs.
func complete(m reference.Metadata) bool {
	return !m.IsUnresolved() && m.IsComplete()
}

var shortMonths = []string{"Jan.", "Feb.", "Mar.", "Apr.", "May", "June", "July", "Aug.", "Sept.", "Oct.", "Nov.", "Dec."}

// shortMonth abbreviates month 1-12, or returns "".
func shortMonth(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return shortMonths[month-1]
}
