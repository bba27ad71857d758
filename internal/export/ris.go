package export

import (
	"fmt"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// risTypes maps kinds to RIS reference types.
var risTypes = map[reference.Kind]string{
	reference.KindJournal:    "JOUR",
	reference.KindBook:       "BOOK",
	reference.KindLegalCase:  "CASE",
	reference.KindNewspaper:  "NEWS",
	reference.KindWebpage:    "ELEC",
	reference.KindUnresolved: "GEN",
}

// ToRIS converts an entry to an RIS record.
func ToRIS(e Entry) string {
	m := e.Metadata
	var b strings.Builder
	tag := func(t, v string) {
		if v != "" {
			b.WriteString(fmt.Sprintf("%s  - %s\n", t, v))
		}
	}

	typ, ok := risTypes[m.Kind]
	if !ok {
		typ = "GEN"
	}
	tag("TY", typ)
	tag("ID", e.Key)
	for _, a := range m.Authors {
		if a.Org || a.First == "" {
			tag("AU", a.Last)
		} else {
			tag("AU", a.Last+", "+a.First)
		}
	}
	tag("TI", m.DisplayTitle())
	if m.Kind == reference.KindBook {
		tag("PB", m.Publisher)
		tag("CY", m.Place)
		tag("ET", m.Edition)
	} else {
		tag("T2", m.Container)
		tag("PB", m.Publisher)
	}
	if m.Published.Year > 0 {
		tag("PY", m.Published.YearString())
		if m.Published.Month > 0 {
			tag("DA", fmt.Sprintf("%04d/%02d/%02d/", m.Published.Year, m.Published.Month, m.Published.Day))
		}
	}
	tag("VL", m.Volume)
	tag("IS", m.Issue)
	if first, last, ok := strings.Cut(m.Pages, "–"); ok {
		tag("SP", first)
		tag("EP", last)
	} else {
		tag("SP", m.Pages)
	}
	tag("DO", m.DOI)
	tag("SN", m.ISBN)
	tag("UR", m.URL)
	if m.Kind == reference.KindLegalCase {
		tag("A2", m.Court)
		tag("N1", m.Reporter)
	}
	b.WriteString("ER  - \n")
	return b.String()
}

// ToRISList converts multiple entries to RIS, one blank line between records.
func ToRISList(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, ToRIS(e))
	}
	return strings.Join(parts, "\n")
}
