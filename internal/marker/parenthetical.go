package marker

import (
	"regexp"
	"strings"
)

const (
	authorName = `(?:Mc|Mac|O')?\p{Lu}\p{Ll}+(?:[-'’]\p{Lu}?\p{Ll}+)*`
	yearPart   = `(?:\d{4}[a-z]?|n\.d\.)`
	pagePart   = `pp?\.[ \t]*\d+(?:[ \t]*[-–][ \t]*\d+)?`
	etAl       = `(?:[ \t]+et[ \t]+al\.?)?`

	// Smith | Smith & Jones | Smith, Jones, & Lee | Smith et al.
	authorList = authorName + `(?:(?:[ \t]*,)?[ \t]+(?:&|and)[ \t]+` + authorName + `|[ \t]*&[ \t]*` + authorName + `|[ \t]*,[ \t]*` + authorName + `)*` + etAl

	// Narrative citations never carry commas between names.
	narrativeAuthors = authorName + `(?:[ \t]+(?:&|and)[ \t]+` + authorName + `)?` + etAl

	citationBody = `(` + authorList + `)(?:[ \t]*,[ \t]*|[ \t]+)(` + yearPart + `)(?:[ \t]*,[ \t]*(` + pagePart + `))?`
)

var (
	standardPattern  = regexp.MustCompile(`\(` + citationBody + `\)`)
	multiPattern     = regexp.MustCompile(`\(([^()\n]*;[^()\n]*)\)`)
	narrativePattern = regexp.MustCompile(`(` + narrativeAuthors + `)[ \t]+\((` + yearPart + `)(?:[ \t]*,[ \t]*(` + pagePart + `))?\)`)
	citationPart     = regexp.MustCompile(`^` + citationBody + `$`)
	pageDigits       = regexp.MustCompile(`\d+(?:[ \t]*[-–][ \t]*\d+)?`)
	authorSplit      = regexp.MustCompile(`[ \t]*(?:,[ \t]*(?:&|and)[ \t]+|&|,|[ \t]and[ \t])[ \t]*`)
	etAlSuffix       = regexp.MustCompile(`[ \t]+et[ \t]+al\.?$`)
)

// Sentence words that look like a capitalized surname before "(1999)".
var narrativeStopwords = map[string]bool{
	"In": true, "See": true, "Since": true, "By": true, "From": true, "The": true,
	"This": true, "That": true, "Until": true, "Before": true, "After": true,
	"During": true, "Circa": true, "Published": true, "Year": true, "Edition": true,
	"Cf": true, "Also": true, "And": true, "Or": true, "Of": true, "On": true,
}

// parentheticalCandidates finds author-year markers in one block of text.
// Offsets in the returned markers are relative to the block.
func parentheticalCandidates(text string) []Marker {
	var out []Marker

	for _, m := range standardPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, authorYear(text, m, false))
	}

	for _, m := range multiPattern.FindAllStringSubmatchIndex(text, -1) {
		inner := text[m[2]:m[3]]
		parts := strings.Split(inner, ";")
		var subs []Marker
		offset := m[2]
		ok := true
		for _, part := range parts {
			lead := len(part) - len(strings.TrimLeft(part, " \t"))
			trimmed := strings.TrimSpace(part)
			sm := citationPart.FindStringSubmatchIndex(trimmed)
			if sm == nil {
				ok = false
				break
			}
			base := offset + lead
			for i := range sm {
				if sm[i] >= 0 {
					sm[i] += base
				}
			}
			sub := authorYear(text, sm, false)
			sub.Enclosed = true
			subs = append(subs, sub)
			offset += len(part) + 1
		}
		if ok && len(subs) > 1 {
			out = append(out, subs...)
		}
	}

	for _, m := range narrativePattern.FindAllStringSubmatchIndex(text, -1) {
		first := text[m[2]:m[3]]
		if word, _, _ := strings.Cut(first, " "); narrativeStopwords[word] {
			continue
		}
		out = append(out, authorYear(text, m, true))
	}
	return out
}

// authorYear builds a parenthetical marker from submatch indexes: group 1
// authors, group 2 year, optional group 3 page.
func authorYear(text string, m []int, narrative bool) Marker {
	authors := text[m[2]:m[3]]
	year := text[m[4]:m[5]]
	mk := Marker{
		Raw:       text[m[0]:m[1]],
		Hint:      HintParenthetical,
		Year:      year,
		Narrative: narrative,
	}
	mk.Span.Start, mk.Span.End = m[0], m[1]
	if len(m) > 7 && m[6] >= 0 {
		mk.Page = pageDigits.FindString(text[m[6]:m[7]])
	}
	mk.Authors, mk.EtAl = splitAuthors(authors)
	mk.Identifier = strings.Join(mk.Authors, " ") + " " + year
	return mk
}

// splitAuthors turns "Smith, Jones, & Lee" into surnames and reports a
// trailing "et al.".
func splitAuthors(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	etal := false
	if loc := etAlSuffix.FindStringIndex(s); loc != nil {
		etal = true
		s = s[:loc[0]]
	}
	var names []string
	for _, part := range authorSplit.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names, etal
}
