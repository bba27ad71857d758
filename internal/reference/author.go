package reference

import (
	"strings"
	"unicode"
)

// Author represents a work's author. Organizational authors carry their
// full name in Last and are never abbreviated.
type Author struct {
	First  string `json:"first,omitempty"`  // Given name(s) or initials
	Last   string `json:"last"`             // Family name, or organization name
	Suffix string `json:"suffix,omitempty"` // Jr., III
	Org    bool   `json:"org,omitempty"`
}

// Common name suffixes kept separate from the family name.
var nameSuffixes = map[string]string{
	"jr":   "Jr.",
	"jr.":  "Jr.",
	"sr":   "Sr.",
	"sr.":  "Sr.",
	"ii":   "II",
	"iii":  "III",
	"iv":   "IV",
	"phd":  "PhD",
	"ph.d": "PhD",
	"md":   "MD",
	"m.d":  "MD",
}

var orgKeywords = []string{
	"organization", "organisation", "institute", "institution",
	"commission", "committee", "council", "agency", "authority",
	"department", "ministry", "bureau", "office", "foundation",
	"association", "society", "federation", "union", "corporation",
	"university", "college", "library", "museum", "center", "centre",
	"group", "consortium", "initiative", "network", "board",
}

// ParseAuthorName splits a free-form author name into an Author.
//
// Handles "First Last", "Last, First", "E.C. Caplan", PubMed style
// "JAMES TG", trailing suffixes, and organizational authors.
func ParseAuthorName(name string) Author {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Author{}
	}
	if isOrganization(name) {
		return Author{Last: name, Org: true}
	}

	if last, first, ok := strings.Cut(name, ","); ok {
		last = strings.TrimSpace(last)
		first = strings.TrimSpace(first)
		a := Author{Last: last}
		// "Last, First, Jr."
		if rest, suffix, ok := strings.Cut(first, ","); ok {
			if s, known := nameSuffixes[strings.ToLower(strings.TrimSpace(suffix))]; known {
				first = strings.TrimSpace(rest)
				a.Suffix = s
			}
		}
		if isAllUpper(last) && len([]rune(last)) > 2 {
			a.Last = titleCase(last)
		}
		a.First = normalizeInitials(first)
		return a
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return Author{Last: parts[0]}
	}

	var a Author
	if s, ok := nameSuffixes[strings.ToLower(parts[len(parts)-1])]; ok && len(parts) > 2 {
		a.Suffix = s
		parts = parts[:len(parts)-1]
	}

	// PubMed: "JAMES TG", "Smith J"
	if len(parts) == 2 && len([]rune(parts[0])) > 1 && !looksLikeInitials(parts[0]) && looksLikeInitials(parts[1]) {
		a.Last = parts[0]
		if isAllUpper(parts[0]) {
			a.Last = titleCase(parts[0])
		}
		a.First = normalizeInitials(parts[1])
		return a
	}

	a.Last = parts[len(parts)-1]
	a.First = normalizeInitials(strings.Join(parts[:len(parts)-1], " "))
	// Particles stay with the family name: "Ludwig van Beethoven".
	for i := len(parts) - 2; i > 0; i-- {
		if !isParticle(parts[i]) {
			break
		}
		a.Last = strings.Join(parts[i:], " ")
		a.First = normalizeInitials(strings.Join(parts[:i], " "))
	}
	return a
}

// ParseAuthorNames parses each name in order, dropping empty entries.
func ParseAuthorNames(names []string) []Author {
	out := make([]Author, 0, len(names))
	for _, n := range names {
		if a := ParseAuthorName(n); a.Last != "" {
			out = append(out, a)
		}
	}
	return out
}

// Initials returns the given names as initials: "Mark Stephen" → "M. S.".
// Hyphenated names keep the hyphen: "Jean-Paul" → "J.-P.".
func (a Author) Initials() string {
	if a.Org || a.First == "" {
		return ""
	}
	var parts []string
	for _, word := range strings.Fields(strings.ReplaceAll(a.First, ".", ". ")) {
		var hyph []string
		for _, piece := range strings.Split(word, "-") {
			r := []rune(strings.TrimSuffix(piece, "."))
			if len(r) == 0 {
				continue
			}
			hyph = append(hyph, string(unicode.ToUpper(r[0]))+".")
		}
		if len(hyph) > 0 {
			parts = append(parts, strings.Join(hyph, "-"))
		}
	}
	return strings.Join(parts, " ")
}

// FullName returns "First Last, Suffix".
func (a Author) FullName() string {
	name := strings.TrimSpace(a.First + " " + a.Last)
	if a.Suffix != "" {
		name += ", " + a.Suffix
	}
	return name
}

// Inverted returns "Last, First, Suffix" for bibliography lists.
func (a Author) Inverted() string {
	if a.Org || a.First == "" {
		return a.Last
	}
	name := a.Last + ", " + a.First
	if a.Suffix != "" {
		name += ", " + a.Suffix
	}
	return name
}

func isOrganization(name string) bool {
	for _, word := range strings.Fields(strings.ToLower(name)) {
		word = strings.Trim(word, ",.()")
		for _, kw := range orgKeywords {
			if word == kw || word == kw+"s" {
				return true
			}
		}
	}
	// All-caps acronyms such as WHO or ACORE
	n := len([]rune(name))
	if n >= 2 && n <= 10 && isAllUpper(name) {
		for _, r := range name {
			if !unicode.IsLetter(r) {
				return false
			}
		}
		return true
	}
	return false
}

func isParticle(s string) bool {
	switch strings.ToLower(s) {
	case "van", "von", "der", "den", "de", "del", "della", "di", "da", "du", "le", "la", "bin", "ibn":
		return true
	}
	return false
}

// looksLikeInitials matches "EC", "E.C.", "TG", "E.C.M.".
func looksLikeInitials(s string) bool {
	cleaned := strings.NewReplacer(".", "", " ", "").Replace(s)
	n := len([]rune(cleaned))
	return n >= 1 && n <= 4 && isAllUpper(cleaned)
}

// normalizeInitials rewrites bare initials with periods ("EC" → "E.C.")
// and leaves real given names alone.
func normalizeInitials(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !looksLikeInitials(s) {
		return s
	}
	cleaned := strings.NewReplacer(".", "", " ", "").Replace(s)
	var b strings.Builder
	for _, r := range cleaned {
		b.WriteRune(r)
		b.WriteByte('.')
	}
	return b.String()
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func titleCase(s string) string {
	r := []rune(strings.ToLower(s))
	start := true
	for i, c := range r {
		if start && unicode.IsLetter(c) {
			r[i] = unicode.ToUpper(c)
		}
		start = c == '-' || c == ' ' || c == '\''
	}
	return string(r)
}
