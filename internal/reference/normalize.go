package reference

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes and drops combining marks: "Gödel" → "Godel".
// Chained transformers carry state, so each call builds its own.
func foldDiacritics() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// FoldText folds diacritics and lowercases s.
func FoldText(s string) string {
	out, _, err := transform.String(foldDiacritics(), s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// NormalizeTitle lowercases, folds diacritics, drops punctuation and
// collapses whitespace. Two titles that differ only in case, accents, or
// punctuation normalize to the same string.
func NormalizeTitle(title string) string {
	folded := FoldText(title)
	var b strings.Builder
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '/':
			space = true
		}
	}
	return b.String()
}

// NormalizeSurname folds a surname for comparison.
func NormalizeSurname(s string) string {
	return strings.ReplaceAll(NormalizeTitle(s), " ", "")
}

var leadingArticles = []string{"the ", "a ", "an "}

// StripLeadingArticle drops an English leading article for sorting.
func StripLeadingArticle(title string) string {
	lower := strings.ToLower(title)
	for _, art := range leadingArticles {
		if strings.HasPrefix(lower, art) {
			return strings.TrimSpace(title[len(art):])
		}
	}
	return title
}

// ShortTitle returns at most four significant words of title, cut at a
// subtitle colon.
func ShortTitle(title string) string {
	if head, _, ok := strings.Cut(title, ":"); ok && strings.TrimSpace(head) != "" {
		title = head
	}
	title = strings.TrimRight(strings.TrimSpace(title), ".?!")
	words := strings.Fields(title)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

// YearString renders the year or "n.d." when unknown.
func (d PublicationDate) YearString() string {
	if d.Year == 0 {
		return "n.d."
	}
	return strconv.Itoa(d.Year)
}

// ParseYear reads the leading four-digit year of s, or 0.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y < 1000 {
		return 0
	}
	return y
}

// ParseDate parses "YYYY", "YYYY-MM" and "YYYY-MM-DD" date strings.
func ParseDate(s string) PublicationDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return PublicationDate{}
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' || r == ' ' })
	if len(parts) == 0 {
		return PublicationDate{}
	}
	pub := PublicationDate{Year: ParseYear(parts[0])}
	if pub.Year == 0 {
		return pub
	}
	if len(parts) >= 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 1 && m <= 12 {
			pub.Month = m
		} else if m := monthNumber(parts[1]); m > 0 {
			pub.Month = m
		}
	}
	if len(parts) >= 3 && pub.Month > 0 {
		if d, err := strconv.Atoi(parts[2]); err == nil && d >= 1 && d <= 31 {
			pub.Day = d
		}
	}
	return pub
}

func monthNumber(s string) int {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0
	}
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	for i, m := range months {
		if strings.HasPrefix(s, m) {
			return i + 1
		}
	}
	return 0
}
