package export

import (
	"strings"
	"unicode"

	"github.com/matsen/citeweave/internal/reference"
)

// Keyer generates unique citation keys of the form Surname2020word,
// appending a, b, ... on collision.
type Keyer struct {
	used map[string]bool
}

// NewKeyer creates an empty key generator.
func NewKeyer() *Keyer {
	return &Keyer{used: make(map[string]bool)}
}

// Key returns a key for m not previously returned by this Keyer.
func (k *Keyer) Key(m reference.Metadata) string {
	base := baseKey(m)
	key := base
	for i := 0; k.used[key]; i++ {
		key = base + suffix(i)
	}
	k.used[key] = true
	return key
}

func baseKey(m reference.Metadata) string {
	name := "anon"
	if s := m.FirstAuthorSurname(); s != "" {
		name = s
	} else if m.Kind == reference.KindLegalCase && m.CaseName != "" {
		name = strings.Fields(m.CaseName)[0]
	}
	year := ""
	if m.Published.Year > 0 {
		year = m.Published.YearString()
	}
	word := ""
	for _, w := range strings.Fields(reference.NormalizeTitle(reference.StripLeadingArticle(m.DisplayTitle()))) {
		if len(w) > 3 {
			word = w
			break
		}
	}
	name = keySafe(name)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name + year + keySafe(word)
}

// keySafe keeps ASCII letters and digits after diacritic folding.
func keySafe(s string) string {
	var b strings.Builder
	for _, r := range reference.FoldText(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// suffix returns a, b, ..., z, aa, ab, ...
func suffix(i int) string {
	s := ""
	for {
		s = string(rune('a'+i%26)) + s
		i = i/26 - 1
		if i < 0 {
			return s
		}
	}
}
