package reference

import "strings"

// Key prefixes for normalized cache keys.
const (
	KeyPrefixDOI        = "doi:"
	KeyPrefixISBN       = "isbn:"
	KeyPrefixPMID       = "pmid:"
	KeyPrefixArXiv      = "arxiv:"
	KeyPrefixURL        = "url:"
	KeyPrefixAuthorYear = "ay:"
)

// DOIKey returns the cache key for a DOI.
func DOIKey(doi string) string { return KeyPrefixDOI + NormalizeDOI(doi) }

// ISBNKey returns the cache key for an ISBN, or "" if it is invalid.
func ISBNKey(isbn string) string {
	n := NormalizeISBN(isbn)
	if n == "" {
		return ""
	}
	return KeyPrefixISBN + n
}

// PMIDKey returns the cache key for a PubMed ID.
func PMIDKey(pmid string) string { return KeyPrefixPMID + NormalizePMID(pmid) }

// ArXivKey returns the cache key for an arXiv identifier.
func ArXivKey(id string) string { return KeyPrefixArXiv + NormalizeArXiv(id) }

// URLKey returns the cache key for a URL.
func URLKey(u string) string { return KeyPrefixURL + NormalizeURL(u) }

// AuthorYearKey returns the cache key for an author-year reference. The
// title fragment may be empty for bare parenthetical markers.
func AuthorYearKey(surnames []string, year, titleFragment string) string {
	names := make([]string, 0, len(surnames))
	for _, s := range surnames {
		if n := NormalizeSurname(s); n != "" {
			names = append(names, n)
		}
	}
	return KeyPrefixAuthorYear + strings.Join(names, "+") + "|" + strings.ToLower(strings.TrimSpace(year)) + "|" + NormalizeTitle(titleFragment)
}

// StrongKeys returns the identifier keys m can be found under.
func (m Metadata) StrongKeys() []string {
	var keys []string
	if m.DOI != "" {
		keys = append(keys, DOIKey(m.DOI))
	}
	if k := ISBNKey(m.ISBN); k != "" {
		keys = append(keys, k)
	}
	if m.PMID != "" {
		keys = append(keys, PMIDKey(m.PMID))
	}
	return keys
}
