package marker

import (
	"regexp"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

var (
	// doiPattern matches a DOI with an optional "doi:" prefix. Parentheses
	// are allowed inside the suffix; unbalanced ones are trimmed later.
	doiPattern = regexp.MustCompile(`(?i)(?:\bdoi:[ \t]*)?\b(10\.\d{4,9}/[^\s<>"'{}|\\^\[\]` + "`" + `]+)`)

	// truncatedDOIPattern matches a DOI prefix with nothing usable after it.
	truncatedDOIPattern = regexp.MustCompile(`(?i)(?:\bdoi:[ \t]*)?\b10\.\d{4,9}/`)

	pmidPattern  = regexp.MustCompile(`(?i)\bPMID:?[ \t]*(\d{6,9})\b`)
	arxivPattern = regexp.MustCompile(`(?i)\barXiv:?[ \t]*(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+(?:\.[a-z]{2})?/\d{7}(?:v\d+)?)\b`)
	isbnPattern  = regexp.MustCompile(`(?i)\bISBN(?:-1[03])?:?[ \t]*((?:\d[- ]?){12}\d|(?:\d[- ]?){9}[\dX])\b`)
	urlPattern   = regexp.MustCompile(`(?i)https?://[^\s<>"'\]]+`)

	// Identifiers recognized inside link paths.
	doiInURL     = regexp.MustCompile(`(10\.\d{4,9}/[^\s?#]+)`)
	pubmedInURL  = regexp.MustCompile(`/(\d{6,9})/?$`)
	arxivInURL   = regexp.MustCompile(`(?i)arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+(?:\.[a-z]{2})?/\d{7}(?:v\d+)?)`)
	doiHostnames = []string{"doi.org", "dx.doi.org"}
)

const trailingPunct = `.,;:!?'"]`

// cleanIdentifier trims trailing punctuation and closing parentheses that
// have no opening partner inside s.
func cleanIdentifier(s string) string {
	for {
		before := s
		s = strings.TrimRight(s, trailingPunct)
		for strings.HasSuffix(s, ")") && strings.Count(s, ")") > strings.Count(s, "(") {
			s = s[:len(s)-1]
		}
		if s == before {
			return s
		}
	}
}

// classifyURL decides whether a link is really a DOI, PubMed or arXiv
// reference, returning the hint and the identifier.
func classifyURL(u string) (Hint, string) {
	host := reference.Host(u)
	for _, h := range doiHostnames {
		if host == h {
			if m := doiInURL.FindStringSubmatch(u); m != nil {
				doi := cleanIdentifier(m[1])
				if reference.ValidDOI(reference.NormalizeDOI(doi)) {
					return HintDOI, doi
				}
			}
			return HintURL, u
		}
	}
	if strings.Contains(host, "pubmed") || host == "ncbi.nlm.nih.gov" {
		if m := pubmedInURL.FindStringSubmatch(u); m != nil {
			return HintPMID, m[1]
		}
	}
	if strings.HasSuffix(host, "arxiv.org") {
		if m := arxivInURL.FindStringSubmatch(u); m != nil {
			return HintArXiv, strings.TrimSuffix(m[1], ".pdf")
		}
	}
	if m := doiInURL.FindStringSubmatch(u); m != nil {
		doi := cleanIdentifier(m[1])
		doi = strings.TrimSuffix(doi, ".pdf")
		if reference.ValidDOI(reference.NormalizeDOI(doi)) {
			return HintDOI, doi
		}
	}
	return HintURL, u
}
