// Package classify assigns a citation kind and a source routing tier to
// extracted markers.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/reference"
)

// Route names the rule that matched a marker. Each route has a kind and
// an ordered tier of source names.
type Route string

const (
	RouteDOI          Route = "doi"
	RoutePMID         Route = "pmid"
	RouteArXiv        Route = "arxiv"
	RouteISBN         Route = "isbn"
	RouteAcademicURL  Route = "academic_url"
	RouteNewspaperURL Route = "newspaper_url"
	RouteLegalURL     Route = "legal_url"
	RouteLegal        Route = "legal"
	RouteBook         Route = "book"
	RouteAuthorYear   Route = "author_year"
	RouteWebpage      Route = "webpage"
	RouteUnresolved   Route = "unresolved"
)

// Routes lists every route in a stable order.
var Routes = []Route{
	RouteDOI, RoutePMID, RouteArXiv, RouteISBN, RouteAcademicURL, RouteNewspaperURL,
	RouteLegalURL, RouteLegal, RouteBook, RouteAuthorYear, RouteWebpage, RouteUnresolved,
}

var routeKinds = map[Route]reference.Kind{
	RouteDOI:          reference.KindJournal,
	RoutePMID:         reference.KindJournal,
	RouteArXiv:        reference.KindJournal,
	RouteISBN:         reference.KindBook,
	RouteAcademicURL:  reference.KindJournal,
	RouteNewspaperURL: reference.KindNewspaper,
	RouteLegalURL:     reference.KindLegalCase,
	RouteLegal:        reference.KindLegalCase,
	RouteBook:         reference.KindBook,
	RouteAuthorYear:   reference.KindJournal,
	RouteWebpage:      reference.KindWebpage,
	RouteUnresolved:   reference.KindUnresolved,
}

// Kind returns the citation kind a route assigns.
func (r Route) Kind() reference.Kind { return routeKinds[r] }

// Routing maps each route to its ordered tier of source names.
type Routing map[Route][]string

const llmTiers = "llm-fast llm-deep"

// DefaultRouting returns the built-in tiers.
func DefaultRouting() Routing {
	tier := func(s string) []string { return strings.Fields(s + " " + llmTiers) }
	return Routing{
		RouteDOI:          tier("crossref openalex semanticscholar"),
		RoutePMID:         tier("pubmed crossref"),
		RouteArXiv:        tier("semanticscholar openalex"),
		RouteISBN:         tier("openlibrary googlebooks"),
		RouteAcademicURL:  tier("webpage crossref"),
		RouteNewspaperURL: tier("webpage"),
		RouteLegalURL:     tier("courtlistener webpage"),
		RouteLegal:        tier("courtlistener"),
		RouteBook:         tier("library openlibrary googlebooks"),
		RouteAuthorYear:   tier("library crossref openalex semanticscholar"),
		RouteWebpage:      tier("webpage"),
		RouteUnresolved:   tier(""),
	}
}

// Citation is a marker with its assigned kind and routing tier.
type Citation struct {
	marker.Marker
	Kind  reference.Kind `json:"citation_kind"`
	Route Route          `json:"route"`
	Tier  []string       `json:"routing_tier"`
	Key   string         `json:"key"` // normalized cache key
}

// Classifier assigns kinds and tiers. It holds no mutable state.
type Classifier struct {
	routing Routing
}

// New returns a classifier using routing, falling back to the default
// tier for any route routing does not name.
func New(routing Routing) *Classifier {
	merged := DefaultRouting()
	for r, tier := range routing {
		merged[r] = append([]string(nil), tier...)
	}
	return &Classifier{routing: merged}
}

// Classify uses the default routing.
func Classify(m marker.Marker) Citation {
	return defaultClassifier.Classify(m)
}

var defaultClassifier = New(nil)

// Classify returns m with a kind, route, tier and cache key. The result
// depends only on m.
func (c *Classifier) Classify(m marker.Marker) Citation {
	route := routeFor(m)
	return Citation{
		Marker: m,
		Kind:   route.Kind(),
		Route:  route,
		Tier:   append([]string(nil), c.routing[route]...),
		Key:    Key(m),
	}
}

var (
	reporterPattern = regexp.MustCompile(`\b\d{1,4}\s+(?:U\.\s?S\.|S\.\s?Ct\.|L\.\s?Ed\.(?:\s?2d)?|F\.\s?(?:2d|3d|4th)|F\.\s?Supp\.(?:\s?[23]d)?|A\.C\.|Q\.B\.|WLR|All\s?ER)\s+\d+`)
	bookCuePattern  = regexp.MustCompile(`\b(?:ISBN|Press|Publishers|eds?\.|edition|Verlag)\b`)
	versusPattern   = regexp.MustCompile(`\bv\.?\s+`)
	caseLeadPattern = regexp.MustCompile(`((?:\p{Lu}[\p{L}.'&-]*,?\s+(?:of\s+|the\s+)?){1,5})v\.?\s+`)
)

func routeFor(m marker.Marker) Route {
	switch m.Hint {
	case marker.HintDOI:
		return RouteDOI
	case marker.HintPMID:
		return RoutePMID
	case marker.HintArXiv:
		return RouteArXiv
	case marker.HintISBN:
		return RouteISBN
	case marker.HintURL:
		host := reference.Host(m.Identifier)
		switch {
		case host == "":
			return RouteUnresolved
		case IsLegalHost(host):
			return RouteLegalURL
		case IsNewspaperHost(host):
			return RouteNewspaperURL
		case IsAcademicHost(host):
			return RouteAcademicURL
		}
		return RouteWebpage
	case marker.HintParenthetical:
		if isLegal(m) {
			return RouteLegal
		}
		if bookCuePattern.MatchString(m.Context) {
			return RouteBook
		}
		return RouteAuthorYear
	}
	return RouteWebpage
}

// isLegal looks for "X v. Author" around the marker or a reporter
// citation such as "388 U.S. 1".
func isLegal(m marker.Marker) bool {
	if reporterPattern.MatchString(m.Raw) {
		return true
	}
	if len(m.Authors) > 0 && versusParty(versusPattern, m.Context, m.Authors[0]) != nil {
		return true
	}
	return reporterPattern.MatchString(m.Context) && strings.Contains(m.Context, " v. ")
}

// Key returns the normalized cache key for a marker.
func Key(m marker.Marker) string {
	switch m.Hint {
	case marker.HintDOI:
		return reference.DOIKey(m.Identifier)
	case marker.HintPMID:
		return reference.PMIDKey(m.Identifier)
	case marker.HintArXiv:
		return reference.ArXivKey(m.Identifier)
	case marker.HintISBN:
		if k := reference.ISBNKey(m.Identifier); k != "" {
			return k
		}
	case marker.HintParenthetical:
		names := append([]string(nil), m.Authors...)
		if m.EtAl {
			names = append(names, "etal")
		}
		return reference.AuthorYearKey(names, m.Year, "")
	}
	return reference.URLKey(m.Identifier)
}

// caseLeadNoise are capitalized sentence openers that precede a case name.
var caseLeadNoise = map[string]bool{
	"In": true, "See": true, "As": true, "Under": true, "Since": true, "After": true,
	"Following": true, "Per": true, "Cf.": true, "But": true, "And": true, "Also": true,
}

// CaseName recovers "Miranda v. Arizona" from the text around a legal
// marker whose cited party is Arizona. It returns "" when no "X v. Party"
// pattern is present.
func CaseName(m marker.Marker) string {
	if len(m.Authors) == 0 {
		return ""
	}
	party := m.Authors[0]
	loc := versusParty(caseLeadPattern, m.Context, party)
	if loc == nil {
		return ""
	}
	words := strings.Fields(m.Context[loc[2]:loc[3]])
	for len(words) > 1 && caseLeadNoise[words[0]] {
		words = words[1:]
	}
	return strings.TrimSuffix(strings.Join(words, " "), ",") + " v. " + party
}

// versusParty returns the submatch indices of the first match of re in s
// that is directly followed by party as a whole word.
func versusParty(re *regexp.Regexp, s, party string) []int {
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		rest, ok := strings.CutPrefix(s[loc[1]:], party)
		if !ok {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(rest); rest == "" || !isWordRune(r) {
			return loc
		}
	}
	return nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
