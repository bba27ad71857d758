package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/reference"
)

func classifyOne(t *testing.T, text string) Citation {
	t.Helper()
	markers := marker.Collect(text)
	require.Len(t, markers, 1, "text %q", text)
	return Classify(markers[0])
}

func TestClassifyRoutes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		route Route
		kind  reference.Kind
		first string
		key   string
	}{
		{"doi", "https://doi.org/10.1086/226147", RouteDOI, reference.KindJournal, "crossref", "doi:10.1086/226147"},
		{"pmid", "PMID: 31978945", RoutePMID, reference.KindJournal, "pubmed", "pmid:31978945"},
		{"arxiv", "arXiv:2106.15928v1", RouteArXiv, reference.KindJournal, "semanticscholar", "arxiv:2106.15928"},
		{"isbn", "ISBN 978-0-306-40615-7", RouteISBN, reference.KindBook, "openlibrary", "isbn:9780306406157"},
		{"academic url", "https://www.jstor.org/stable/2776392", RouteAcademicURL, reference.KindJournal, "webpage", "url:https://jstor.org/stable/2776392"},
		{"newspaper", "https://www.nytimes.com/2020/01/01/us/story.html", RouteNewspaperURL, reference.KindNewspaper, "webpage", "url:https://nytimes.com/2020/01/01/us/story.html"},
		{"legal url", "https://www.courtlistener.com/opinion/107252/miranda-v-arizona/", RouteLegalURL, reference.KindLegalCase, "courtlistener", "url:https://courtlistener.com/opinion/107252/miranda-v-arizona"},
		{"webpage", "https://example.com/blog/post", RouteWebpage, reference.KindWebpage, "webpage", "url:https://example.com/blog/post"},
		{"truncated doi", "see doi:10.1086/ there", RouteUnresolved, reference.KindUnresolved, "llm-fast", "url:doi:10.1086/"},
		{"author year", "as argued (Coleman, 1988).", RouteAuthorYear, reference.KindJournal, "library", "ay:coleman|1988|"},
		{"et al", "shown (Smith et al., 2020).", RouteAuthorYear, reference.KindJournal, "library", "ay:smith+etal|2020|"},
		{"legal narrative", "the Court in Miranda v. Arizona (1966) held", RouteLegal, reference.KindLegalCase, "courtlistener", "ay:arizona|1966|"},
		{"book cue", "Oxford University Press published it (Rawls, 1971).", RouteBook, reference.KindBook, "library", "ay:rawls|1971|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := classifyOne(t, tt.text)
			assert.Equal(t, tt.route, c.Route)
			assert.Equal(t, tt.kind, c.Kind)
			require.NotEmpty(t, c.Tier)
			assert.Equal(t, tt.first, c.Tier[0])
			assert.Equal(t, tt.key, c.Key)
		})
	}
}

func TestClassifyTierEndsWithLLM(t *testing.T) {
	for route, tier := range DefaultRouting() {
		require.GreaterOrEqual(t, len(tier), 2, "route %s", route)
		assert.Equal(t, []string{"llm-fast", "llm-deep"}, tier[len(tier)-2:], "route %s", route)
		assert.NotEmpty(t, route.Kind(), "route %s has no kind", route)
	}
	assert.Len(t, DefaultRouting(), len(Routes))
}

func TestClassifyIsDeterministic(t *testing.T) {
	m := marker.Collect("See https://doi.org/10.1086/226147")[0]
	a := Classify(m)
	b := Classify(m)
	assert.Equal(t, a, b)

	// Mutating a result never leaks into later classifications.
	a.Tier[0] = "mutated"
	assert.Equal(t, "crossref", Classify(m).Tier[0])
}

func TestClassifierCustomRouting(t *testing.T) {
	c := New(Routing{RouteDOI: {"openalex", "llm-fast"}})
	m := marker.Collect("10.1086/226147")[0]
	assert.Equal(t, []string{"openalex", "llm-fast"}, c.Classify(m).Tier)

	pm := marker.Collect("PMID: 31978945")[0]
	assert.Equal(t, DefaultRouting()[RoutePMID], c.Classify(pm).Tier)
}

func TestHostMatching(t *testing.T) {
	assert.True(t, IsAcademicHost("link.springer.com"))
	assert.True(t, IsAcademicHost("nature.com"))
	assert.False(t, IsAcademicHost("notnature.com"))
	assert.True(t, IsNewspaperHost("nytimes.com"))
	assert.True(t, IsLegalHost("supreme.justia.com"))
}

func TestCaseName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"the Court in Miranda v. Arizona (1966) held", "Miranda v. Arizona"},
		{"See Roe v. Wade (1973).", "Roe v. Wade"},
		{"After Terry v. Ohio, the Court in Miranda v. Arizona (1966) held", "Miranda v. Arizona"},
		{"Unlike Roe v. Wadeson, see Wade (1973).", ""},
		{"as argued (Coleman, 1988).", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			markers := marker.Collect(tt.text)
			require.NotEmpty(t, markers)
			assert.Equal(t, tt.want, CaseName(markers[0]))
		})
	}
}
