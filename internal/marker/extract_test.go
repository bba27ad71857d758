package marker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citeweave/internal/document"
)

func TestExtractIdentifiers(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		hint       Hint
		identifier string
		raw        string
	}{
		{"doi link", "See https://doi.org/10.1086/226147.", HintDOI, "10.1086/226147", "https://doi.org/10.1086/226147"},
		{"bare doi", "as shown in 10.1177/0003122410395370, the", HintDOI, "10.1177/0003122410395370", "10.1177/0003122410395370"},
		{"prefixed doi", "doi:10.1038/nature12373;", HintDOI, "10.1038/nature12373", "doi:10.1038/nature12373"},
		{"doi with parens", "10.1016/S0140-6736(20)30183-5).", HintDOI, "10.1016/S0140-6736(20)30183-5", "10.1016/S0140-6736(20)30183-5"},
		{"doi in publisher path", "https://onlinelibrary.wiley.com/doi/full/10.1111/j.1467-9248.2010.00850.x", HintDOI, "10.1111/j.1467-9248.2010.00850.x", "https://onlinelibrary.wiley.com/doi/full/10.1111/j.1467-9248.2010.00850.x"},
		{"pmid", "PMID: 12345678.", HintPMID, "12345678", "PMID: 12345678"},
		{"pubmed link", "https://pubmed.ncbi.nlm.nih.gov/31978945/", HintPMID, "31978945", "https://pubmed.ncbi.nlm.nih.gov/31978945/"},
		{"arxiv", "preprint arXiv:2301.12345v2 shows", HintArXiv, "2301.12345v2", "arXiv:2301.12345v2"},
		{"arxiv link", "https://arxiv.org/abs/2106.15928", HintArXiv, "2106.15928", "https://arxiv.org/abs/2106.15928"},
		{"isbn", "ISBN 0-306-40615-2", HintISBN, "9780306406157", "ISBN 0-306-40615-2"},
		{"plain url", "Read https://example.com/story?id=4).", HintURL, "https://example.com/story?id=4", "https://example.com/story?id=4"},
		{"url with balanced parens", "https://en.wikipedia.org/wiki/Ties_(sociology).", HintURL, "https://en.wikipedia.org/wiki/Ties_(sociology)", "https://en.wikipedia.org/wiki/Ties_(sociology)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markers := Collect(tt.text)
			require.Len(t, markers, 1)
			m := markers[0]
			assert.Equal(t, tt.hint, m.Hint)
			assert.Equal(t, tt.identifier, m.Identifier)
			assert.Equal(t, tt.raw, m.Raw)
			assert.Equal(t, tt.raw, tt.text[m.Span.Start:m.Span.End])
		})
	}
}

func TestExtractMalformedBecomesURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		raw  string
	}{
		{"truncated doi", "see doi:10.1086/ for details", "doi:10.1086/"},
		{"bad isbn checksum", "ISBN 0-306-40615-3", "ISBN 0-306-40615-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markers := Collect(tt.text)
			require.Len(t, markers, 1)
			assert.Equal(t, HintURL, markers[0].Hint)
			assert.Equal(t, tt.raw, markers[0].Raw)
		})
	}
}

func TestExtractParentheticals(t *testing.T) {
	text := "Ties matter (Granovetter, 1973). Coleman (1988) agreed " +
		"(Smith et al., 2020, p. 45) and (Smith & Jones 2019) and (Coleman, 1988; Weber, 1905a)."

	markers := Collect(text)
	require.Len(t, markers, 6)

	assert.Equal(t, "(Granovetter, 1973)", markers[0].Raw)
	assert.Equal(t, []string{"Granovetter"}, markers[0].Authors)
	assert.Equal(t, "1973", markers[0].Year)
	assert.Equal(t, "Granovetter 1973", markers[0].Identifier)

	assert.Equal(t, "Coleman (1988)", markers[1].Raw)
	assert.True(t, markers[1].Narrative)

	assert.Equal(t, []string{"Smith"}, markers[2].Authors)
	assert.True(t, markers[2].EtAl)
	assert.Equal(t, "45", markers[2].Page)

	assert.Equal(t, []string{"Smith", "Jones"}, markers[3].Authors)
	assert.Equal(t, "2019", markers[3].Year)

	assert.Equal(t, "Coleman, 1988", markers[4].Raw)
	assert.True(t, markers[4].Enclosed)
	assert.Equal(t, "Weber, 1905a", markers[5].Raw)
	assert.Equal(t, "1905a", markers[5].Year)
	assert.Equal(t, "Weber, 1905a", text[markers[5].Span.Start:markers[5].Span.End])

	for _, m := range markers {
		assert.Equal(t, HintParenthetical, m.Hint)
	}
}

func TestNarrativeStopwords(t *testing.T) {
	assert.Empty(t, Collect("It was published In (1999) by nobody."))
}

func TestExtractOverlapPrefersSpecific(t *testing.T) {
	var conflicts []Conflict
	markers := collectWithConflicts(t, "Link https://doi.org/10.1086/226147 here", &conflicts)

	require.Len(t, markers, 1)
	assert.Equal(t, HintDOI, markers[0].Hint)
	assert.Equal(t, "https://doi.org/10.1086/226147", markers[0].URL)
	require.Len(t, conflicts, 1)
	assert.True(t, errors.Is(conflicts[0].Err(), ErrExtractionAmbiguous))
}

func TestExtractEnclosedIdentifier(t *testing.T) {
	markers := Collect("prior work (doi:10.1086/226147) shows")
	require.Len(t, markers, 1)
	assert.Equal(t, "(doi:10.1086/226147)", markers[0].Raw)
	assert.Equal(t, document.Span{Start: 11, End: 31}, markers[0].Span)
}

func TestExtractDocumentOrderAcrossParagraphs(t *testing.T) {
	text := "First (Smith, 2020).\n\nSecond PMID: 1234567 and https://example.org/a"
	markers := Collect(text)
	require.Len(t, markers, 3)
	assert.Equal(t, HintParenthetical, markers[0].Hint)
	assert.Equal(t, HintPMID, markers[1].Hint)
	assert.Equal(t, HintURL, markers[2].Hint)
	for i := 1; i < len(markers); i++ {
		assert.Less(t, markers[i-1].Span.Start, markers[i].Span.Start)
	}
	assert.Contains(t, markers[0].Context, "First (Smith, 2020).")
}

func TestExtractIsLazyAndRestartable(t *testing.T) {
	text := "A (Smith, 2020).\n\nB (Jones, 2021).\n\nC (Lee, 2022)."
	seq := Extract(text)

	var first []Marker
	for m := range seq {
		first = append(first, m)
		break
	}
	require.Len(t, first, 1)

	all := Collect(text)
	again := Collect(text)
	assert.Len(t, all, 3)
	assert.Equal(t, all, again)
	assert.Equal(t, all[0], first[0])
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, Collect(""))
	assert.Empty(t, Collect("No citations here at all."))
}

// collectWithConflicts collects markers from text while recording conflicts.
func collectWithConflicts(t *testing.T, text string, conflicts *[]Conflict) []Marker {
	t.Helper()
	var out []Marker
	for m := range Scan(text, func(c Conflict) { *conflicts = append(*conflicts, c) }) {
		out = append(out, m)
	}
	return out
}
