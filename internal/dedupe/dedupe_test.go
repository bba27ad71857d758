package dedupe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/reference"
)

func occ(start int, raw string, m reference.Metadata) Occurrence {
	mk := marker.Marker{Raw: raw, Span: document.Span{Start: start, End: start + len(raw)}}
	return Occurrence{Citation: classify.Citation{Marker: mk}, Metadata: m, Accepted: m.Confidence >= 0.7}
}

func weakTies(engine string, conf float64) reference.Metadata {
	return reference.Metadata{
		Kind:       reference.KindJournal,
		Title:      "The Strength of Weak Ties",
		Authors:    []reference.Author{{First: "Mark S.", Last: "Granovetter"}},
		Container:  "American Journal of Sociology",
		Published:  reference.PublicationDate{Year: 1973},
		DOI:        "10.1086/226147",
		Engine:     engine,
		Confidence: conf,
	}
}

func fixture() []Occurrence {
	page := weakTies("webpage", 0.85)
	page.DOI = "https://doi.org/10.1086/226147"

	noID := reference.Metadata{
		Kind:       reference.KindBook,
		Title:      "A Theory of Justice",
		Authors:    []reference.Author{{First: "John", Last: "Rawls"}},
		Published:  reference.PublicationDate{Year: 1971},
		Engine:     "library",
		Confidence: 0.9,
	}
	noIDAgain := noID
	noIDAgain.Title = "A theory of justice."
	noIDAgain.Engine = "openlibrary"
	noIDAgain.Confidence = 0.95

	return []Occurrence{
		occ(10, "(https://doi.org/10.1086/226147)", weakTies("crossref", 1)),
		occ(80, "(Rawls, 1971)", noID),
		occ(120, "https://www.jstor.org/stable/2776392", page),
		occ(200, "(Smith, 2020)", reference.Unresolved("(Smith, 2020)")),
		occ(240, "(Rawls, 1971)", noIDAgain),
		occ(300, "(Smith, 2020)", reference.Unresolved("(Smith, 2020)")),
	}
}

func TestDeduplicateMergesIdentifiersAndTitles(t *testing.T) {
	works := Deduplicate(fixture())
	require.Len(t, works, 4)

	assert.Equal(t, "crossref", works[0].Metadata.Engine)
	assert.Equal(t, []document.Span{{Start: 10, End: 42}, {Start: 120, End: 156}}, works[0].Positions())

	assert.Equal(t, "openlibrary", works[1].Metadata.Engine, "higher confidence wins")
	assert.Len(t, works[1].Occurrences, 2)
	assert.Equal(t, 80, works[1].First().Start)

	// Unresolved placeholders never merge.
	assert.True(t, works[2].IsUnresolved())
	assert.True(t, works[3].IsUnresolved())
	assert.Equal(t, 300, works[3].First().Start)
}

func TestDeduplicateOrderIndependent(t *testing.T) {
	base := fixture()
	want := Deduplicate(base)

	permute(len(base), func(perm []int) {
		in := make([]Occurrence, len(base))
		for i, p := range perm {
			in[i] = base[p]
		}
		if diff := cmp.Diff(want, Deduplicate(in)); diff != "" {
			t.Fatalf("permutation %v changed the result (-want +got):\n%s", perm, diff)
		}
	})
}

func TestRepresentativeTieBreaks(t *testing.T) {
	a := occ(50, "x", weakTies("semanticscholar", 0.9))
	b := occ(10, "y", weakTies("openalex", 0.9))
	c := occ(10, "y", weakTies("crossref", 0.9))

	works := Deduplicate([]Occurrence{a, b, c})
	require.Len(t, works, 1)
	assert.Equal(t, "crossref", works[0].Metadata.Engine, "earliest, then smaller engine")
}

func TestDeduplicateDifferentYearsStayApart(t *testing.T) {
	one := reference.Metadata{Title: "Foundations", Authors: []reference.Author{{Last: "Coleman"}}, Published: reference.PublicationDate{Year: 1988}, Engine: "library", Confidence: 1}
	two := one
	two.Published.Year = 1990

	works := Deduplicate([]Occurrence{occ(0, "a", one), occ(20, "b", two)})
	assert.Len(t, works, 2)
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}

// permute calls fn with every permutation of 0..n-1 (Heap's algorithm).
func permute(n int, fn func([]int)) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	c := make([]int, n)
	fn(perm)
	for i := 0; i < n; {
		if c[i] < i {
			if i%2 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[c[i]], perm[i] = perm[i], perm[c[i]]
			}
			fn(perm)
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
}
