// Package dedupe groups resolved citations that refer to the same work.
package dedupe

import (
	"sort"
	"strconv"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/reference"
)

// Occurrence is one resolved marker.
type Occurrence struct {
	classify.Citation
	Metadata reference.Metadata `json:"metadata"`
	Accepted bool               `json:"accepted"`
}

// Work is a distinct work and every place it is cited.
type Work struct {
	// Metadata is the representative record of the group.
	Metadata    reference.Metadata `json:"metadata"`
	Accepted    bool               `json:"accepted"`
	Occurrences []Occurrence       `json:"occurrences"` // sorted by position
}

// Positions returns the spans of all occurrences in document order.
func (w Work) Positions() []document.Span {
	out := make([]document.Span, len(w.Occurrences))
	for i, o := range w.Occurrences {
		out[i] = o.Span
	}
	return out
}

// First returns the position of the earliest occurrence.
func (w Work) First() document.Span {
	if len(w.Occurrences) == 0 {
		return document.Span{}
	}
	return w.Occurrences[0].Span
}

// IsUnresolved reports whether the work is an unresolved placeholder.
func (w Work) IsUnresolved() bool { return w.Metadata.IsUnresolved() }

// Deduplicate groups occurrences of the same work. Two occurrences merge
// when they share a DOI, ISBN or PMID, or, when neither carries one of
// those, when normalized title, first-author surname and year agree.
// The result is sorted by first position and does not depend on the
// order of occs.
func Deduplicate(occs []Occurrence) []Work {
	sorted := append([]Occurrence(nil), occs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span != sorted[j].Span {
			return sorted[i].Span.Less(sorted[j].Span)
		}
		return sorted[i].Metadata.Engine < sorted[j].Metadata.Engine
	})

	uf := newUnionFind(len(sorted))
	owner := make(map[string]int)
	link := func(key string, i int) {
		if j, ok := owner[key]; ok {
			uf.union(i, j)
			return
		}
		owner[key] = i
	}
	for i, o := range sorted {
		if o.Metadata.IsUnresolved() {
			continue
		}
		strong := o.Metadata.StrongKeys()
		for _, k := range strong {
			link(k, i)
		}
		if len(strong) == 0 {
			if k := descriptiveKey(o.Metadata); k != "" {
				link(k, i)
			}
		}
	}

	groups := make(map[int][]Occurrence)
	var roots []int
	for i, o := range sorted {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], o)
	}

	works := make([]Work, 0, len(roots))
	for _, r := range roots {
		members := groups[r]
		rep := representative(members)
		works = append(works, Work{
			Metadata:    rep.Metadata.Clone(),
			Accepted:    rep.Accepted,
			Occurrences: members,
		})
	}
	sort.SliceStable(works, func(i, j int) bool { return works[i].First().Less(works[j].First()) })
	return works
}

// descriptiveKey is the rule (b) identity: title, first author, year.
func descriptiveKey(m reference.Metadata) string {
	title := reference.NormalizeTitle(m.DisplayTitle())
	if title == "" {
		return ""
	}
	return "t:" + title + "|" + reference.NormalizeSurname(m.FirstAuthorSurname()) + "|" + strconv.Itoa(m.Published.Year)
}

// representative picks the highest-confidence member, then the earliest,
// then the lexically smaller engine. members are in position order.
func representative(members []Occurrence) Occurrence {
	best := members[0]
	for _, o := range members[1:] {
		switch {
		case o.Metadata.Confidence > best.Metadata.Confidence:
			best = o
		case o.Metadata.Confidence < best.Metadata.Confidence:
		case o.Span.Less(best.Span):
			best = o
		case o.Span == best.Span && o.Metadata.Engine < best.Metadata.Engine:
			best = o
		}
	}
	return best
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union keeps the smaller index as root so roots follow position order.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
