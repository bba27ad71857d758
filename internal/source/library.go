package source

import (
	"context"
	"fmt"
	"time"

	"github.com/matsen/citeweave/internal/export"
	"github.com/matsen/citeweave/internal/reference"
)

// Library answers lookups from a local BibTeX library. It indexes entries
// by DOI, ISBN, PMID, and arXiv ID; author-year queries scan the entries.
type Library struct {
	refs     []reference.Metadata
	byDOI    map[string]int
	byISBN   map[string]int
	byPMID   map[string]int
	byArXiv  map[string]int
	loadedAt time.Time
}

// NewLibrary loads a .bib file. A missing file gives an empty library.
func NewLibrary(bibPath string) (*Library, error) {
	entries, err := export.ParseBibTeXFile(bibPath)
	if err != nil {
		return nil, fmt.Errorf("loading library %s: %w", bibPath, err)
	}
	refs := make([]reference.Metadata, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, e.Metadata)
	}
	return NewLibraryFromRefs(refs), nil
}

// NewLibraryFromRefs builds a library from records already in memory.
func NewLibraryFromRefs(refs []reference.Metadata) *Library {
	l := &Library{
		refs:     refs,
		byDOI:    make(map[string]int),
		byISBN:   make(map[string]int),
		byPMID:   make(map[string]int),
		byArXiv:  make(map[string]int),
		loadedAt: time.Now().UTC(),
	}
	for i, m := range refs {
		if m.DOI != "" {
			l.byDOI[reference.NormalizeDOI(m.DOI)] = i
		}
		if m.ISBN != "" {
			l.byISBN[m.ISBN] = i
		}
		if m.PMID != "" {
			l.byPMID[m.PMID] = i
		}
		if m.ArXivID != "" {
			l.byArXiv[m.ArXivID] = i
		}
	}
	return l
}

func (l *Library) Name() string { return "library" }
func (l *Library) Cost() Cost   { return CostFree }

// Len returns the number of records in the library.
func (l *Library) Len() int { return len(l.refs) }

// Lookup matches identifiers exactly and author-year queries by score.
func (l *Library) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return reference.Metadata{}, err
	}

	for _, key := range []struct {
		id  string
		idx map[string]int
	}{
		{reference.NormalizeDOI(q.DOI), l.byDOI},
		{q.ISBN, l.byISBN},
		{q.PMID, l.byPMID},
		{q.ArXivID, l.byArXiv},
	} {
		if key.id == "" {
			continue
		}
		if i, ok := key.idx[key.id]; ok {
			return l.hit(i, 1), nil
		}
	}
	if q.HasIdentifier() || len(q.Authors) == 0 {
		return reference.Metadata{}, ErrNotFound
	}

	best, bestScore := -1, 0.0
	for i, m := range l.refs {
		if s := searchQuality(q, m); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return reference.Metadata{}, ErrNotFound
	}
	return l.hit(best, bestScore), nil
}

func (l *Library) hit(i int, confidence float64) reference.Metadata {
	m := l.refs[i].Clone()
	m.Engine = "library"
	m.Confidence = confidence
	m.RetrievedAt = l.loadedAt
	return m
}
