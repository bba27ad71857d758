// Package source defines the uniform metadata lookup contract and the
// adapters for each bibliographic database, web scraper, and LLM tier.
package source

import (
	"context"
	"sort"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// Cost orders sources by what a call costs. Resolution always tries
// cheaper sources first.
type Cost int

const (
	CostFree     Cost = iota // structured bibliographic APIs and scraping
	CostCheapLLM             // fast, inexpensive model
	CostPaidLLM              // capable, expensive model
)

func (c Cost) String() string {
	switch c {
	case CostFree:
		return "free"
	case CostCheapLLM:
		return "cheap-llm"
	case CostPaidLLM:
		return "paid-llm"
	}
	return "unknown"
}

// IsPaid reports whether calls at this cost are billed.
func (c Cost) IsPaid() bool { return c > CostFree }

// Query is what a source is asked to find. Identifier fields are set for
// identifier markers; Authors and Year for author-year markers.
type Query struct {
	Kind reference.Kind

	DOI     string
	PMID    string
	ArXivID string
	ISBN    string
	URL     string

	Authors  []string // surnames in citation order
	EtAl     bool
	Year     string
	CaseName string // "Miranda v. Arizona" for legal references

	Raw     string // original marker text
	Context string // surrounding text and document topic, for disambiguation
}

// HasIdentifier reports whether q carries a DOI, PMID, arXiv ID, or ISBN.
func (q Query) HasIdentifier() bool {
	return q.DOI != "" || q.PMID != "" || q.ArXivID != "" || q.ISBN != ""
}

// AuthorYear renders the author-year part of q, e.g. "Smith et al. 2020".
func (q Query) AuthorYear() string {
	names := strings.Join(q.Authors, " ")
	if q.EtAl {
		names += " et al."
	}
	return strings.TrimSpace(names + " " + q.Year)
}

// Source looks up metadata for a query. Lookup returns ErrNotFound when
// the source has nothing for the query. Authentication and rate limiting
// are the adapter's concern.
//
// Metadata.Confidence returned by a source is its match quality in [0,1]:
// 1 for an exact identifier hit, lower for fuzzy search results.
type Source interface {
	Name() string
	Cost() Cost
	Lookup(ctx context.Context, q Query) (reference.Metadata, error)
}

// Registry holds the available sources by name.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds a registry. A later source replaces an earlier one
// with the same name.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		r.Add(s)
	}
	return r
}

// Add registers s under its name.
func (r *Registry) Add(s Source) {
	if s != nil {
		r.sources[s.Name()] = s
	}
}

// Get returns the source registered under name.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
