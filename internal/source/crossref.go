package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

const (
	// CrossrefBaseURL is the Crossref REST API.
	CrossrefBaseURL = "https://api.crossref.org"

	// crossrefRPS stays within the polite-pool limit.
	crossrefRPS = 10
)

// Crossref resolves DOIs and author-year searches against Crossref.
type Crossref struct {
	c      *client
	mailto string
}

// NewCrossref creates a Crossref source. The API key, when set, is used
// as the polite-pool contact address.
func NewCrossref(opts ...Option) *Crossref {
	c := newClient("crossref", CrossrefBaseURL, crossrefRPS, opts)
	return &Crossref{c: c, mailto: c.apiKey}
}

func (s *Crossref) Name() string { return "crossref" }
func (s *Crossref) Cost() Cost   { return CostFree }

type crossrefWork struct {
	DOI            string   `json:"DOI"`
	Type           string   `json:"type"`
	Title          []string `json:"title"`
	Subtitle       []string `json:"subtitle"`
	ContainerTitle []string `json:"container-title"`
	Publisher      string   `json:"publisher"`
	Volume         string   `json:"volume"`
	Issue          string   `json:"issue"`
	Page           string   `json:"page"`
	ISBN           []string `json:"ISBN"`
	URL            string   `json:"URL"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
		Name   string `json:"name"`
	} `json:"author"`
	PublishedPrint  crossrefDate `json:"published-print"`
	PublishedOnline crossrefDate `json:"published-online"`
	Issued          crossrefDate `json:"issued"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) date() reference.PublicationDate {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return reference.PublicationDate{}
	}
	p := d.DateParts[0]
	out := reference.PublicationDate{Year: p[0]}
	if len(p) > 1 {
		out.Month = p[1]
	}
	if len(p) > 2 {
		out.Day = p[2]
	}
	return out
}

// Lookup fetches /works/{doi} for DOI queries and searches otherwise.
func (s *Crossref) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if q.DOI != "" {
		var resp struct {
			Message crossrefWork `json:"message"`
		}
		if err := s.c.getJSON(ctx, "/works/"+url.PathEscape(q.DOI), s.params(), &resp); err != nil {
			return reference.Metadata{}, err
		}
		m := resp.Message.metadata()
		m.Confidence = 1
		return m, nil
	}

	if len(q.Authors) == 0 {
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	params := s.params()
	params.Set("query.author", strings.Join(q.Authors, " "))
	if q.CaseName != "" {
		params.Set("query.bibliographic", q.CaseName)
	}
	if y := reference.ParseYear(q.Year); y > 0 {
		params.Set("filter", "from-pub-date:"+itoa(y-1)+",until-pub-date:"+itoa(y))
	}
	params.Set("rows", "10")

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := s.c.getJSON(ctx, "/works", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	candidates := make([]reference.Metadata, 0, len(resp.Message.Items))
	for _, w := range resp.Message.Items {
		candidates = append(candidates, w.metadata())
	}
	m, ok := bestMatch(q, candidates)
	if !ok {
		return reference.Metadata{}, ErrNotFound
	}
	return m, nil
}

func (s *Crossref) params() url.Values {
	p := url.Values{}
	if s.mailto != "" {
		p.Set("mailto", s.mailto)
	}
	return p
}

func (w crossrefWork) metadata() reference.Metadata {
	m := reference.Metadata{
		Kind:        reference.KindJournal,
		Publisher:   w.Publisher,
		Volume:      w.Volume,
		Issue:       w.Issue,
		Pages:       strings.ReplaceAll(w.Page, "-", "–"),
		DOI:         reference.NormalizeDOI(w.DOI),
		Engine:      "crossref",
		RetrievedAt: time.Now().UTC(),
	}
	if len(w.Title) > 0 {
		m.Title = w.Title[0]
		if len(w.Subtitle) > 0 && w.Subtitle[0] != "" {
			m.Title += ": " + w.Subtitle[0]
		}
	}
	if len(w.ContainerTitle) > 0 {
		m.Container = w.ContainerTitle[0]
	}
	for _, a := range w.Author {
		switch {
		case a.Family != "":
			m.Authors = append(m.Authors, reference.Author{First: a.Given, Last: a.Family})
		case a.Name != "":
			m.Authors = append(m.Authors, reference.Author{Last: a.Name, Org: true})
		}
	}
	for _, d := range []crossrefDate{w.PublishedPrint, w.PublishedOnline, w.Issued} {
		if pd := d.date(); !pd.IsZero() {
			m.Published = pd
			break
		}
	}
	switch w.Type {
	case "book", "monograph", "edited-book", "reference-book":
		m.Kind = reference.KindBook
		m.Container = ""
		for _, isbn := range w.ISBN {
			if n := reference.NormalizeISBN(isbn); n != "" {
				m.ISBN = n
				break
			}
		}
	}
	return m
}
