package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// OpenAlexBaseURL is the OpenAlex API.
const OpenAlexBaseURL = "https://api.openalex.org"

// OpenAlex resolves DOIs, arXiv preprints, and author-year searches.
type OpenAlex struct {
	c *client
}

// NewOpenAlex creates an OpenAlex source. The API key, when set, is sent
// as the mailto parameter.
func NewOpenAlex(opts ...Option) *OpenAlex {
	return &OpenAlex{c: newClient("openalex", OpenAlexBaseURL, 10, opts)}
}

func (s *OpenAlex) Name() string { return "openalex" }
func (s *OpenAlex) Cost() Cost   { return CostFree }

type openAlexWork struct {
	DOI             string `json:"doi"`
	Title           string `json:"title"`
	PublicationYear int    `json:"publication_year"`
	PublicationDate string `json:"publication_date"`
	Type            string `json:"type"`
	IDs             struct {
		PMID string `json:"pmid"`
	} `json:"ids"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Biblio struct {
		Volume    string `json:"volume"`
		Issue     string `json:"issue"`
		FirstPage string `json:"first_page"`
		LastPage  string `json:"last_page"`
	} `json:"biblio"`
}

// Lookup fetches by DOI (arXiv IDs map to their DataCite DOI) or searches.
func (s *OpenAlex) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	doi := q.DOI
	if doi == "" && q.ArXivID != "" {
		doi = "10.48550/arXiv." + q.ArXivID
	}
	if doi != "" {
		var w openAlexWork
		if err := s.c.getJSON(ctx, "/works/https://doi.org/"+doi, s.params(), &w); err != nil {
			return reference.Metadata{}, err
		}
		m := w.metadata()
		if q.ArXivID != "" {
			m.ArXivID = q.ArXivID
		}
		m.Confidence = 1
		return m, nil
	}

	if len(q.Authors) == 0 {
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	params := s.params()
	params.Set("search", searchTerms(Query{Authors: q.Authors, CaseName: q.CaseName}))
	if y := reference.ParseYear(q.Year); y > 0 {
		params.Set("filter", "publication_year:"+itoa(y-1)+"-"+itoa(y))
	}
	params.Set("per-page", "10")

	var resp struct {
		Results []openAlexWork `json:"results"`
	}
	if err := s.c.getJSON(ctx, "/works", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	candidates := make([]reference.Metadata, 0, len(resp.Results))
	for _, w := range resp.Results {
		candidates = append(candidates, w.metadata())
	}
	m, ok := bestMatch(q, candidates)
	if !ok {
		return reference.Metadata{}, ErrNotFound
	}
	return m, nil
}

func (s *OpenAlex) params() url.Values {
	p := url.Values{}
	if s.c.apiKey != "" {
		p.Set("mailto", s.c.apiKey)
	}
	return p
}

func (w openAlexWork) metadata() reference.Metadata {
	m := reference.Metadata{
		Kind:        reference.KindJournal,
		Title:       w.Title,
		Container:   w.PrimaryLocation.Source.DisplayName,
		Volume:      w.Biblio.Volume,
		Issue:       w.Biblio.Issue,
		DOI:         reference.NormalizeDOI(w.DOI),
		PMID:        reference.NormalizePMID(strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/")),
		Engine:      "openalex",
		RetrievedAt: time.Now().UTC(),
	}
	switch {
	case w.Biblio.FirstPage != "" && w.Biblio.LastPage != "" && w.Biblio.LastPage != w.Biblio.FirstPage:
		m.Pages = w.Biblio.FirstPage + "–" + w.Biblio.LastPage
	case w.Biblio.FirstPage != "":
		m.Pages = w.Biblio.FirstPage
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			m.Authors = append(m.Authors, reference.ParseAuthorName(a.Author.DisplayName))
		}
	}
	m.Published = reference.ParseDate(w.PublicationDate)
	if m.Published.IsZero() {
		m.Published.Year = w.PublicationYear
	}
	if w.Type == "book" {
		m.Kind = reference.KindBook
	}
	return m
}
