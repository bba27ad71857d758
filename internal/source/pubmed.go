package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// PubMedBaseURL is the NCBI E-utilities endpoint.
const PubMedBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed resolves PMIDs and author-year searches through E-utilities.
type PubMed struct {
	c *client
}

// NewPubMed creates a PubMed source. NCBI allows 3 requests per second
// without a key and 10 with one.
func NewPubMed(opts ...Option) *PubMed {
	c := newClient("pubmed", PubMedBaseURL, 3, opts)
	if c.apiKey != "" && c.limiter.Limit() < 10 {
		WithRateLimit(10)(c)
	}
	return &PubMed{c: c}
}

func (s *PubMed) Name() string { return "pubmed" }
func (s *PubMed) Cost() Cost   { return CostFree }

type pubmedSummary struct {
	UID             string `json:"uid"`
	Title           string `json:"title"`
	PubDate         string `json:"pubdate"`
	FullJournalName string `json:"fulljournalname"`
	Source          string `json:"source"`
	Volume          string `json:"volume"`
	Issue           string `json:"issue"`
	Pages           string `json:"pages"`
	Authors         []struct {
		Name     string `json:"name"`
		AuthType string `json:"authtype"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// Lookup fetches the summary for a PMID, searching first when the query
// only has authors and a year.
func (s *PubMed) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if q.PMID != "" {
		m, err := s.summary(ctx, q.PMID)
		if err != nil {
			return reference.Metadata{}, err
		}
		m.Confidence = 1
		return m, nil
	}
	if len(q.Authors) == 0 || q.Year == "" {
		return reference.Metadata{}, ErrUnsupportedQuery
	}

	terms := make([]string, 0, len(q.Authors)+1)
	for _, a := range q.Authors {
		terms = append(terms, a+"[au]")
	}
	terms = append(terms, q.Year+"[dp]")

	params := s.params()
	params.Set("db", "pubmed")
	params.Set("retmode", "json")
	params.Set("retmax", "5")
	params.Set("term", strings.Join(terms, " AND "))

	var search struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := s.c.getJSON(ctx, "/esearch.fcgi", params, &search); err != nil {
		return reference.Metadata{}, err
	}

	var candidates []reference.Metadata
	for _, id := range search.ESearchResult.IDList {
		m, err := s.summary(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return reference.Metadata{}, err
		}
		candidates = append(candidates, m)
	}
	m, ok := bestMatch(q, candidates)
	if !ok {
		return reference.Metadata{}, ErrNotFound
	}
	return m, nil
}

func (s *PubMed) summary(ctx context.Context, pmid string) (reference.Metadata, error) {
	params := s.params()
	params.Set("db", "pubmed")
	params.Set("retmode", "json")
	params.Set("id", pmid)

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := s.c.getJSON(ctx, "/esummary.fcgi", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	raw, ok := resp.Result[pmid]
	if !ok {
		return reference.Metadata{}, fmt.Errorf("pubmed: %w: PMID %s", ErrNotFound, pmid)
	}
	var sum pubmedSummary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return reference.Metadata{}, fmt.Errorf("pubmed: %w: %v", ErrInvalidResponse, err)
	}
	// esummary reports unknown IDs as an entry carrying only an error.
	if sum.Title == "" {
		return reference.Metadata{}, fmt.Errorf("pubmed: %w: PMID %s", ErrNotFound, pmid)
	}
	return sum.metadata(pmid), nil
}

func (s *PubMed) params() url.Values {
	p := url.Values{}
	if s.c.apiKey != "" {
		p.Set("api_key", s.c.apiKey)
	}
	return p
}

func (sum pubmedSummary) metadata(pmid string) reference.Metadata {
	m := reference.Metadata{
		Kind:        reference.KindJournal,
		Title:       strings.TrimSuffix(sum.Title, "."),
		Container:   sum.FullJournalName,
		Volume:      sum.Volume,
		Issue:       sum.Issue,
		Pages:       expandPageRange(sum.Pages),
		PMID:        pmid,
		Published:   reference.ParseDate(sum.PubDate),
		Engine:      "pubmed",
		RetrievedAt: time.Now().UTC(),
	}
	if m.Container == "" {
		m.Container = sum.Source
	}
	for _, a := range sum.Authors {
		if a.AuthType != "" && a.AuthType != "Author" {
			continue
		}
		m.Authors = append(m.Authors, reference.ParseAuthorName(a.Name))
	}
	for _, id := range sum.ArticleIDs {
		if id.IDType == "doi" {
			m.DOI = reference.NormalizeDOI(id.Value)
		}
	}
	return m
}

// expandPageRange turns MEDLINE abbreviated ranges ("123-9") into full
// ranges ("123–129").
func expandPageRange(p string) string {
	first, last, ok := strings.Cut(p, "-")
	if !ok {
		return p
	}
	if atoi(first) > 0 && len(last) < len(first) && atoi(last) > 0 {
		last = first[:len(first)-len(last)] + last
	}
	return first + "–" + last
}
