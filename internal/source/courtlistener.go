package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// CourtListenerBaseURL is the CourtListener REST API.
const CourtListenerBaseURL = "https://www.courtlistener.com/api/rest/v4"

// clusterPath pulls the opinion cluster ID out of a CourtListener URL.
var clusterPath = regexp.MustCompile(`/opinion/(\d+)/`)

// CourtListener resolves legal cases by case name or CourtListener URL.
type CourtListener struct {
	c *client
}

// NewCourtListener creates a CourtListener source. Searches work without
// a token at a lower rate.
func NewCourtListener(opts ...Option) *CourtListener {
	c := newClient("courtlistener", CourtListenerBaseURL, 1, opts)
	if c.apiKey != "" {
		c.header.Set("Authorization", "Token "+c.apiKey)
	}
	return &CourtListener{c: c}
}

func (s *CourtListener) Name() string { return "courtlistener" }
func (s *CourtListener) Cost() Cost   { return CostFree }

type courtCase struct {
	CaseName     string   `json:"caseName"`
	CaseNameAlt  string   `json:"case_name"`
	Court        string   `json:"court"`
	DateFiled    string   `json:"dateFiled"`
	DateFiledAlt string   `json:"date_filed"`
	Citation     []string `json:"citation"`
	AbsoluteURL  string   `json:"absolute_url"`
	Citations    []struct {
		Volume   int    `json:"volume"`
		Reporter string `json:"reporter"`
		Page     string `json:"page"`
	} `json:"citations"`
}

// Lookup fetches a cluster by URL or searches opinions by case name.
func (s *CourtListener) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if q.URL != "" {
		if m := clusterPath.FindStringSubmatch(q.URL); m != nil {
			var cc courtCase
			if err := s.c.getJSON(ctx, "/clusters/"+m[1]+"/", nil, &cc); err != nil {
				return reference.Metadata{}, err
			}
			md := cc.metadata()
			md.URL = q.URL
			md.Confidence = 1
			return md, nil
		}
	}

	terms := q.CaseName
	if terms == "" {
		terms = searchTerms(q)
	}
	if terms == "" {
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	params := url.Values{}
	params.Set("type", "o")
	params.Set("q", terms)
	if y := reference.ParseYear(q.Year); y > 0 {
		params.Set("filed_after", itoa(y)+"-01-01")
		params.Set("filed_before", itoa(y)+"-12-31")
	}

	var resp struct {
		Results []courtCase `json:"results"`
	}
	if err := s.c.getJSON(ctx, "/search/", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	if len(resp.Results) == 0 {
		return reference.Metadata{}, ErrNotFound
	}

	best, bestScore := reference.Metadata{}, 0.0
	for _, r := range resp.Results {
		m := r.metadata()
		score := caseNameScore(q, m.CaseName) * yearScore(q.Year, m.Published)
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if bestScore == 0 {
		return reference.Metadata{}, ErrNotFound
	}
	best.Confidence = bestScore
	return best, nil
}

// caseNameScore compares the queried case name, or the cited party, with
// a result's case name.
func caseNameScore(q Query, got string) float64 {
	norm := reference.NormalizeTitle(got)
	if q.CaseName != "" {
		if norm == reference.NormalizeTitle(q.CaseName) {
			return 1
		}
		return 0.5
	}
	for _, a := range q.Authors {
		if strings.Contains(norm, reference.NormalizeSurname(a)) {
			return 0.8
		}
	}
	return 0.2
}

func (cc courtCase) metadata() reference.Metadata {
	name := cc.CaseName
	if name == "" {
		name = cc.CaseNameAlt
	}
	filed := cc.DateFiled
	if filed == "" {
		filed = cc.DateFiledAlt
	}
	m := reference.Metadata{
		Kind:        reference.KindLegalCase,
		CaseName:    name,
		Title:       name,
		Court:       cc.Court,
		Published:   reference.ParseDate(filed),
		Engine:      "courtlistener",
		RetrievedAt: time.Now().UTC(),
	}
	switch {
	case len(cc.Citation) > 0:
		m.Reporter = cc.Citation[0]
	case len(cc.Citations) > 0:
		c := cc.Citations[0]
		m.Reporter = itoa(c.Volume) + " " + c.Reporter + " " + c.Page
	}
	if cc.AbsoluteURL != "" {
		m.URL = "https://www.courtlistener.com" + cc.AbsoluteURL
	}
	return m
}
