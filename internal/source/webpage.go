package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/reference"
)

// Webpage scrapes bibliographic metadata from the page at a query URL:
// Highwire citation_* tags, Open Graph, Dublin Core, JSON-LD, and the
// document title, in decreasing order of trust.
type Webpage struct {
	c *client
}

// NewWebpage creates the page scraper. WithBaseURL has no effect.
func NewWebpage(opts ...Option) *Webpage {
	return &Webpage{c: newClient("webpage", "", 5, opts)}
}

func (s *Webpage) Name() string { return "webpage" }
func (s *Webpage) Cost() Cost   { return CostFree }

// agencyAuthors maps government hosts to the organization credited as
// author when a page names no person.
var agencyAuthors = map[string]string{
	"cdc.gov":          "Centers for Disease Control and Prevention",
	"nih.gov":          "National Institutes of Health",
	"fda.gov":          "U.S. Food and Drug Administration",
	"who.int":          "World Health Organization",
	"epa.gov":          "U.S. Environmental Protection Agency",
	"census.gov":       "U.S. Census Bureau",
	"bls.gov":          "U.S. Bureau of Labor Statistics",
	"noaa.gov":         "National Oceanic and Atmospheric Administration",
	"nasa.gov":         "National Aeronautics and Space Administration",
	"gov.uk":           "GOV.UK",
	"europa.eu":        "European Union",
	"supremecourt.gov": "Supreme Court of the United States",
}

// pageMeta collects the tags found in a page.
type pageMeta struct {
	meta   map[string][]string // lower-cased name/property to contents
	title  string
	ldJSON []string
}

func (p *pageMeta) first(keys ...string) string {
	for _, k := range keys {
		if vs := p.meta[k]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}

// Lookup fetches q.URL and extracts what it can.
func (s *Webpage) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if q.URL == "" {
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	body, err := s.c.get(ctx, q.URL, "text/html,application/xhtml+xml")
	if err != nil {
		return reference.Metadata{}, err
	}
	m, err := ParsePage(q.URL, body)
	if err != nil {
		return reference.Metadata{}, err
	}
	return m, nil
}

// ParsePage extracts metadata from an HTML document fetched from pageURL.
func ParsePage(pageURL string, body []byte) (reference.Metadata, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return reference.Metadata{}, fmt.Errorf("webpage: %w: %v", ErrInvalidResponse, err)
	}
	p := &pageMeta{meta: make(map[string][]string)}
	p.walk(doc)

	host := reference.Host(pageURL)
	m := reference.Metadata{
		Kind:        reference.KindWebpage,
		URL:         pageURL,
		Engine:      "webpage",
		RetrievedAt: time.Now().UTC(),
	}

	switch {
	case p.first("citation_title") != "":
		m.Confidence = 1
		m.Title = p.first("citation_title")
		m.Authors = reference.ParseAuthorNames(p.meta["citation_author"])
		m.Container = p.first("citation_journal_title", "citation_conference_title")
		m.Publisher = p.first("citation_publisher")
		m.Volume = p.first("citation_volume")
		m.Issue = p.first("citation_issue")
		m.DOI = reference.NormalizeDOI(p.first("citation_doi"))
		m.Published = reference.ParseDate(p.first("citation_publication_date", "citation_date", "citation_online_date"))
		if fp, lp := p.first("citation_firstpage"), p.first("citation_lastpage"); fp != "" && lp != "" {
			m.Pages = fp + "–" + lp
		} else {
			m.Pages = fp
		}
	case p.first("og:title", "dc.title") != "" || len(p.ldJSON) > 0:
		m.Confidence = 0.8
		m.Title = p.first("og:title", "dc.title")
		m.Container = p.first("og:site_name")
		m.Authors = reference.ParseAuthorNames(authorList(p.first("author", "article:author", "dc.creator")))
		m.Published = reference.ParseDate(p.first("article:published_time", "dc.date", "date"))
		p.applyLinkedData(&m)
	case p.title != "":
		m.Confidence = 0.5
		m.Title = p.title
	default:
		return reference.Metadata{}, fmt.Errorf("webpage: %w: no metadata at %s", ErrNotFound, pageURL)
	}

	if m.Title == "" {
		m.Title = p.title
	}
	if m.Container == "" {
		m.Container = host
	}
	if len(m.Authors) == 0 {
		for domain, agency := range agencyAuthors {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				m.Authors = []reference.Author{{Last: agency, Org: true}}
				break
			}
		}
	}

	switch {
	case m.DOI != "" || p.first("citation_journal_title") != "":
		m.Kind = reference.KindJournal
	case classify.IsNewspaperHost(host):
		m.Kind = reference.KindNewspaper
	case classify.IsLegalHost(host):
		m.Kind = reference.KindLegalCase
		m.CaseName = m.Title
	}
	return m, nil
}

func (p *pageMeta) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			key := strings.ToLower(getAttr(n, "name"))
			if key == "" {
				key = strings.ToLower(getAttr(n, "property"))
			}
			if key != "" {
				p.meta[key] = append(p.meta[key], getAttr(n, "content"))
			}
		case "title":
			if p.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				p.title = strings.Join(strings.Fields(n.FirstChild.Data), " ")
			}
		case "script":
			if getAttr(n, "type") == "application/ld+json" && n.FirstChild != nil {
				p.ldJSON = append(p.ldJSON, n.FirstChild.Data)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

// linkedData is the subset of schema.org Article fields used.
type linkedData struct {
	Type          any             `json:"@type"`
	Headline      string          `json:"headline"`
	Name          string          `json:"name"`
	DatePublished string          `json:"datePublished"`
	Author        json.RawMessage `json:"author"`
	Publisher     struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

func (p *pageMeta) applyLinkedData(m *reference.Metadata) {
	for _, raw := range p.ldJSON {
		var ld linkedData
		if err := json.Unmarshal([]byte(raw), &ld); err != nil {
			continue
		}
		if m.Title == "" {
			m.Title = firstNonEmpty(ld.Headline, ld.Name)
		}
		if m.Published.IsZero() {
			m.Published = reference.ParseDate(ld.DatePublished)
		}
		if ld.Publisher.Name != "" && m.Container == "" {
			m.Container = ld.Publisher.Name
		}
		if len(m.Authors) == 0 {
			m.Authors = reference.ParseAuthorNames(ldAuthors(ld.Author))
		}
		if t, ok := ld.Type.(string); ok && t == "NewsArticle" {
			m.Kind = reference.KindNewspaper
		}
	}
}

// ldAuthors accepts a string, a Person object, or a list of either.
func ldAuthors(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var name string
	if json.Unmarshal(raw, &name) == nil {
		return authorList(name)
	}
	var person struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &person) == nil && person.Name != "" {
		return []string{person.Name}
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return nil
	}
	var out []string
	for _, item := range list {
		out = append(out, ldAuthors(item)...)
	}
	return out
}

// authorList splits a byline such as "By Jane Doe and John Roe".
func authorList(byline string) []string {
	byline = strings.TrimSpace(byline)
	if byline == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(byline), "by ") {
		byline = byline[3:]
	}
	byline = strings.ReplaceAll(byline, " and ", ",")
	var out []string
	for _, part := range strings.Split(byline, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
