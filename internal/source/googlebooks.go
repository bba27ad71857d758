package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// GoogleBooksBaseURL is the Google Books API.
const GoogleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooks resolves ISBNs and author searches against Google Books.
type GoogleBooks struct {
	c *client
}

// NewGoogleBooks creates a Google Books source.
func NewGoogleBooks(opts ...Option) *GoogleBooks {
	return &GoogleBooks{c: newClient("googlebooks", GoogleBooksBaseURL, 5, opts)}
}

func (s *GoogleBooks) Name() string { return "googlebooks" }
func (s *GoogleBooks) Cost() Cost   { return CostFree }

type googleVolume struct {
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		CanonicalVolumeLink string `json:"canonicalVolumeLink"`
	} `json:"volumeInfo"`
}

// Lookup searches volumes by isbn: or inauthor: terms.
func (s *GoogleBooks) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	params := url.Values{}
	switch {
	case q.ISBN != "":
		params.Set("q", "isbn:"+q.ISBN)
	case len(q.Authors) > 0:
		terms := make([]string, 0, len(q.Authors))
		for _, a := range q.Authors {
			terms = append(terms, "inauthor:"+a)
		}
		params.Set("q", strings.Join(terms, "+"))
		params.Set("maxResults", "10")
	default:
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	if s.c.apiKey != "" {
		params.Set("key", s.c.apiKey)
	}

	var resp struct {
		TotalItems int            `json:"totalItems"`
		Items      []googleVolume `json:"items"`
	}
	if err := s.c.getJSON(ctx, "/volumes", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	if len(resp.Items) == 0 {
		return reference.Metadata{}, ErrNotFound
	}

	if q.ISBN != "" {
		m := resp.Items[0].metadata()
		m.ISBN = q.ISBN
		m.Confidence = 1
		return m, nil
	}
	candidates := make([]reference.Metadata, 0, len(resp.Items))
	for _, v := range resp.Items {
		candidates = append(candidates, v.metadata())
	}
	m, ok := bestMatch(q, candidates)
	if !ok {
		return reference.Metadata{}, ErrNotFound
	}
	return m, nil
}

func (v googleVolume) metadata() reference.Metadata {
	info := v.VolumeInfo
	m := reference.Metadata{
		Kind:        reference.KindBook,
		Title:       info.Title,
		Authors:     reference.ParseAuthorNames(info.Authors),
		Publisher:   info.Publisher,
		Published:   reference.ParseDate(info.PublishedDate),
		URL:         info.CanonicalVolumeLink,
		Engine:      "googlebooks",
		RetrievedAt: time.Now().UTC(),
	}
	if info.Subtitle != "" {
		m.Title += ": " + info.Subtitle
	}
	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" || (m.ISBN == "" && id.Type == "ISBN_10") {
			m.ISBN = reference.NormalizeISBN(id.Identifier)
		}
	}
	return m
}
