package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// OpenLibraryBaseURL is the Open Library API.
const OpenLibraryBaseURL = "https://openlibrary.org"

// OpenLibrary resolves ISBNs and author-year book searches.
type OpenLibrary struct {
	c *client
}

// NewOpenLibrary creates an Open Library source.
func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{c: newClient("openlibrary", OpenLibraryBaseURL, 5, opts)}
}

func (s *OpenLibrary) Name() string { return "openlibrary" }
func (s *OpenLibrary) Cost() Cost   { return CostFree }

type openLibraryBook struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	PublishDate string `json:"publish_date"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishPlaces []struct {
		Name string `json:"name"`
	} `json:"publish_places"`
	URL string `json:"url"`
}

type openLibraryDoc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
}

// Lookup queries the books API by ISBN, or search.json by author.
func (s *OpenLibrary) Lookup(ctx context.Context, q Query) (reference.Metadata, error) {
	if q.ISBN != "" {
		key := "ISBN:" + q.ISBN
		params := url.Values{}
		params.Set("bibkeys", key)
		params.Set("format", "json")
		params.Set("jscmd", "data")

		var resp map[string]openLibraryBook
		if err := s.c.getJSON(ctx, "/api/books", params, &resp); err != nil {
			return reference.Metadata{}, err
		}
		book, ok := resp[key]
		if !ok {
			return reference.Metadata{}, fmt.Errorf("openlibrary: %w: ISBN %s", ErrNotFound, q.ISBN)
		}
		m := book.metadata()
		m.ISBN = q.ISBN
		m.Confidence = 1
		return m, nil
	}

	if len(q.Authors) == 0 {
		return reference.Metadata{}, ErrUnsupportedQuery
	}
	params := url.Values{}
	params.Set("author", strings.Join(q.Authors, " "))
	params.Set("limit", "10")
	params.Set("fields", "title,author_name,first_publish_year,publisher,isbn")

	var resp struct {
		Docs []openLibraryDoc `json:"docs"`
	}
	if err := s.c.getJSON(ctx, "/search.json", params, &resp); err != nil {
		return reference.Metadata{}, err
	}
	candidates := make([]reference.Metadata, 0, len(resp.Docs))
	for _, d := range resp.Docs {
		candidates = append(candidates, d.metadata())
	}
	m, ok := bestMatch(q, candidates)
	if !ok {
		return reference.Metadata{}, ErrNotFound
	}
	return m, nil
}

func (b openLibraryBook) metadata() reference.Metadata {
	m := reference.Metadata{
		Kind:        reference.KindBook,
		Title:       b.Title,
		Published:   parseLooseDate(b.PublishDate),
		URL:         b.URL,
		Engine:      "openlibrary",
		RetrievedAt: time.Now().UTC(),
	}
	if b.Subtitle != "" {
		m.Title += ": " + b.Subtitle
	}
	for _, a := range b.Authors {
		m.Authors = append(m.Authors, reference.ParseAuthorName(a.Name))
	}
	if len(b.Publishers) > 0 {
		m.Publisher = b.Publishers[0].Name
	}
	if len(b.PublishPlaces) > 0 {
		m.Place = b.PublishPlaces[0].Name
	}
	return m
}

func (d openLibraryDoc) metadata() reference.Metadata {
	m := reference.Metadata{
		Kind:        reference.KindBook,
		Title:       d.Title,
		Published:   reference.PublicationDate{Year: d.FirstPublishYear},
		Engine:      "openlibrary",
		RetrievedAt: time.Now().UTC(),
	}
	m.Authors = reference.ParseAuthorNames(d.AuthorName)
	if len(d.Publisher) > 0 {
		m.Publisher = d.Publisher[0]
	}
	for _, isbn := range d.ISBN {
		if n := reference.NormalizeISBN(isbn); n != "" {
			m.ISBN = n
			break
		}
	}
	return m
}

// parseLooseDate reads dates like "March 1999", "1999", or "1999-03-02".
func parseLooseDate(s string) reference.PublicationDate {
	if d := reference.ParseDate(s); !d.IsZero() {
		return d
	}
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' }) {
		if y := reference.ParseYear(f); y > 0 && len(f) == 4 {
			return reference.PublicationDate{Year: y}
		}
	}
	return reference.PublicationDate{}
}
