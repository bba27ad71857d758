// Package reference defines the canonical bibliographic record produced by
// resolution and the identifier normalization shared across the pipeline.
package reference

import "time"

// Kind is the citation kind assigned by classification and carried by
// resolved metadata.
type Kind string

const (
	KindJournal    Kind = "journal"
	KindBook       Kind = "book"
	KindLegalCase  Kind = "legal_case"
	KindNewspaper  Kind = "newspaper"
	KindWebpage    Kind = "webpage"
	KindUnresolved Kind = "unresolved"
)

// Kinds lists every citation kind in a stable order.
var Kinds = []Kind{KindJournal, KindBook, KindLegalCase, KindNewspaper, KindWebpage, KindUnresolved}

// ValidKind reports whether k is one of the known kinds.
func ValidKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// EngineUnresolved is the engine name carried by placeholder records.
const EngineUnresolved = "unresolved"

// Metadata is the canonical record for one real-world work.
type Metadata struct {
	Kind Kind `json:"kind"`

	// Descriptive fields
	Title     string          `json:"title,omitempty"`
	Authors   []Author        `json:"authors,omitempty"`
	Container string          `json:"container,omitempty"` // Journal, newspaper, or website
	Publisher string          `json:"publisher,omitempty"`
	Place     string          `json:"place,omitempty"`
	Published PublicationDate `json:"published"`
	Volume    string          `json:"volume,omitempty"`
	Issue     string          `json:"issue,omitempty"`
	Pages     string          `json:"pages,omitempty"`
	Edition   string          `json:"edition,omitempty"`

	// Identifiers
	DOI     string `json:"doi,omitempty"`
	ISBN    string `json:"isbn,omitempty"`
	PMID    string `json:"pmid,omitempty"`
	ArXivID string `json:"arxiv_id,omitempty"`
	URL     string `json:"url,omitempty"`

	// Legal case fields
	CaseName string `json:"case_name,omitempty"`
	Reporter string `json:"reporter,omitempty"` // e.g. "388 U.S. 1"
	Court    string `json:"court,omitempty"`

	// Provenance
	Engine      string    `json:"engine"`
	Confidence  float64   `json:"confidence"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// PublicationDate represents a publication date with optional month and day.
type PublicationDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"` // 1-12, 0 if unknown
	Day   int `json:"day,omitempty"`   // 1-31, 0 if unknown
}

// IsZero reports whether no year is known.
func (d PublicationDate) IsZero() bool { return d.Year == 0 }

// Unresolved returns the placeholder record for a marker that no source
// could resolve. The original marker text is kept as the title-less raw
// source so downstream stages can fall back to it.
func Unresolved(raw string) Metadata {
	return Metadata{
		Kind:       KindUnresolved,
		Engine:     EngineUnresolved,
		Confidence: 0,
		URL:        rawURL(raw),
	}
}

func rawURL(raw string) string {
	if len(raw) > 8 && (raw[:7] == "http://" || raw[:8] == "https://") {
		return raw
	}
	return ""
}

// IsUnresolved reports whether m is a placeholder.
func (m Metadata) IsUnresolved() bool {
	return m.Engine == EngineUnresolved || m.Engine == ""
}

// HasStrongID reports whether m carries a DOI, ISBN, or PMID.
func (m Metadata) HasStrongID() bool {
	return m.DOI != "" || m.ISBN != "" || m.PMID != ""
}

// IsEmpty reports whether m carries nothing a formatter could use.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.CaseName == "" && len(m.Authors) == 0 &&
		m.DOI == "" && m.ISBN == "" && m.PMID == "" && m.URL == ""
}

// FirstAuthorSurname returns the surname of the first author, or "".
func (m Metadata) FirstAuthorSurname() string {
	if len(m.Authors) == 0 {
		return ""
	}
	return m.Authors[0].Last
}

// DisplayTitle returns the case name for legal cases and the title otherwise.
func (m Metadata) DisplayTitle() string {
	if m.Kind == KindLegalCase && m.CaseName != "" {
		return m.CaseName
	}
	if m.Title == "" {
		return m.CaseName
	}
	return m.Title
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Authors != nil {
		out.Authors = append([]Author(nil), m.Authors...)
	}
	return out
}
