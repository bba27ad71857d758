package style

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/citeweave/internal/dedupe"
	"github.com/matsen/citeweave/internal/document"
)

// Role is which form of a citation was used.
type Role int

const (
	RoleFull  Role = iota // first citation of a work
	RoleShort             // later citation
	RoleIbid              // immediate repeat in a footnote style
)

func (r Role) String() string {
	switch r {
	case RoleShort:
		return "short"
	case RoleIbid:
		return "ibid"
	}
	return "full"
}

// Formatted is the rendered form of one occurrence.
type Formatted struct {
	Work       int // index into the deduplicated works
	Occurrence dedupe.Occurrence
	Span       document.Span
	// Text is the in-text citation for author-date styles and the note
	// body for footnote styles. Italics are marked with asterisks.
	Text       string
	Role       Role
	Complete   bool
	Unresolved bool
	// Note is the footnote number of the work, assigned in order of first
	// citation. Every occurrence of a work shares it. Zero for
	// author-date styles.
	Note       int
}

// Err returns an error wrapping ErrFormattingIncomplete when f was
// rendered from incomplete metadata.
func (f Formatted) Err() error {
	if f.Complete {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrFormattingIncomplete, f.Occurrence.Raw)
}

// Formatter renders occurrences in document order. It remembers which
// works were already cited and which was cited last, so it must see the
// occurrences in order and is not safe for concurrent use.
type Formatter struct {
	style Style
	seen  map[int]bool
	notes map[int]int
	last  int
}

// NewFormatter returns a formatter for s.
func NewFormatter(s Style) *Formatter {
	return &Formatter{style: s, seen: make(map[int]bool), notes: make(map[int]int), last: -1}
}

// Format renders occurrence o of work w, whose index is id.
func (f *Formatter) Format(id int, w dedupe.Work, o dedupe.Occurrence) Formatted {
	out := Formatted{Work: id, Occurrence: o, Span: o.Span}
	if f.style.Mode() == Footnote {
		if _, ok := f.notes[id]; !ok {
			f.notes[id] = len(f.notes) + 1
		}
		out.Note = f.notes[id]
	}
	if w.IsUnresolved() {
		out.Text = unresolvedText(o, f.style.Mode())
		out.Unresolved = true
		f.last = -1
		return out
	}

	c := Cite{Metadata: w.Metadata, Page: o.Page, Narrative: o.Narrative, Raw: o.Raw}
	switch {
	case !f.seen[id]:
		out.Text, out.Complete = f.style.InText(c)
		out.Role = RoleFull
	case f.last == id && f.style.Mode() == Footnote:
		if r, ok := f.style.(Repeater); ok {
			out.Text, out.Complete = r.Ibid(o.Page), complete(w.Metadata)
			out.Role = RoleIbid
			break
		}
		fallthrough
	default:
		out.Text, out.Complete = f.style.Short(c)
		out.Role = RoleShort
		if out.Text == "" {
			out.Text, out.Complete = f.style.InText(c)
		}
	}
	f.seen[id] = true
	f.last = id
	return out
}

// unresolvedText keeps the original marker. A footnote body drops the
// parentheses the note mark replaces.
func unresolvedText(o dedupe.Occurrence, mode Mode) string {
	if mode != Footnote {
		return o.Raw
	}
	raw := strings.TrimSpace(o.Raw)
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		raw = raw[1 : len(raw)-1]
	}
	return terminate(raw)
}

// FormatAll renders every occurrence of works in document order.
func FormatAll(s Style, works []dedupe.Work) []Formatted {
	type ref struct {
		id int
		o  dedupe.Occurrence
	}
	var refs []ref
	for id, w := range works {
		for _, o := range w.Occurrences {
			refs = append(refs, ref{id: id, o: o})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].o.Span.Less(refs[j].o.Span) })

	f := NewFormatter(s)
	out := make([]Formatted, len(refs))
	for i, r := range refs {
		out[i] = f.Format(r.id, works[r.id], r.o)
	}
	return out
}
