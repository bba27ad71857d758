// Package assemble rewrites a document with formatted citations and
// appends its notes and reference list.
package assemble

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/citeweave/internal/dedupe"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/style"
)

// NotesHeading heads the footnote bodies.
const NotesHeading = "Notes"

// ErrAssemblyConflict marks two citations whose spans overlap.
var ErrAssemblyConflict = errors.New("assembly conflict")

// ConflictError names the overlapping citations.
type ConflictError struct {
	First, Second       document.Span
	FirstRaw, SecondRaw string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %q at %s overlaps %q at %s", ErrAssemblyConflict, e.FirstRaw, e.First, e.SecondRaw, e.Second)
}

func (e *ConflictError) Unwrap() error { return ErrAssemblyConflict }

// Assemble returns a new document in which every citation in cites is
// replaced by its formatted form. Footnote styles get note marks and a
// Notes section; styles with a reference list get one entry per resolved
// work in works. doc is not modified. On error no document is returned.
func Assemble(doc *document.Document, works []dedupe.Work, cites []style.Formatted, s style.Style) (*document.Document, error) {
	sorted := append([]style.Formatted(nil), cites...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Span.Less(sorted[j].Span) })
	if err := checkConflicts(sorted); err != nil {
		return nil, err
	}

	var (
		reps  []document.Replacement
		notes []document.Paragraph
		noted = make(map[int]bool)
	)
	for _, f := range sorted {
		if s.Mode() == style.Footnote {
			reps = append(reps, noteReplacement(doc, f, f.Note))
			if noted[f.Note] {
				continue // repeat citations reuse the work's note
			}
			noted[f.Note] = true
			notes = append(notes, document.Paragraph{
				Kind: document.KindNote,
				Note: f.Note,
				Runs: document.ParseInline(f.Text),
			})
			continue
		}
		if f.Unresolved {
			continue // original text stays
		}
		reps = append(reps, document.Replacement{Span: f.Span, Runs: document.ParseInline(inTextForm(f))})
	}

	out, err := doc.Rewrite(reps)
	if err != nil {
		if errors.Is(err, document.ErrOverlap) {
			return nil, fmt.Errorf("%w: %w", ErrAssemblyConflict, err)
		}
		return nil, fmt.Errorf("rewriting document: %w", err)
	}

	var tail []document.Paragraph
	if len(notes) > 0 {
		tail = append(tail, heading(NotesHeading))
		tail = append(tail, notes...)
	}
	if title := s.SectionTitle(); title != "" {
		if entries := Bibliography(works, s); len(entries) > 0 {
			tail = append(tail, heading(title))
			for _, e := range entries {
				tail = append(tail, document.Paragraph{Kind: document.KindEntry, Runs: document.ParseInline(e)})
			}
		}
	}
	if len(tail) == 0 {
		return out, nil
	}
	return out.Append(tail...), nil
}

// Bibliography returns the reference list entries of works. Footnote
// styles keep the order of first citation, which is the order of works;
// other styles use the style's sort order. Unresolved works have no entry.
func Bibliography(works []dedupe.Work, s style.Style) []string {
	type entry struct {
		key, text string
	}
	var entries []entry
	for _, w := range works {
		if w.IsUnresolved() {
			continue
		}
		text, _ := s.Bibliography(w.Metadata)
		if text == "" {
			continue
		}
		entries = append(entries, entry{key: s.SortKey(w.Metadata), text: text})
	}
	if s.Mode() != style.Footnote {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].key != entries[j].key {
				return entries[i].key < entries[j].key
			}
			return entries[i].text < entries[j].text
		})
	}
	out := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.text] {
			continue
		}
		seen[e.text] = true
		out = append(out, e.text)
	}
	return out
}

func checkConflicts(sorted []style.Formatted) error {
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if a.Span.Overlaps(b.Span) {
			return &ConflictError{First: a.Span, Second: b.Span, FirstRaw: a.Occurrence.Raw, SecondRaw: b.Occurrence.Raw}
		}
	}
	return nil
}

// inTextForm drops the outer parentheses of citations that sit inside a
// shared parenthetical list, where the list keeps its own.
func inTextForm(f style.Formatted) string {
	text := f.Text
	if f.Occurrence.Enclosed && strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		text = text[1 : len(text)-1]
	}
	return text
}

// noteReplacement puts note mark n where the citation was. A narrative
// citation keeps its author names in the sentence; a parenthetical one
// also takes the space before it.
func noteReplacement(doc *document.Document, f style.Formatted, n int) document.Replacement {
	span := f.Span
	o := f.Occurrence
	if o.Narrative {
		if i := strings.LastIndex(o.Raw, " ("); i > 0 {
			return document.Replacement{Span: span, Runs: []document.Run{{Text: o.Raw[:i]}, document.NoteMark(n)}}
		}
	}
	if !o.Enclosed && span.Start > 0 && doc.Slice(document.Span{Start: span.Start - 1, End: span.Start}) == " " {
		span.Start--
	}
	return document.Replacement{Span: span, Runs: []document.Run{document.NoteMark(n)}}
}

func heading(title string) document.Paragraph {
	return document.Paragraph{Kind: document.KindHeading, Runs: []document.Run{{Text: title}}}
}
