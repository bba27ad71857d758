package document

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOverlap is returned when two replacement spans share bytes.
	ErrOverlap = errors.New("overlapping replacement spans")
	// ErrOutOfRange is returned for empty spans, spans outside the text,
	// and spans that cross a paragraph boundary.
	ErrOutOfRange = errors.New("replacement span out of range")
)

// Replacement substitutes the text under Span with Runs. Replacement runs
// pick up the emphasis of the text they replace.
type Replacement struct {
	Span Span
	Runs []Run
}

// CheckOverlaps sorts spans and returns ErrOverlap naming the first
// overlapping pair.
func CheckOverlaps(spans []Span) error {
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return fmt.Errorf("%w: %s and %s", ErrOverlap, sorted[i-1], sorted[i])
		}
	}
	return nil
}

// Rewrite returns a new document with every replacement applied. Text and
// runs outside the replaced spans are carried over unchanged. The
// receiver is not modified, and on error no document is returned.
func (d *Document) Rewrite(reps []Replacement) (*Document, error) {
	sorted := append([]Replacement(nil), reps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Span.Less(sorted[j].Span) })

	spans := make([]Span, len(sorted))
	for i, r := range sorted {
		spans[i] = r.Span
	}
	if err := CheckOverlaps(spans); err != nil {
		return nil, err
	}

	byPara := make(map[int][]Replacement)
	for _, r := range sorted {
		if r.Span.Len() <= 0 || r.Span.Start < 0 || r.Span.End > len(d.text) {
			return nil, fmt.Errorf("%w: %s", ErrOutOfRange, r.Span)
		}
		p := d.ParagraphAt(r.Span.Start)
		if p < 0 || r.Span.End > d.starts[p]+len(d.paras[p].Text()) {
			return nil, fmt.Errorf("%w: %s crosses a paragraph boundary", ErrOutOfRange, r.Span)
		}
		local := r
		local.Span = Span{Start: r.Span.Start - d.starts[p], End: r.Span.End - d.starts[p]}
		byPara[p] = append(byPara[p], local)
	}

	paras := d.Paragraphs()
	for i, local := range byPara {
		paras[i].Runs = rewriteRuns(paras[i].Runs, local)
	}
	return New(paras), nil
}

type piece struct {
	start int
	run   Run
}

// rewriteRuns applies sorted, paragraph-local replacements to runs.
func rewriteRuns(runs []Run, reps []Replacement) []Run {
	cuts := make(map[int]bool, 2*len(reps))
	for _, r := range reps {
		cuts[r.Span.Start] = true
		cuts[r.Span.End] = true
	}

	// Split runs at every replacement boundary.
	var pieces []piece
	pos := 0
	for _, run := range runs {
		begin := 0
		for i := 1; i < len(run.Text); i++ {
			if cuts[pos+i] {
				pieces = append(pieces, piece{start: pos + begin, run: Run{Text: run.Text[begin:i], Attrs: run.Attrs}})
				begin = i
			}
		}
		if begin < len(run.Text) {
			pieces = append(pieces, piece{start: pos + begin, run: Run{Text: run.Text[begin:], Attrs: run.Attrs}})
		}
		pos += len(run.Text)
	}

	out := make([]Run, 0, len(pieces)+len(reps))
	k := 0
	for _, pc := range pieces {
		for k < len(reps) && pc.start >= reps[k].Span.End {
			k++
		}
		if k < len(reps) && pc.start >= reps[k].Span.Start {
			if pc.start == reps[k].Span.Start {
				for _, r := range reps[k].Runs {
					out = append(out, Run{Text: r.Text, Attrs: r.Attrs.inherit(pc.run.Attrs)})
				}
			}
			continue
		}
		out = append(out, pc.run)
	}
	return out
}

// inherit merges the emphasis of base into a. Links, code and note marks
// belong to the replaced text and are not inherited.
func (a Attrs) inherit(base Attrs) Attrs {
	a.Bold = a.Bold || base.Bold
	a.Italic = a.Italic || base.Italic
	return a
}
