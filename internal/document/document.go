// Package document models a text document as an arena of immutable
// paragraphs and formatting runs addressed by byte offset.
//
// Offsets refer to the string returned by Text, in which runs are
// concatenated and paragraphs are separated by a blank line.
package document

import (
	"strconv"
	"strings"
)

// ParagraphSeparator joins paragraphs in Text.
const ParagraphSeparator = "\n\n"

// Attrs are the formatting attributes of a run. They are carried through
// rewrites unchanged.
type Attrs struct {
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Code   bool   `json:"code,omitempty"`
	Link   string `json:"link,omitempty"`
	Note   int    `json:"note,omitempty"` // footnote reference mark
}

// Run is a contiguous stretch of text sharing one set of attributes.
type Run struct {
	Text  string `json:"text"`
	Attrs Attrs  `json:"attrs"`
}

// ParagraphKind distinguishes body text from generated sections.
type ParagraphKind string

const (
	KindBody    ParagraphKind = "body"
	KindHeading ParagraphKind = "heading"
	KindNote    ParagraphKind = "note"  // footnote body
	KindEntry   ParagraphKind = "entry" // bibliography entry
)

// Paragraph is an ordered list of runs.
type Paragraph struct {
	Kind ParagraphKind `json:"kind"`
	Runs []Run         `json:"runs"`
	Note int           `json:"note,omitempty"` // number for KindNote
}

// Text returns the concatenated run text.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// Span is a half-open byte range [Start, End) into Document.Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Less orders spans by start, then end.
func (s Span) Less(o Span) bool {
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	return s.End < o.End
}

func (s Span) String() string {
	return "[" + strconv.Itoa(s.Start) + "," + strconv.Itoa(s.End) + ")"
}

// Document is an immutable sequence of paragraphs. Operations that change
// content return a new Document and never modify the receiver.
type Document struct {
	paras  []Paragraph
	starts []int // offset of each paragraph in Text
	text   string
}

// New builds a document from paragraphs. The slices are copied.
func New(paras []Paragraph) *Document {
	d := &Document{paras: make([]Paragraph, len(paras))}
	for i, p := range paras {
		p.Runs = append([]Run(nil), p.Runs...)
		if p.Kind == "" {
			p.Kind = KindBody
		}
		d.paras[i] = p
	}
	d.index()
	return d
}

// FromText builds a document with one single-run paragraph per
// blank-line separated block of text.
func FromText(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []Paragraph
	for _, block := range strings.Split(text, ParagraphSeparator) {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		paras = append(paras, Paragraph{Kind: KindBody, Runs: []Run{{Text: block}}})
	}
	return New(paras)
}

func (d *Document) index() {
	d.starts = make([]int, len(d.paras))
	var b strings.Builder
	for i, p := range d.paras {
		if i > 0 {
			b.WriteString(ParagraphSeparator)
		}
		d.starts[i] = b.Len()
		b.WriteString(p.Text())
	}
	d.text = b.String()
}

// Text returns the plain text that offsets refer to.
func (d *Document) Text() string { return d.text }

// Len returns the number of paragraphs.
func (d *Document) Len() int { return len(d.paras) }

// Paragraph returns a copy of paragraph i.
func (d *Document) Paragraph(i int) Paragraph {
	p := d.paras[i]
	p.Runs = append([]Run(nil), p.Runs...)
	return p
}

// Paragraphs returns a copy of all paragraphs.
func (d *Document) Paragraphs() []Paragraph {
	out := make([]Paragraph, len(d.paras))
	for i := range d.paras {
		out[i] = d.Paragraph(i)
	}
	return out
}

// ParagraphAt returns the index of the paragraph containing offset, or -1
// if offset falls in a separator or outside the document.
func (d *Document) ParagraphAt(offset int) int {
	for i := len(d.starts) - 1; i >= 0; i-- {
		if offset >= d.starts[i] {
			if offset <= d.starts[i]+len(d.paras[i].Text()) {
				return i
			}
			return -1
		}
	}
	return -1
}

// Slice returns the text covered by s.
func (d *Document) Slice(s Span) string {
	if s.Start < 0 || s.End > len(d.text) || s.Start > s.End {
		return ""
	}
	return d.text[s.Start:s.End]
}

// Append returns a new document with paras added at the end.
func (d *Document) Append(paras ...Paragraph) *Document {
	all := append(d.Paragraphs(), paras...)
	return New(all)
}
