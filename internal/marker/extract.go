package marker

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/reference"
)

// contextRadius is the number of bytes of surrounding text kept on each
// side of a marker.
const contextRadius = 80

// Extract returns the markers in text in document order. The sequence is
// lazy: text is scanned one paragraph at a time as the caller ranges over
// it, and every range starts a fresh scan.
func Extract(text string) iter.Seq[Marker] {
	return Scan(text, nil)
}

// Collect extracts every marker in text.
func Collect(text string) []Marker {
	return slices.Collect(Extract(text))
}

// Scan is Extract with a callback invoked for each candidate discarded by
// overlap resolution. onConflict may be nil.
func Scan(text string, onConflict func(Conflict)) iter.Seq[Marker] {
	return func(yield func(Marker) bool) {
		offset := 0
		for offset <= len(text) {
			end := strings.Index(text[offset:], document.ParagraphSeparator)
			if end < 0 {
				end = len(text)
			} else {
				end += offset
			}
			for _, m := range scanBlock(text, offset, end, onConflict) {
				if !yield(m) {
					return
				}
			}
			offset = end + len(document.ParagraphSeparator)
		}
	}
}

// scanBlock extracts the markers of text[start:end] with absolute spans.
func scanBlock(text string, start, end int, onConflict func(Conflict)) []Marker {
	block := text[start:end]
	if strings.TrimSpace(block) == "" {
		return nil
	}

	candidates := identifierCandidates(block)
	candidates = append(candidates, parentheticalCandidates(block)...)
	for i := range candidates {
		candidates[i].Span.Start += start
		candidates[i].Span.End += start
	}

	kept := resolveOverlaps(candidates, onConflict)
	for i := range kept {
		kept[i] = encloseBare(text, kept[i])
		kept[i].Context = snippet(text, kept[i].Span)
	}
	return kept
}

// identifierCandidates finds DOI, PMID, arXiv, ISBN and URL markers in
// block. Offsets are relative to block.
func identifierCandidates(block string) []Marker {
	var out []Marker

	full := make(map[int]bool)
	for _, m := range doiPattern.FindAllStringSubmatchIndex(block, -1) {
		doi := cleanIdentifier(block[m[2]:m[3]])
		mk := Marker{Hint: HintDOI, Identifier: doi}
		mk.Span = document.Span{Start: m[0], End: m[2] + len(doi)}
		if !reference.ValidDOI(reference.NormalizeDOI(doi)) {
			mk.Hint, mk.Identifier = HintURL, block[mk.Span.Start:mk.Span.End]
		}
		mk.Raw = block[mk.Span.Start:mk.Span.End]
		full[m[2]] = true
		out = append(out, mk)
	}
	for _, m := range truncatedDOIPattern.FindAllStringIndex(block, -1) {
		doiStart := strings.Index(block[m[0]:m[1]], "10.") + m[0]
		if full[doiStart] {
			continue
		}
		raw := block[m[0]:m[1]]
		out = append(out, Marker{Raw: raw, Hint: HintURL, Identifier: raw, Span: document.Span{Start: m[0], End: m[1]}})
	}

	for _, m := range pmidPattern.FindAllStringSubmatchIndex(block, -1) {
		out = append(out, Marker{
			Raw: block[m[0]:m[1]], Hint: HintPMID, Identifier: block[m[2]:m[3]],
			Span: document.Span{Start: m[0], End: m[1]},
		})
	}

	for _, m := range arxivPattern.FindAllStringSubmatchIndex(block, -1) {
		out = append(out, Marker{
			Raw: block[m[0]:m[1]], Hint: HintArXiv, Identifier: block[m[2]:m[3]],
			Span: document.Span{Start: m[0], End: m[1]},
		})
	}

	for _, m := range isbnPattern.FindAllStringSubmatchIndex(block, -1) {
		raw := block[m[0]:m[1]]
		mk := Marker{Raw: raw, Hint: HintISBN, Span: document.Span{Start: m[0], End: m[1]}}
		if isbn := reference.NormalizeISBN(block[m[2]:m[3]]); isbn != "" {
			mk.Identifier = isbn
		} else {
			mk.Hint, mk.Identifier = HintURL, raw
		}
		out = append(out, mk)
	}

	for _, m := range urlPattern.FindAllStringIndex(block, -1) {
		u := cleanIdentifier(block[m[0]:m[1]])
		if u == "" {
			continue
		}
		hint, id := classifyURL(u)
		out = append(out, Marker{
			Raw: u, Hint: hint, Identifier: id, URL: u,
			Span: document.Span{Start: m[0], End: m[0] + len(u)},
		})
	}
	return out
}

// resolveOverlaps keeps the most specific candidate wherever spans
// overlap: lower hint priority first, then the longer span, then the
// earlier start. The result is in document order.
func resolveOverlaps(candidates []Marker, onConflict func(Conflict)) []Marker {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b Marker) int {
		if pa, pb := a.Hint.priority(), b.Hint.priority(); pa != pb {
			return pa - pb
		}
		if la, lb := a.Span.Len(), b.Span.Len(); la != lb {
			return lb - la
		}
		return a.Span.Start - b.Span.Start
	})

	var kept []Marker
	for _, c := range ranked {
		winner := -1
		for i, k := range kept {
			if k.Span.Overlaps(c.Span) {
				winner = i
				break
			}
		}
		if winner >= 0 {
			if onConflict != nil && kept[winner].Span != c.Span {
				onConflict(Conflict{Kept: kept[winner], Dropped: c})
			}
			continue
		}
		kept = append(kept, c)
	}

	slices.SortFunc(kept, func(a, b Marker) int {
		if a.Span.Start != b.Span.Start {
			return a.Span.Start - b.Span.Start
		}
		return a.Span.End - b.Span.End
	})
	return kept
}

// encloseBare widens an identifier marker that is the sole content of a
// pair of parentheses so the parentheses are replaced with it.
func encloseBare(text string, m Marker) Marker {
	if m.Hint == HintParenthetical {
		return m
	}
	s, e := m.Span.Start, m.Span.End
	if s > 0 && e < len(text) && text[s-1] == '(' && text[e] == ')' {
		m.Span = document.Span{Start: s - 1, End: e + 1}
		m.Raw = text[s-1 : e+1]
	}
	return m
}

// snippet returns the whitespace-collapsed text around span.
func snippet(text string, span document.Span) string {
	from := max(span.Start-contextRadius, 0)
	to := min(span.End+contextRadius, len(text))
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}
