package source

import (
	"strconv"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// authorPositionScore rates where the queried first author appears in a
// candidate's author list. A cited first author who is only the fourth
// author of the candidate is most likely a different work.
func authorPositionScore(surname string, authors []reference.Author) float64 {
	if surname == "" {
		return 0.5
	}
	want := reference.NormalizeSurname(surname)
	for i, a := range authors {
		if reference.NormalizeSurname(a.Last) != want {
			continue
		}
		switch {
		case len(authors) == 1:
			return 1.0
		case i == 0:
			return 0.9
		case i <= 2:
			return 0.7
		default:
			return 0.3
		}
	}
	return 0.1
}

// yearScore rates the distance between the queried and candidate year.
func yearScore(year string, got reference.PublicationDate) float64 {
	want := reference.ParseYear(year)
	if want == 0 || got.Year == 0 {
		return 0.5
	}
	switch d := want - got.Year; {
	case d == 0:
		return 1.0
	case d == 1 || d == -1:
		return 0.6 // online-first versus print year
	default:
		return 0
	}
}

// searchQuality scores a fuzzy search hit against an author-year query.
// Identifier lookups skip this and report 1.
func searchQuality(q Query, m reference.Metadata) float64 {
	first := ""
	if len(q.Authors) > 0 {
		first = q.Authors[0]
	}
	score := authorPositionScore(first, m.Authors) * yearScore(q.Year, m.Published)
	// Co-author agreement for two-author citations.
	if len(q.Authors) > 1 && !q.EtAl && len(m.Authors) > 1 {
		if reference.NormalizeSurname(q.Authors[1]) == reference.NormalizeSurname(m.Authors[1].Last) {
			score = min(1, score+0.1)
		} else {
			score *= 0.8
		}
	}
	return score
}

// bestMatch returns the candidate with the highest search quality, with
// its Confidence set. ok is false when no candidate scores above zero.
func bestMatch(q Query, candidates []reference.Metadata) (reference.Metadata, bool) {
	var best reference.Metadata
	bestScore := 0.0
	for _, c := range candidates {
		if s := searchQuality(q, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore == 0 {
		return reference.Metadata{}, false
	}
	best.Confidence = bestScore
	return best, true
}

// searchTerms renders q for free-text search endpoints.
func searchTerms(q Query) string {
	parts := append([]string(nil), q.Authors...)
	if q.CaseName != "" {
		parts = append(parts, q.CaseName)
	}
	if q.Year != "" {
		parts = append(parts, q.Year)
	}
	return strings.Join(parts, " ")
}

// atoi parses a leading integer, returning 0 when there is none.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }
