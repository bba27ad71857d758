package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// ListTitleMaxLen truncates titles in list output.
const ListTitleMaxLen = 60

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	return encodeJSON(os.Stdout, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthorShort formats an author as "Last F" (abbreviated first name).
func formatAuthorShort(a reference.Author) string {
	if a.First != "" && !a.Org {
		return a.Last + " " + string([]rune(a.First)[0])
	}
	return a.Last
}

// formatAuthorsShort formats authors with abbreviation and "et al." for more than maxCount.
func formatAuthorsShort(authors []reference.Author, maxCount int) string {
	if len(authors) == 0 {
		return ""
	}

	var names []string
	for i, a := range authors {
		if i >= maxCount {
			names = append(names, "et al.")
			break
		}
		names = append(names, formatAuthorShort(a))
	}
	return strings.Join(names, ", ")
}

// formatRecordHuman prints one resolved record as a short block.
func formatRecordHuman(m reference.Metadata) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s, %.2f via %s]\n", truncateString(m.DisplayTitle(), ListTitleMaxLen), m.Kind, m.Confidence, m.Engine))
	if authors := formatAuthorsShort(m.Authors, 3); authors != "" {
		sb.WriteString(fmt.Sprintf("  Authors: %s\n", authors))
	}
	if m.Published.Year > 0 {
		sb.WriteString(fmt.Sprintf("  Year: %d\n", m.Published.Year))
	}
	if m.Container != "" {
		sb.WriteString(fmt.Sprintf("  In: %s\n", m.Container))
	}
	for _, id := range []struct{ label, value string }{
		{"DOI", m.DOI}, {"PMID", m.PMID}, {"arXiv", m.ArXivID}, {"ISBN", m.ISBN}, {"URL", m.URL},
	} {
		if id.value != "" {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", id.label, id.value))
		}
	}
	if missing := m.MissingFields(); len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("  Missing: %s\n", strings.Join(missing, ", ")))
	}
	return sb.String()
}
