package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// csvHeader is the column layout of CSV exports.
var csvHeader = []string{
	"key", "kind", "authors", "year", "title", "container", "publisher",
	"volume", "issue", "pages", "doi", "isbn", "pmid", "url", "engine", "confidence",
}

// WriteCSV writes entries as CSV with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		m := e.Metadata
		names := make([]string, 0, len(m.Authors))
		for _, a := range m.Authors {
			names = append(names, a.Inverted())
		}
		year := ""
		if m.Published.Year > 0 {
			year = m.Published.YearString()
		}
		row := []string{
			e.Key, string(m.Kind), strings.Join(names, "; "), year, m.DisplayTitle(),
			m.Container, m.Publisher, m.Volume, m.Issue, m.Pages, m.DOI, m.ISBN,
			m.PMID, m.URL, m.Engine, strconv.FormatFloat(m.Confidence, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
