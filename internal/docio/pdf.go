package docio

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ExtractText extracts the text layer of the first maxPages pages of a
// PDF, or all pages when maxPages is not positive. Lines are reflowed
// into paragraphs: hard line breaks become spaces, words hyphenated
// across a break are rejoined, and blank lines and page ends separate
// paragraphs.
func ExtractText(r io.ReaderAt, size int64, maxPages int) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}

	if maxPages <= 0 || maxPages > pdfReader.NumPage() {
		maxPages = pdfReader.NumPage()
	}

	var pages []string
	for i := 1; i <= maxPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if paras := reflow(text); len(paras) > 0 {
			pages = append(pages, strings.Join(paras, "\n\n"))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// reflow joins the lines of a page's text layer into paragraphs.
func reflow(text string) []string {
	var paras []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			paras = append(paras, cur.String())
			cur.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			flush()
			continue
		}
		if cur.Len() > 0 {
			prev := cur.String()
			if strings.HasSuffix(prev, "-") && startsLower(line) {
				cur.Reset()
				cur.WriteString(strings.TrimSuffix(prev, "-"))
			} else {
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(line)
	}
	flush()
	return paras
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}
