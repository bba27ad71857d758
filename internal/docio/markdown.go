package docio

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matsen/citeweave/internal/document"
)

// ParseMarkdown builds a document from markdown. Blank lines separate
// paragraphs and "#" lines become headings. Emphasis, strong and code
// spans become run attributes with their delimiters removed; links and
// everything else stay literal so URLs remain citable.
func ParseMarkdown(text string) *document.Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paras []document.Paragraph
	for _, block := range strings.Split(text, document.ParagraphSeparator) {
		var body []string
		flush := func() {
			if len(body) > 0 {
				paras = append(paras, document.Paragraph{
					Kind: document.KindBody,
					Runs: parseInline(strings.Join(body, "\n")),
				})
				body = nil
			}
		}
		for _, line := range strings.Split(block, "\n") {
			if title, ok := heading(line); ok {
				flush()
				paras = append(paras, document.Paragraph{
					Kind: document.KindHeading,
					Runs: parseInline(title),
				})
				continue
			}
			if strings.TrimSpace(line) != "" {
				body = append(body, line)
			}
		}
		flush()
	}
	return document.New(paras)
}

// heading recognizes ATX headings ("## Title").
func heading(line string) (string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return "", false
	}
	title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line[level:]), "#"))
	return title, title != ""
}

// parseInline splits s into runs at `code`, **strong** and *emphasis* or
// _emphasis_ spans. Unpaired delimiters are kept literally.
func parseInline(s string) []document.Run {
	var runs []document.Run
	var plain strings.Builder
	emit := func(text string, attrs document.Attrs) {
		if plain.Len() > 0 {
			runs = append(runs, document.Run{Text: plain.String()})
			plain.Reset()
		}
		if text != "" {
			runs = append(runs, document.Run{Text: text, Attrs: attrs})
		}
	}

	for i := 0; i < len(s); {
		if n := urlLength(s[i:]); n > 0 {
			plain.WriteString(s[i : i+n])
			i += n
			continue
		}
		var delim string
		var attrs document.Attrs
		switch {
		case s[i] == '`':
			delim, attrs = "`", document.Attrs{Code: true}
		case strings.HasPrefix(s[i:], "**"):
			delim, attrs = "**", document.Attrs{Bold: true}
		case s[i] == '*':
			delim, attrs = "*", document.Attrs{Italic: true}
		case s[i] == '_' && !wordBefore(s, i):
			delim, attrs = "_", document.Attrs{Italic: true}
		}
		if delim != "" {
			start := i + len(delim)
			if end := closing(s, start, delim); end > start && s[start] != ' ' && s[end-1] != ' ' {
				emit(s[start:end], attrs)
				i = end + len(delim)
				continue
			}
		}
		plain.WriteByte(s[i])
		i++
	}
	emit("", document.Attrs{})
	return runs
}

// closing finds the delimiter that ends a span opened at start. An
// underscore only closes before a non-word character.
func closing(s string, start int, delim string) int {
	for j := start; j < len(s); j++ {
		if s[j] == '\n' && j+1 < len(s) && s[j+1] == '\n' {
			return -1
		}
		if !strings.HasPrefix(s[j:], delim) {
			continue
		}
		if delim == "*" && strings.HasPrefix(s[j:], "**") {
			j++
			continue
		}
		if delim == "_" && j+1 < len(s) && isWord(s[j+1:]) {
			continue
		}
		return j
	}
	return -1
}

func wordBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// urlLength returns the length of a bare URL at the start of s.
func urlLength(s string) int {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return 0
	}
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return i
	}
	return len(s)
}
