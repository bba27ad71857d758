package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/matsen/citeweave/internal/reference"
)

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Add records an entry in the index.
func (idx *BibTeXIndex) Add(e Entry) {
	idx.Keys[e.Key] = true
	if e.Metadata.DOI != "" {
		idx.DOIs[reference.NormalizeDOI(e.Metadata.DOI)] = e.Key
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[reference.NormalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[key]
}

// ParseBibTeXFile reads every entry of a .bib file. A missing file yields
// no entries.
func ParseBibTeXFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseBibTeX(f)
}

// IndexBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist or is empty.
func IndexBibTeXFile(path string) (*BibTeXIndex, error) {
	entries, err := ParseBibTeXFile(path)
	if err != nil {
		return nil, err
	}
	idx := NewBibTeXIndex()
	for _, e := range entries {
		idx.Add(e)
	}
	return idx, nil
}

// ParseBibTeX parses BibTeX source. @comment, @preamble and @string
// blocks are skipped; string macros are not expanded.
func ParseBibTeX(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &bibParser{src: string(data)}
	var entries []Entry
	for {
		typ, ok := p.nextEntry()
		if !ok {
			break
		}
		switch typ {
		case "comment", "preamble", "string":
			if err := p.skipBlock(); err != nil {
				return entries, err
			}
			continue
		}
		key, fields, err := p.entryBody()
		if err != nil {
			return entries, fmt.Errorf("entry %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Metadata: fieldsToMetadata(typ, fields)})
	}
	return entries, nil
}

type bibParser struct {
	src string
	pos int
}

// nextEntry advances past the next '@type' and returns the lower-cased type.
func (p *bibParser) nextEntry() (string, bool) {
	i := strings.IndexByte(p.src[p.pos:], '@')
	if i < 0 {
		return "", false
	}
	p.pos += i + 1
	start := p.pos
	for p.pos < len(p.src) && (unicode.IsLetter(rune(p.src[p.pos]))) {
		p.pos++
	}
	return strings.ToLower(p.src[start:p.pos]), true
}

func (p *bibParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *bibParser) skipBlock() error {
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '{' && p.src[p.pos] != '(') {
		return nil
	}
	_, err := p.braced()
	return err
}

// braced reads a balanced {...} or (...) group and returns its contents.
func (p *bibParser) braced() (string, error) {
	open := p.src[p.pos]
	closer := byte('}')
	if open == '(' {
		closer = ')'
	}
	depth := 0
	start := p.pos + 1
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				p.pos++
				return p.src[start : p.pos-1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced %q", open)
}

func (p *bibParser) entryBody() (string, map[string]string, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return "", nil, fmt.Errorf("expected '{' at offset %d", p.pos)
	}
	body, err := p.braced()
	if err != nil {
		return "", nil, err
	}
	key, rest, _ := strings.Cut(body, ",")
	key = strings.TrimSpace(key)
	fields, err := parseFields(rest)
	return key, fields, err
}

// parseFields parses name = value pairs separated by commas.
func parseFields(s string) (map[string]string, error) {
	fields := make(map[string]string)
	i := 0
	for {
		for i < len(s) && (unicode.IsSpace(rune(s[i])) || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			return fields, nil
		}
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return fields, fmt.Errorf("field without value near %q", s[i:])
		}
		name := strings.ToLower(strings.TrimSpace(s[i : i+eq]))
		i += eq + 1
		for i < len(s) && unicode.IsSpace(rune(s[i])) {
			i++
		}
		if i >= len(s) {
			return fields, fmt.Errorf("missing value for %q", name)
		}

		var value string
		switch s[i] {
		case '{':
			depth, start := 0, i+1
			for ; i < len(s); i++ {
				if s[i] == '{' {
					depth++
				} else if s[i] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if i >= len(s) {
				return fields, fmt.Errorf("unbalanced braces in %q", name)
			}
			value = s[start:i]
			i++
		case '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return fields, fmt.Errorf("unterminated quote in %q", name)
			}
			value = s[i+1 : i+1+end]
			i += end + 2
		default:
			end := strings.IndexByte(s[i:], ',')
			if end < 0 {
				end = len(s) - i
			}
			value = strings.TrimSpace(s[i : i+end])
			i += end
		}
		fields[name] = cleanValue(value)
	}
}

// cleanValue removes protective braces, undoes LaTeX escapes, and
// collapses whitespace.
func cleanValue(v string) string {
	v = strings.NewReplacer(`\&`, "&", `\%`, "%", `\$`, "$", `\#`, "#", `\_`, "_",
		`\{`, "\x00", `\}`, "\x01", "--", "–").Replace(v)
	v = strings.NewReplacer("{", "", "}", "", "\x00", "{", "\x01", "}").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}

func fieldsToMetadata(typ string, f map[string]string) reference.Metadata {
	m := reference.Metadata{
		Kind:      reference.KindJournal,
		Title:     f["title"],
		Publisher: f["publisher"],
		Place:     f["address"],
		Volume:    f["volume"],
		Issue:     f["number"],
		Pages:     f["pages"],
		Edition:   f["edition"],
		DOI:       reference.NormalizeDOI(f["doi"]),
		ISBN:      reference.NormalizeISBN(f["isbn"]),
		PMID:      f["pmid"],
		URL:       f["url"],
		Engine:    "library",
	}
	m.Container = firstField(f, "journal", "journaltitle", "booktitle", "howpublished")
	m.Published = reference.ParseDate(f["date"])
	if m.Published.IsZero() {
		m.Published = reference.PublicationDate{Year: reference.ParseYear(f["year"])}
		if mo := reference.ParseDate(f["year"] + " " + f["month"]); mo.Month > 0 {
			m.Published.Month = mo.Month
		}
	}
	if strings.EqualFold(f["archiveprefix"], "arxiv") {
		m.ArXivID = reference.NormalizeArXiv(f["eprint"])
	}
	if authors := f["author"]; authors != "" {
		for _, name := range strings.Split(authors, " and ") {
			m.Authors = append(m.Authors, reference.ParseAuthorName(name))
		}
	} else if editors := f["editor"]; editors != "" {
		for _, name := range strings.Split(editors, " and ") {
			m.Authors = append(m.Authors, reference.ParseAuthorName(name))
		}
	}

	switch typ {
	case "book", "inbook", "incollection", "booklet", "manual":
		m.Kind = reference.KindBook
	case "jurisdiction", "legal", "case":
		m.Kind = reference.KindLegalCase
		m.CaseName = m.Title
		m.Court = f["court"]
		m.Reporter = f["reporter"]
	case "online", "misc", "webpage", "electronic":
		if m.URL != "" && m.Container == "" {
			m.Kind = reference.KindWebpage
		}
	}
	return m
}

func firstField(f map[string]string, names ...string) string {
	for _, n := range names {
		if v := f[n]; v != "" {
			return v
		}
	}
	return ""
}

// AppendToBibFile appends BibTeX content to a file.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
