// Package docio reads documents from plain text, markdown and PDF files
// and renders rewritten documents back out.
package docio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matsen/citeweave/internal/document"
)

// Format is an input or output file format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ErrUnsupportedFormat is returned for file types that cannot be read or written.
var ErrUnsupportedFormat = errors.New("unsupported format")

// FormatOf picks the format from a file extension. Files without an
// extension are read as plain text.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadFile reads the document at path in the format its extension names.
func ReadFile(path string) (*document.Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	doc, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return doc, nil
}

// Read parses a document from r.
func Read(r io.Reader, format Format) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return document.FromText(string(data)), nil
	case FormatMarkdown:
		return ParseMarkdown(string(data)), nil
	case FormatPDF:
		text, err := ExtractText(bytes.NewReader(data), int64(len(data)), 0)
		if err != nil {
			return nil, err
		}
		return document.FromText(text), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Render writes doc in format. PDF output is not supported.
func Render(doc *document.Document, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return doc.Markdown(), nil
	case FormatText:
		return plainText(doc), nil
	default:
		return "", fmt.Errorf("%w: cannot write %s", ErrUnsupportedFormat, format)
	}
}

// WriteFile renders doc to path. A .pdf path is written as markdown
// next to it.
func WriteFile(path string, doc *document.Document) (string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return "", err
	}
	if format == FormatPDF {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".md"
		format = FormatMarkdown
	}
	out, err := Render(doc, format)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}
	return path, nil
}

// plainText renders note bodies as "[n] text" so they pair with the
// "[n]" marks left in the body.
func plainText(doc *document.Document) string {
	var b strings.Builder
	for i, p := range doc.Paragraphs() {
		if i > 0 {
			b.WriteString(document.ParagraphSeparator)
		}
		if p.Kind == document.KindNote {
			b.WriteString("[" + strconv.Itoa(p.Note) + "] ")
		}
		b.WriteString(p.Text())
	}
	b.WriteString("\n")
	return b.String()
}
