package document

import (
	"strconv"
	"strings"
)

// Markdown renders the document as markdown. Footnote reference marks
// become "[^n]" and note paragraphs become "[^n]: body" definitions.
func (d *Document) Markdown() string {
	var b strings.Builder
	for i, p := range d.paras {
		if i > 0 {
			b.WriteString(ParagraphSeparator)
		}
		switch p.Kind {
		case KindHeading:
			b.WriteString("## ")
		case KindNote:
			b.WriteString("[^" + strconv.Itoa(p.Note) + "]: ")
		}
		for _, r := range p.Runs {
			b.WriteString(renderRun(r))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func renderRun(r Run) string {
	if r.Attrs.Note > 0 {
		return "[^" + strconv.Itoa(r.Attrs.Note) + "]"
	}
	text := r.Text
	if text == "" {
		return ""
	}
	if r.Attrs.Code {
		return "`" + text + "`"
	}
	if r.Attrs.Italic {
		text = "*" + text + "*"
	}
	if r.Attrs.Bold {
		text = "**" + text + "**"
	}
	if r.Attrs.Link != "" {
		text = "[" + text + "](" + r.Attrs.Link + ")"
	}
	return text
}

// NoteMark returns the run used for an in-text footnote reference.
func NoteMark(n int) Run {
	return Run{Text: "[" + strconv.Itoa(n) + "]", Attrs: Attrs{Note: n}}
}

// ParseInline splits formatter output into runs, turning "*text*" spans
// into italic runs. An unpaired asterisk is kept literally.
func ParseInline(s string) []Run {
	var runs []Run
	for s != "" {
		open := strings.IndexByte(s, '*')
		if open < 0 {
			break
		}
		closing := strings.IndexByte(s[open+1:], '*')
		if closing < 0 {
			break
		}
		closing += open + 1
		if open > 0 {
			runs = append(runs, Run{Text: s[:open]})
		}
		if closing > open+1 {
			runs = append(runs, Run{Text: s[open+1 : closing], Attrs: Attrs{Italic: true}})
		}
		s = s[closing+1:]
	}
	if s != "" {
		runs = append(runs, Run{Text: s})
	}
	return runs
}

// StripInline removes italic markers, returning the plain text form.
func StripInline(s string) string {
	var b strings.Builder
	for _, r := range ParseInline(s) {
		b.WriteString(r.Text)
	}
	return b.String()
}
