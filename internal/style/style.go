// Package style renders resolved references in the supported citation
// styles. Formatted text marks italics with single asterisks, which the
// assembler turns into italic runs.
package style

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/matsen/citeweave/internal/reference"
)

// ErrFormattingIncomplete marks output rendered from a record that lacks
// a field the style needs.
var ErrFormattingIncomplete = errors.New("formatting incomplete")

// ErrUnknownStyle is returned by Lookup for an unregistered name.
var ErrUnknownStyle = errors.New("unknown style")

// Mode is how a style places citations in the text.
type Mode int

const (
	AuthorDate Mode = iota // parenthetical citation plus reference list
	Footnote               // note mark plus numbered note
)

func (m Mode) String() string {
	if m == Footnote {
		return "footnote"
	}
	return "author-date"
}

// Cite is one occurrence of a work in the text.
type Cite struct {
	Metadata  reference.Metadata
	Page      string // pinpoint page or range, "" if none
	Narrative bool   // Coleman (1988) rather than (Coleman, 1988)
	Raw       string // original marker text
}

// Style formats citations. The bool results report completeness: false
// means a field the style needs was missing and a fallback was used.
type Style interface {
	Name() string
	Title() string
	Mode() Mode
	// InText is the parenthetical for author-date styles and the full
	// note for footnote styles.
	InText(c Cite) (string, bool)
	// Bibliography is the reference list entry, "" for styles without one.
	Bibliography(m reference.Metadata) (string, bool)
	// Short is the subsequent-note form, "" for styles without one.
	Short(c Cite) (string, bool)
	SortKey(m reference.Metadata) string
	// SectionTitle heads the reference list, "" when there is none.
	SectionTitle() string
}

// Repeater is implemented by styles with an "ibid." form for a citation
// that immediately repeats the previous one.
type Repeater interface {
	Ibid(page string) string
}

// Registry maps style names and aliases to styles.
type Registry struct {
	styles  map[string]Style
	aliases map[string]string
}

// NewRegistry returns a registry with every built-in style.
func NewRegistry() *Registry {
	r := &Registry{styles: make(map[string]Style), aliases: make(map[string]string)}
	for _, s := range []Style{APA{}, MLA{}, ChicagoAuthorDate{}, Harvard{}, ChicagoNotes{}, Bluebook{}} {
		r.Add(s)
	}
	r.Alias("apa", "apa7")
	r.Alias("mla", "mla9")
	r.Alias("chicago", "chicago-nb")
	r.Alias("chicago-notes", "chicago-nb")
	r.Alias("chicago-author-date", "chicago-ad")
	return r
}

// Add registers s under its name.
func (r *Registry) Add(s Style) { r.styles[s.Name()] = s }

// Alias makes alias resolve to the style registered as name.
func (r *Registry) Alias(alias, name string) { r.aliases[alias] = name }

// Lookup finds a style by name or alias, ignoring case.
func (r *Registry) Lookup(name string) (Style, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	if s, ok := r.styles[key]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownStyle, name, strings.Join(r.Names(), ", "))
}

// Names returns the registered style names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.styles))
	for n := range r.styles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Styles returns the registered styles sorted by name.
func (r *Registry) Styles() []Style {
	out := make([]Style, 0, len(r.styles))
	for _, n := range r.Names() {
		out = append(out, r.styles[n])
	}
	return out
}

var defaultRegistry = NewRegistry()

// Lookup finds a built-in style.
func Lookup(name string) (Style, error) { return defaultRegistry.Lookup(name) }

// Names lists the built-in styles.
func Names() []string { return defaultRegistry.Names() }
