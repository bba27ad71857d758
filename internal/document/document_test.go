package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTextOffsets(t *testing.T) {
	doc := FromText("First paragraph.\n\n\nSecond one here.\r\n\r\nThird.")
	require.Equal(t, 3, doc.Len())
	assert.Equal(t, "First paragraph.\n\nSecond one here.\n\nThird.", doc.Text())

	second := doc.ParagraphAt(18)
	assert.Equal(t, 1, second)
	assert.Equal(t, -1, doc.ParagraphAt(17), "separator belongs to no paragraph")
	assert.Equal(t, "Second", doc.Slice(Span{Start: 18, End: 24}))
}

func TestRewritePreservesRuns(t *testing.T) {
	doc := New([]Paragraph{
		{Runs: []Run{
			{Text: "See "},
			{Text: "doi:10.1/x here", Attrs: Attrs{Bold: true}},
			{Text: " and more."},
		}},
		{Runs: []Run{{Text: "Untouched ", Attrs: Attrs{Italic: true}}, {Text: "paragraph."}}},
	})

	start := len("See ")
	out, err := doc.Rewrite([]Replacement{{
		Span: Span{Start: start, End: start + len("doi:10.1/x")},
		Runs: []Run{{Text: "(Doe, 2020)"}},
	}})
	require.NoError(t, err)

	assert.Equal(t, "See (Doe, 2020) here and more.\n\nUntouched paragraph.", out.Text())
	assert.Equal(t, []Run{
		{Text: "See "},
		{Text: "(Doe, 2020)", Attrs: Attrs{Bold: true}},
		{Text: " here", Attrs: Attrs{Bold: true}},
		{Text: " and more."},
	}, out.Paragraph(0).Runs)
	assert.Equal(t, doc.Paragraph(1), out.Paragraph(1))

	// The source document is unchanged.
	assert.Equal(t, "See doi:10.1/x here and more.\n\nUntouched paragraph.", doc.Text())
}

func TestRewriteAcrossRuns(t *testing.T) {
	doc := New([]Paragraph{{Runs: []Run{{Text: "ab"}, {Text: "cd", Attrs: Attrs{Italic: true}}, {Text: "ef"}}}})
	out, err := doc.Rewrite([]Replacement{{Span: Span{Start: 1, End: 5}, Runs: []Run{{Text: "X"}}}})
	require.NoError(t, err)
	assert.Equal(t, "aXf", out.Text())
	assert.Equal(t, []Run{{Text: "a"}, {Text: "X"}, {Text: "f"}}, out.Paragraph(0).Runs)
}

func TestRewriteMultiple(t *testing.T) {
	doc := FromText("A [x] B [y] C")
	out, err := doc.Rewrite([]Replacement{
		{Span: Span{Start: 8, End: 11}, Runs: []Run{NoteMark(2)}},
		{Span: Span{Start: 2, End: 5}, Runs: []Run{NoteMark(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A [1] B [2] C", out.Text())
	assert.Equal(t, "A [^1] B [^2] C\n", out.Markdown())
}

func TestRewriteErrors(t *testing.T) {
	doc := FromText("one two\n\nthree")

	_, err := doc.Rewrite([]Replacement{
		{Span: Span{Start: 0, End: 3}},
		{Span: Span{Start: 2, End: 5}},
	})
	assert.True(t, errors.Is(err, ErrOverlap))

	_, err = doc.Rewrite([]Replacement{{Span: Span{Start: 4, End: 12}}})
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = doc.Rewrite([]Replacement{{Span: Span{Start: 3, End: 3}}})
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestAppendAndMarkdown(t *testing.T) {
	doc := FromText("Body.")
	out := doc.Append(
		Paragraph{Kind: KindHeading, Runs: []Run{{Text: "References"}}},
		Paragraph{Kind: KindEntry, Runs: ParseInline("Doe, J. (2020). *Title*.")},
		Paragraph{Kind: KindNote, Note: 1, Runs: []Run{{Text: "Note body."}}},
	)
	assert.Equal(t, 1, doc.Len())
	assert.Equal(t, "Body.\n\n## References\n\nDoe, J. (2020). *Title*.\n\n[^1]: Note body.\n", out.Markdown())
	assert.Equal(t, "Body.\n\nReferences\n\nDoe, J. (2020). Title.\n\nNote body.", out.Text())
}

func TestParseInline(t *testing.T) {
	assert.Equal(t, []Run{{Text: "a "}, {Text: "b", Attrs: Attrs{Italic: true}}, {Text: " c"}}, ParseInline("a *b* c"))
	assert.Equal(t, []Run{{Text: "5 * 3"}}, ParseInline("5 * 3"))
	assert.Equal(t, "Title, 12", StripInline("*Title*, 12"))
}
