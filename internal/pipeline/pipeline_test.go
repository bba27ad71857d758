package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/reference"
	"github.com/matsen/citeweave/internal/resolve"
	"github.com/matsen/citeweave/internal/source"
)

// The genai client's telemetry dependency starts a worker at init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const weakTiesWork = `{"message": {
	"DOI": "10.1086/226147", "type": "journal-article",
	"title": ["The Strength of Weak Ties"], "container-title": ["American Journal of Sociology"],
	"volume": "78", "issue": "6", "page": "1360-1380",
	"author": [{"given": "Mark", "family": "Granovetter"}],
	"published-print": {"date-parts": [[1973, 5]]}}}`

const weakTiesPage = `<html><head>
<title>The Strength of Weak Ties | AJS</title>
<meta name="citation_title" content="The Strength of Weak Ties">
<meta name="citation_author" content="Granovetter, Mark">
<meta name="citation_journal_title" content="American Journal of Sociology">
<meta name="citation_publication_date" content="1973/05">
<meta name="citation_doi" content="10.1086/226147">
</head><body>article</body></html>`

// crossrefServer serves the weak ties work and its landing page. The
// counter tracks requests for the work.
func crossrefServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/works/10.1086/226147":
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(weakTiesWork))
		case "/article":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(weakTiesPage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newPipeline(sources ...source.Source) *Pipeline {
	r := resolve.New(source.NewRegistry(sources...))
	return New(r, WithParallelism(4))
}

func TestRunGranovetter(t *testing.T) {
	srv, _ := crossrefServer(t)
	p := newPipeline(source.NewCrossref(source.WithBaseURL(srv.URL), source.WithRateLimit(1000)))

	doc := document.FromText("Weak ties bridge groups (https://doi.org/10.1086/226147).")
	res, err := p.Run(context.Background(), doc, "apa7")
	require.NoError(t, err)

	text := res.Document.Text()
	assert.True(t, strings.HasPrefix(text, "Weak ties bridge groups (Granovetter, 1973)."), text)
	assert.Contains(t, text, "References\n\nGranovetter, M. (1973).")

	require.Len(t, res.Report, 1)
	entry := res.Report[0]
	assert.Equal(t, "crossref", entry.Engine)
	assert.Equal(t, reference.KindJournal, entry.Kind)
	assert.InDelta(t, 1.0, entry.Confidence, 1e-9)
	assert.True(t, entry.Complete)
	assert.False(t, entry.Flagged)
	assert.NotEmpty(t, res.RunID)
}

func TestRunOffline(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()
	p := newPipeline(source.NewCrossref(source.WithBaseURL(down.URL), source.WithRateLimit(1000)))

	doc := document.FromText("Prior work (Smith, 2020) disagrees.")
	res, err := p.Run(context.Background(), doc, "apa7")
	require.NoError(t, err)

	assert.Equal(t, "Prior work (Smith, 2020) disagrees.", res.Document.Text())
	require.Len(t, res.Report, 1)
	entry := res.Report[0]
	assert.Equal(t, "(Smith, 2020)", entry.Original)
	assert.Equal(t, reference.KindUnresolved, entry.Kind)
	assert.Zero(t, entry.Confidence)
	assert.True(t, entry.Flagged)
	assert.False(t, entry.Complete)
}

func TestRunMergesDOIAndURL(t *testing.T) {
	srv, _ := crossrefServer(t)
	p := newPipeline(
		source.NewCrossref(source.WithBaseURL(srv.URL), source.WithRateLimit(1000)),
		source.NewWebpage(source.WithRateLimit(1000)),
	)

	doc := document.FromText("Weak ties (https://doi.org/10.1086/226147). The same article (" + srv.URL + "/article) again.")
	res, err := p.Run(context.Background(), doc, "apa7")
	require.NoError(t, err)

	require.Len(t, res.Works, 1)
	require.Len(t, res.Report, 2)
	for _, e := range res.Report {
		assert.Len(t, e.Positions, 2)
	}
	assert.Equal(t, "crossref", res.Works[0].Metadata.Engine)
	assert.Equal(t, 1, strings.Count(res.Document.Text(), "Granovetter, M. (1973)."))
}

func TestRunFootnotesAreDense(t *testing.T) {
	srv, _ := crossrefServer(t)
	p := newPipeline(source.NewCrossref(source.WithBaseURL(srv.URL), source.WithRateLimit(1000)))

	doc := document.FromText("First (https://doi.org/10.1086/226147). Unknown (Smith, 2020).\n\nAgain (https://doi.org/10.1086/226147).")
	res, err := p.Run(context.Background(), doc, "chicago")
	require.NoError(t, err)

	var notes []int
	for _, para := range res.Document.Paragraphs() {
		if para.Kind == document.KindNote {
			notes = append(notes, para.Note)
		}
	}
	assert.Equal(t, []int{1, 2}, notes)
	assert.Equal(t, []string{"full", "full", "short"}, roles(res.Report))
	assert.Equal(t, 1, res.Report[2].Note, "a repeat citation reuses its work's note")
	assert.Contains(t, res.Document.Markdown(), "First[^1]. Unknown[^2].\n\nAgain[^1].")
}

func TestRunIsIdempotentOnWarmCache(t *testing.T) {
	srv, hits := crossrefServer(t)
	p := newPipeline(source.NewCrossref(source.WithBaseURL(srv.URL), source.WithRateLimit(1000)))
	doc := document.FromText("Weak ties (https://doi.org/10.1086/226147) and (Smith, 2020).\n\nAgain (https://doi.org/10.1086/226147).")

	first, err := p.Run(context.Background(), doc, "harvard")
	require.NoError(t, err)
	calls := hits.Load()
	second, err := p.Run(context.Background(), doc, "harvard")
	require.NoError(t, err)

	assert.Equal(t, first.Document.Markdown(), second.Document.Markdown())
	if diff := cmp.Diff(first.Report, second.Report); diff != "" {
		t.Errorf("report changed on the second run (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, calls, hits.Load(), "resolved work should come from the cache")
}

func TestRunReportsEveryMarker(t *testing.T) {
	p := newPipeline()
	doc := document.FromText("A (Smith, 2020). B (Jones & Lee, 2019; Park, 2018). C https://example.com/x.\n\nD PMID: 31978945.")
	res, err := p.Run(context.Background(), doc, "mla9")
	require.NoError(t, err)

	cites, _ := p.Extract(doc)
	require.Len(t, res.Report, len(cites))
	for i, e := range res.Report {
		assert.Equal(t, cites[i].Raw, e.Original)
		assert.True(t, e.Flagged)
	}
}

func TestRunUnknownStyle(t *testing.T) {
	_, err := newPipeline().Run(context.Background(), document.FromText("x"), "vancouver")
	assert.Error(t, err)
}

type blockingSource struct{ calls atomic.Int32 }

func (b *blockingSource) Name() string      { return "crossref" }
func (b *blockingSource) Cost() source.Cost { return source.CostFree }
func (b *blockingSource) Lookup(ctx context.Context, _ source.Query) (reference.Metadata, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return reference.Metadata{}, ctx.Err()
}

func TestRunCancelled(t *testing.T) {
	p := newPipeline(&blockingSource{})
	doc := document.FromText("One (https://doi.org/10.1086/226147) and two (https://doi.org/10.1038/nature12373).")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	res, err := p.Run(ctx, doc, "apa7")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTopics(t *testing.T) {
	text := strings.Repeat("Religion shapes sexuality among young adults. Religion and sexuality in sociology. ", 3) +
		"Sociology of religion studies this."
	topics := Topics(text, 3)
	assert.Equal(t, []string{"religion", "sexuality", "sociology"}, topics)
	assert.Equal(t, "an academic document about religion, sexuality, sociology, shapes, young, adults", TopicContext(text))
	assert.Empty(t, TopicContext("too short"))
}

func roles(report []ReportEntry) []string {
	out := make([]string, len(report))
	for i, e := range report {
		out[i] = e.Role
	}
	return out
}
