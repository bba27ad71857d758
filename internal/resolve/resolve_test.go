package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/reference"
	"github.com/matsen/citeweave/internal/source"
)

// The genai client's telemetry dependency starts a worker at init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeSource struct {
	name   string
	cost   source.Cost
	lookup func(ctx context.Context, q source.Query) (reference.Metadata, error)
	calls  atomic.Int32
}

func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) Cost() source.Cost { return f.cost }

func (f *fakeSource) Lookup(ctx context.Context, q source.Query) (reference.Metadata, error) {
	f.calls.Add(1)
	return f.lookup(ctx, q)
}

func returns(name string, cost source.Cost, m reference.Metadata) *fakeSource {
	return &fakeSource{name: name, cost: cost, lookup: func(context.Context, source.Query) (reference.Metadata, error) {
		return m, nil
	}}
}

func fails(name string, cost source.Cost, err error) *fakeSource {
	return &fakeSource{name: name, cost: cost, lookup: func(context.Context, source.Query) (reference.Metadata, error) {
		return reference.Metadata{}, err
	}}
}

func blocks(name string) *fakeSource {
	return &fakeSource{name: name, lookup: func(ctx context.Context, _ source.Query) (reference.Metadata, error) {
		<-ctx.Done()
		return reference.Metadata{}, ctx.Err()
	}}
}

func granovetter() reference.Metadata {
	return reference.Metadata{
		Kind:       reference.KindJournal,
		Title:      "The Strength of Weak Ties",
		Authors:    []reference.Author{{First: "Mark S.", Last: "Granovetter"}},
		Container:  "American Journal of Sociology",
		Published:  reference.PublicationDate{Year: 1973},
		Volume:     "78",
		Issue:      "6",
		Pages:      "1360–1380",
		Confidence: 1,
	}
}

func doiCitation(t *testing.T, tier ...string) classify.Citation {
	t.Helper()
	markers := marker.Collect("Weak ties matter (https://doi.org/10.1086/226147).")
	require.Len(t, markers, 1)
	c := classify.Classify(markers[0])
	c.Tier = tier
	return c
}

func TestResolveStopsAtThreshold(t *testing.T) {
	crossref := returns("crossref", source.CostFree, granovetter())
	llm := returns(source.LLMFast, source.CostCheapLLM, granovetter())
	r := New(source.NewRegistry(crossref, llm))

	res, err := r.Resolve(context.Background(), doiCitation(t, "crossref", source.LLMFast), "")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.NoError(t, res.Err())
	assert.Equal(t, "crossref", res.Metadata.Engine)
	assert.InDelta(t, 1.0, res.Metadata.Confidence, 1e-9)
	assert.Equal(t, "10.1086/226147", res.Metadata.DOI, "query identifier fills the record")
	assert.False(t, res.Metadata.RetrievedAt.IsZero())
	assert.Zero(t, llm.calls.Load(), "no paid call after acceptance")
}

func TestResolveOrdersTierByCost(t *testing.T) {
	crossref := returns("crossref", source.CostFree, granovetter())
	deep := returns(source.LLMDeep, source.CostPaidLLM, granovetter())
	fast := returns(source.LLMFast, source.CostCheapLLM, granovetter())
	r := New(source.NewRegistry(crossref, deep, fast))

	res, err := r.Resolve(context.Background(), doiCitation(t, source.LLMDeep, source.LLMFast, "crossref"), "")
	require.NoError(t, err)
	assert.Equal(t, "crossref", res.Metadata.Engine)
	assert.Zero(t, deep.calls.Load())
	assert.Zero(t, fast.calls.Load())
}

func TestResolveFallsBackOnError(t *testing.T) {
	crossref := fails("crossref", source.CostFree, &source.APIError{Source: "crossref", StatusCode: 503})
	openalex := returns("openalex", source.CostFree, granovetter())
	r := New(source.NewRegistry(crossref, openalex))

	res, err := r.Resolve(context.Background(), doiCitation(t, "crossref", "openalex"), "")
	require.NoError(t, err)
	assert.Equal(t, "openalex", res.Metadata.Engine)
	assert.InDelta(t, 0.95, res.Metadata.Confidence, 1e-9)
	assert.Equal(t, int32(1), crossref.calls.Load())
}

func TestResolveSourceTimeout(t *testing.T) {
	slow := blocks("crossref")
	openalex := returns("openalex", source.CostFree, granovetter())
	r := New(source.NewRegistry(slow, openalex), WithPolicy(Policy{SourceTimeout: 20 * time.Millisecond}))

	res, err := r.Resolve(context.Background(), doiCitation(t, "crossref", "openalex"), "")
	require.NoError(t, err)
	assert.Equal(t, "openalex", res.Metadata.Engine)
}

func TestResolveBudgetKeepsBestPartial(t *testing.T) {
	partial := reference.Metadata{
		Kind:       reference.KindJournal,
		Title:      "The Strength of Weak Ties",
		Published:  reference.PublicationDate{Year: 1973},
		Confidence: 1,
	}
	first := returns("crossref", source.CostFree, partial)
	slow := blocks("openalex")
	never := returns("semanticscholar", source.CostFree, granovetter())
	r := New(source.NewRegistry(first, slow, never),
		WithPolicy(Policy{MarkerBudget: 30 * time.Millisecond, SourceTimeout: time.Minute}))

	res, err := r.Resolve(context.Background(), doiCitation(t, "crossref", "openalex", "semanticscholar"), "")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.ErrorIs(t, res.Err(), ErrResolutionIncomplete)
	assert.Equal(t, "crossref", res.Metadata.Engine)
	assert.InDelta(t, 0.5, res.Metadata.Confidence, 1e-9)
	assert.Zero(t, never.calls.Load())
}

func TestResolveExhaustedIsUnresolved(t *testing.T) {
	a := fails("crossref", source.CostFree, source.ErrNotFound)
	b := returns("openalex", source.CostFree, reference.Metadata{})
	r := New(source.NewRegistry(a, b))

	c := doiCitation(t, "crossref", "openalex", "missing")
	res, err := r.Resolve(context.Background(), c, "")
	require.NoError(t, err)
	assert.True(t, res.Metadata.IsUnresolved())
	assert.Equal(t, reference.KindUnresolved, res.Metadata.Kind)
	assert.False(t, res.Accepted)
	assert.ErrorIs(t, res.Err(), ErrResolutionIncomplete)

	// Placeholders are not cached, so a second attempt asks again.
	_, err = r.Resolve(context.Background(), c, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.calls.Load())
}

func TestResolveSharesConcurrentLoads(t *testing.T) {
	slow := &fakeSource{name: "crossref", lookup: func(ctx context.Context, _ source.Query) (reference.Metadata, error) {
		select {
		case <-time.After(20 * time.Millisecond):
			return granovetter(), nil
		case <-ctx.Done():
			return reference.Metadata{}, ctx.Err()
		}
	}}
	r := New(source.NewRegistry(slow))
	c := doiCitation(t, "crossref")

	var wg sync.WaitGroup
	results := make([]Resolution, 12)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.Resolve(context.Background(), c, "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), slow.calls.Load())
	for _, res := range results {
		assert.Equal(t, "crossref", res.Metadata.Engine)
	}
}

func TestResolveCacheHit(t *testing.T) {
	crossref := returns("crossref", source.CostFree, granovetter())
	r := New(source.NewRegistry(crossref))
	c := doiCitation(t, "crossref")

	first, err := r.Resolve(context.Background(), c, "")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), c, "")
	require.NoError(t, err)

	assert.Equal(t, first.Metadata.Title, second.Metadata.Title)
	assert.Equal(t, int32(1), crossref.calls.Load())
}

func TestResolveModelPenalty(t *testing.T) {
	m := granovetter()
	m.Container = ""
	m.Confidence = 0.9
	llm := returns(source.LLMFast, source.CostCheapLLM, m)
	r := New(source.NewRegistry(llm))

	res, err := r.Resolve(context.Background(), doiCitation(t, source.LLMFast), "")
	require.NoError(t, err)
	// 0.7 weight × 0.75 complete × 0.9 quality, less 0.1 for the missing journal.
	assert.InDelta(t, 0.3725, res.Metadata.Confidence, 1e-9)
	assert.False(t, res.Accepted)
}

func TestResolveModelQualityOrdersScores(t *testing.T) {
	scoreAt := func(quality float64) Resolution {
		m := granovetter()
		m.Confidence = quality
		r := New(source.NewRegistry(returns(source.LLMFast, source.CostCheapLLM, m)))
		res, err := r.Resolve(context.Background(), doiCitation(t, source.LLMFast), "")
		require.NoError(t, err)
		return res
	}

	none := scoreAt(0)
	half := scoreAt(0.5)
	high := scoreAt(0.9)

	// A model that claims no confidence is not a match.
	assert.True(t, none.Metadata.IsUnresolved())
	assert.Zero(t, none.Metadata.Confidence)
	assert.False(t, none.Accepted)

	assert.InDelta(t, 0.35, half.Metadata.Confidence, 1e-9)
	assert.InDelta(t, 0.63, high.Metadata.Confidence, 1e-9)
	assert.Less(t, half.Metadata.Confidence, high.Metadata.Confidence)
}

func TestResolveFreeSourceWithoutQuality(t *testing.T) {
	m := granovetter()
	m.Confidence = 0
	r := New(source.NewRegistry(returns("crossref", source.CostFree, m)))

	res, err := r.Resolve(context.Background(), doiCitation(t, "crossref"), "")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Metadata.Confidence, 1e-9)
	assert.True(t, res.Accepted)
}

func TestResolveCancelled(t *testing.T) {
	slow := blocks("crossref")
	r := New(source.NewRegistry(slow))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, doiCitation(t, "crossref"), "")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQueryFor(t *testing.T) {
	t.Run("doi", func(t *testing.T) {
		q := QueryFor(doiCitation(t, "crossref"), "")
		assert.Equal(t, "10.1086/226147", q.DOI)
		assert.Equal(t, reference.KindJournal, q.Kind)
		assert.NotEmpty(t, q.Raw)
	})

	t.Run("parenthetical", func(t *testing.T) {
		markers := marker.Collect("as shown (Smith & Jones et al., 2020a).")
		require.Len(t, markers, 1)
		q := QueryFor(classify.Classify(markers[0]), "Network sociology")
		assert.Equal(t, []string{"Smith", "Jones"}, q.Authors)
		assert.True(t, q.EtAl)
		assert.Equal(t, "2020", q.Year)
		assert.Contains(t, q.Context, "Document topic: Network sociology")
	})

	t.Run("no date", func(t *testing.T) {
		markers := marker.Collect("as argued (Coleman, n.d.).")
		require.Len(t, markers, 1)
		q := QueryFor(classify.Classify(markers[0]), "")
		assert.Empty(t, q.Year)
	})

	t.Run("legal", func(t *testing.T) {
		markers := marker.Collect("the Court in Miranda v. Arizona (1966) held")
		require.Len(t, markers, 1)
		q := QueryFor(classify.Classify(markers[0]), "")
		assert.Equal(t, reference.KindLegalCase, q.Kind)
		assert.Equal(t, "Miranda v. Arizona", q.CaseName)
		assert.Equal(t, "1966", q.Year)
	})
}

func TestPolicyMerge(t *testing.T) {
	p := DefaultPolicy().Merge(Policy{
		Weights:    map[string]float64{"webpage": 0.5},
		Thresholds: map[reference.Kind]float64{reference.KindJournal: 0.9},
	})
	assert.Equal(t, 0.5, p.Weight("webpage"))
	assert.Equal(t, 1.0, p.Weight("crossref"))
	assert.Equal(t, defaultWeight, p.Weight("unknown"))
	assert.Equal(t, 0.9, p.Threshold(reference.KindJournal))
	assert.Equal(t, 0.7, p.Threshold(reference.KindBook))
	assert.Equal(t, 10*time.Second, p.SourceTimeout)

	// Merge never aliases the receiver's maps.
	assert.Equal(t, 0.85, DefaultPolicy().Weight("webpage"))
}
