// Package pipeline runs the citation pipeline over a document: extract,
// classify, resolve, deduplicate, format and assemble.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matsen/citeweave/internal/assemble"
	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/dedupe"
	"github.com/matsen/citeweave/internal/document"
	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/resolve"
	"github.com/matsen/citeweave/internal/style"
)

// DefaultParallelism bounds concurrent resolutions when none is set.
const DefaultParallelism = 8

// Pipeline holds the shared, long-lived parts of a run.
type Pipeline struct {
	resolver    *resolve.Resolver
	classifier  *classify.Classifier
	styles      *style.Registry
	parallelism int
	log         *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier sets the classifier, e.g. one with custom routing.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithStyles sets the style registry.
func WithStyles(r *style.Registry) Option {
	return func(p *Pipeline) { p.styles = r }
}

// WithParallelism bounds how many markers resolve at once.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a pipeline that resolves through r.
func New(r *resolve.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver:    r,
		classifier:  classify.New(nil),
		styles:      style.NewRegistry(),
		parallelism: min(DefaultParallelism, runtime.GOMAXPROCS(0)*2),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Styles returns the styles the pipeline formats in.
func (p *Pipeline) Styles() *style.Registry { return p.styles }

// Result is the outcome of a run.
type Result struct {
	RunID    string             `json:"run_id"`
	Style    string             `json:"style"`
	Document *document.Document `json:"-"`
	Works    []dedupe.Work      `json:"-"`
	Report   []ReportEntry      `json:"report"`
	// Discarded counts extraction candidates dropped for overlapping a
	// more specific marker.
	Discarded int `json:"discarded"`
}

// Extract finds and classifies the markers of doc in document order.
func (p *Pipeline) Extract(doc *document.Document) ([]classify.Citation, int) {
	discarded := 0
	onConflict := func(c marker.Conflict) {
		discarded++
		p.log.Debug("marker candidate discarded", zap.Error(c.Err()))
	}
	var cites []classify.Citation
	for m := range marker.Scan(doc.Text(), onConflict) {
		cites = append(cites, p.classifier.Classify(m))
	}
	return cites, discarded
}

// Resolve resolves every citation concurrently. The result is indexed
// like cites regardless of completion order. It fails only when ctx ends.
func (p *Pipeline) Resolve(ctx context.Context, cites []classify.Citation, topic string) ([]dedupe.Occurrence, error) {
	occs := make([]dedupe.Occurrence, len(cites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, c := range cites {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := p.resolver.Resolve(gctx, c, topic)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", c.Raw, err)
			}
			occs[i] = dedupe.Occurrence{Citation: c, Metadata: res.Metadata, Accepted: res.Accepted}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return occs, nil
}

// Run formats every citation of doc in the named style. If ctx ends
// before the run completes, Run returns its error and no document.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document, styleName string) (*Result, error) {
	s, err := p.styles.Lookup(styleName)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	log := p.log.With(zap.String("run", runID), zap.String("style", s.Name()))
	start := time.Now()

	cites, discarded := p.Extract(doc)
	log.Debug("markers extracted", zap.Int("markers", len(cites)), zap.Int("discarded", discarded))

	occs, err := p.Resolve(ctx, cites, TopicContext(doc.Text()))
	if err != nil {
		return nil, err
	}

	works := dedupe.Deduplicate(occs)
	formatted := style.FormatAll(s, works)
	out, err := assemble.Assemble(doc, works, formatted, s)
	if err != nil {
		return nil, err
	}

	report := buildReport(works, formatted)
	log.Info("run complete",
		zap.Int("markers", len(report)),
		zap.Int("works", len(works)),
		zap.Int("flagged", countFlagged(report)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		RunID:     runID,
		Style:     s.Name(),
		Document:  out,
		Works:     works,
		Report:    report,
		Discarded: discarded,
	}, nil
}
