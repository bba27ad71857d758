// Package resolve turns classified citations into canonical metadata by
// querying sources tier by tier, cheapest first.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citeweave/internal/cache"
	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/marker"
	"github.com/matsen/citeweave/internal/reference"
	"github.com/matsen/citeweave/internal/source"
)

// ErrResolutionIncomplete marks a citation whose best record stayed below
// the acceptance threshold, or that no source found at all.
var ErrResolutionIncomplete = errors.New("resolution incomplete")

// Resolution is the outcome for one citation.
type Resolution struct {
	Metadata reference.Metadata
	Accepted bool // confidence reached the kind threshold
}

// Err returns an error wrapping ErrResolutionIncomplete when r was not
// accepted, and nil otherwise.
func (r Resolution) Err() error {
	if r.Accepted {
		return nil
	}
	return fmt.Errorf("%w: best confidence %.2f from %s", ErrResolutionIncomplete, r.Metadata.Confidence, r.Metadata.Engine)
}

// Resolver queries sources for citations.
type Resolver struct {
	sources *source.Registry
	cache   *cache.Cache
	policy  Policy
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache sets the cache shared across resolutions.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithPolicy overrides the default policy. Zero fields keep defaults.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) { r.policy = r.policy.Merge(p) }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a resolver over the registered sources.
func New(sources *source.Registry, opts ...Option) *Resolver {
	if sources == nil {
		sources = source.NewRegistry()
	}
	r := &Resolver{
		sources: sources,
		policy:  DefaultPolicy(),
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New(nil, cache.WithLogger(r.log))
	}
	return r
}

// Policy returns the effective policy.
func (r *Resolver) Policy() Policy { return r.policy }

// Resolve finds metadata for c. topic describes the citing document and
// helps model tiers disambiguate; it may be empty. Resolve never fails
// for lack of a match: an unmatched citation yields the unresolved
// placeholder. The error is non-nil only when ctx ends first.
func (r *Resolver) Resolve(ctx context.Context, c classify.Citation, topic string) (Resolution, error) {
	load := func(lctx context.Context) (reference.Metadata, error) {
		return r.resolveTiers(lctx, c, topic)
	}
	m, err := r.cache.Do(ctx, c.Key, load)
	if err != nil {
		return Resolution{}, err
	}
	if m.IsUnresolved() {
		m = reference.Unresolved(c.Raw)
	}
	return Resolution{
		Metadata: m,
		Accepted: !m.IsUnresolved() && m.Confidence >= r.policy.Threshold(c.Kind),
	}, nil
}

// orderedTier returns the registered sources of c's tier, stably sorted
// by cost so no paid source precedes a cheaper one.
func (r *Resolver) orderedTier(c classify.Citation) []source.Source {
	tier := make([]source.Source, 0, len(c.Tier))
	seen := make(map[string]bool, len(c.Tier))
	for _, name := range c.Tier {
		if seen[name] {
			continue
		}
		seen[name] = true
		s, ok := r.sources.Get(name)
		if !ok {
			r.log.Debug("source not registered", zap.String("source", name))
			continue
		}
		tier = append(tier, s)
	}
	sort.SliceStable(tier, func(i, j int) bool { return tier[i].Cost() < tier[j].Cost() })
	return tier
}

func (r *Resolver) resolveTiers(ctx context.Context, c classify.Citation, topic string) (reference.Metadata, error) {
	q := QueryFor(c, topic)
	threshold := r.policy.Threshold(c.Kind)

	budget := ctx
	if r.policy.MarkerBudget > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, r.policy.MarkerBudget)
		defer cancel()
	}

	var best reference.Metadata
	for _, src := range r.orderedTier(c) {
		if budget.Err() != nil {
			r.log.Info("marker budget exhausted",
				zap.String("marker", c.Raw), zap.Float64("best", best.Confidence))
			break
		}
		m, ok := r.try(budget, src, q, c)
		if !ok {
			continue
		}
		if m.Confidence > best.Confidence {
			best = m
		}
		if m.Confidence >= threshold {
			break
		}
	}

	// An abandoned load must not be cached as a partial result.
	if err := ctx.Err(); err != nil {
		return reference.Metadata{}, err
	}
	if best.Engine == "" {
		return reference.Unresolved(c.Raw), nil
	}
	if best.Confidence < threshold {
		r.log.Info("resolution incomplete",
			zap.String("marker", c.Raw),
			zap.String("engine", best.Engine),
			zap.Float64("confidence", best.Confidence),
			zap.Float64("threshold", threshold))
	}
	return best, nil
}

// try calls one source under the per-source timeout and scores its
// record. ok is false when the source failed or found nothing usable.
func (r *Resolver) try(ctx context.Context, src source.Source, q source.Query, c classify.Citation) (reference.Metadata, bool) {
	sctx := ctx
	if r.policy.SourceTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, r.policy.SourceTimeout)
		defer cancel()
	}

	log := r.log.With(zap.String("source", src.Name()), zap.String("marker", c.Raw))
	m, err := src.Lookup(sctx, q)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", source.ErrSourceUnavailable, src.Name(), err)
		if source.IsNotFound(err) {
			log.Debug("source found nothing")
		} else {
			log.Warn("source failed", zap.Error(err))
		}
		return reference.Metadata{}, false
	}
	if m.IsEmpty() {
		log.Debug("source returned an empty record")
		return reference.Metadata{}, false
	}

	m = r.normalize(m, src, q, c)
	m.Confidence = r.score(m, src)
	if m.Confidence <= 0 {
		return reference.Metadata{}, false
	}
	log.Debug("source matched", zap.Float64("confidence", m.Confidence))
	return m, true
}

// normalize fills provenance and carries query identifiers into m.
func (r *Resolver) normalize(m reference.Metadata, src source.Source, q source.Query, c classify.Citation) reference.Metadata {
	m = m.Clone()
	m.Engine = src.Name()
	if m.Kind == "" || m.Kind == reference.KindUnresolved {
		m.Kind = c.Kind
	}
	if m.Kind == reference.KindUnresolved {
		m.Kind = reference.KindWebpage
	}
	if m.RetrievedAt.IsZero() {
		m.RetrievedAt = r.now().UTC()
	}
	if m.DOI == "" {
		m.DOI = q.DOI
	}
	if m.PMID == "" {
		m.PMID = q.PMID
	}
	if m.ArXivID == "" {
		m.ArXivID = q.ArXivID
	}
	if m.ISBN == "" {
		m.ISBN = q.ISBN
	}
	if m.URL == "" && c.Hint == marker.HintURL {
		m.URL = q.URL
	}
	if m.Kind == reference.KindLegalCase && m.CaseName == "" {
		m.CaseName = q.CaseName
	}
	return m
}

// score is weight × completeness × the source's own match quality, less
// the missing-field penalty for model tiers, clamped to [0,1]. Free
// sources that report no quality count as exact matches; a model tier
// that claims none scores zero.
func (r *Resolver) score(m reference.Metadata, src source.Source) float64 {
	quality := min(m.Confidence, 1)
	if quality <= 0 && !src.Cost().IsPaid() {
		quality = 1
	}
	completeness, missing := m.Completeness()
	conf := r.policy.Weight(src.Name()) * completeness * quality
	if src.Cost().IsPaid() {
		conf -= r.policy.LLMMissingFieldPenalty * float64(missing)
	}
	return min(max(conf, 0), 1)
}

// QueryFor builds the source query for c. topic, which describes the
// citing document, is appended to the marker context.
func QueryFor(c classify.Citation, topic string) source.Query {
	q := source.Query{
		Kind:    c.Kind,
		Raw:     c.Raw,
		Context: c.Context,
	}
	if topic = strings.TrimSpace(topic); topic != "" {
		q.Context = strings.TrimSpace(q.Context + "\nDocument topic: " + topic)
	}

	switch c.Hint {
	case marker.HintDOI:
		q.DOI = reference.NormalizeDOI(c.Identifier)
		q.URL = c.URL
	case marker.HintPMID:
		q.PMID = reference.NormalizePMID(c.Identifier)
		q.URL = c.URL
	case marker.HintArXiv:
		q.ArXivID = reference.NormalizeArXiv(c.Identifier)
		q.URL = c.URL
	case marker.HintISBN:
		q.ISBN = reference.NormalizeISBN(c.Identifier)
	case marker.HintURL:
		q.URL = c.Identifier
	case marker.HintParenthetical:
		q.Authors = append([]string(nil), c.Authors...)
		q.EtAl = c.EtAl
		// "2020a" searches as 2020; "n.d." carries no year.
		if y := reference.ParseYear(c.Year); y > 0 {
			q.Year = strconv.Itoa(y)
		}
		if c.Kind == reference.KindLegalCase {
			q.CaseName = classify.CaseName(c.Marker)
		}
	}
	return q
}
