package resolve

import (
	"time"

	"github.com/matsen/citeweave/internal/reference"
)

// Policy holds the tunable parameters of resolution.
type Policy struct {
	// Weights scales each source's records by how much it is trusted.
	Weights map[string]float64
	// Thresholds is the acceptance confidence per citation kind.
	Thresholds map[reference.Kind]float64
	// SourceTimeout bounds a single source call.
	SourceTimeout time.Duration
	// MarkerBudget bounds all source calls for one marker.
	MarkerBudget time.Duration
	// LLMMissingFieldPenalty is subtracted per missing required field
	// from records produced by model tiers.
	LLMMissingFieldPenalty float64
}

const (
	defaultWeight    = 0.8
	defaultThreshold = 0.7
)

// DefaultPolicy returns the built-in weights and thresholds. Structured
// bibliographic databases weigh most; model tiers least.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[string]float64{
			"crossref":        1.0,
			"pubmed":          1.0,
			"courtlistener":   1.0,
			"library":         1.0,
			"openalex":        0.95,
			"semanticscholar": 0.95,
			"openlibrary":     0.95,
			"googlebooks":     0.9,
			"webpage":         0.85,
			"llm-deep":        0.8,
			"llm-fast":        0.7,
		},
		Thresholds: map[reference.Kind]float64{
			reference.KindJournal:    0.7,
			reference.KindBook:       0.7,
			reference.KindLegalCase:  0.7,
			reference.KindNewspaper:  0.6,
			reference.KindWebpage:    0.5,
			reference.KindUnresolved: 0.5,
		},
		SourceTimeout:          10 * time.Second,
		MarkerBudget:           45 * time.Second,
		LLMMissingFieldPenalty: 0.1,
	}
}

// Weight returns the weight of the named source.
func (p Policy) Weight(source string) float64 {
	if w, ok := p.Weights[source]; ok {
		return w
	}
	return defaultWeight
}

// Threshold returns the acceptance confidence for kind.
func (p Policy) Threshold(kind reference.Kind) float64 {
	if t, ok := p.Thresholds[kind]; ok {
		return t
	}
	return defaultThreshold
}

// Merge returns p with the weights, thresholds and non-zero timeouts of
// o applied on top. LLMMissingFieldPenalty is not merged, because zero
// is a meaningful penalty; set it on the result instead.
func (p Policy) Merge(o Policy) Policy {
	out := p
	out.Weights = make(map[string]float64, len(p.Weights)+len(o.Weights))
	for k, v := range p.Weights {
		out.Weights[k] = v
	}
	for k, v := range o.Weights {
		out.Weights[k] = v
	}
	out.Thresholds = make(map[reference.Kind]float64, len(p.Thresholds)+len(o.Thresholds))
	for k, v := range p.Thresholds {
		out.Thresholds[k] = v
	}
	for k, v := range o.Thresholds {
		out.Thresholds[k] = v
	}
	if o.SourceTimeout > 0 {
		out.SourceTimeout = o.SourceTimeout
	}
	if o.MarkerBudget > 0 {
		out.MarkerBudget = o.MarkerBudget
	}
	return out
}
