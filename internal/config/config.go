// Package config handles cite's user configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/reference"
	"github.com/matsen/citeweave/internal/resolve"
)

// Config represents configuration stored in ~/.config/cite/config.yml.
type Config struct {
	Style       string                  `yaml:"style,omitempty"`
	Parallelism int                     `yaml:"parallelism,omitempty"`
	Timeouts    Timeouts                `yaml:"timeouts,omitempty"`
	Cache       CacheConfig             `yaml:"cache,omitempty"`
	Confidence  Confidence              `yaml:"confidence,omitempty"`
	Routing     map[string][]string     `yaml:"routing,omitempty"` // route name to source names
	Sources     map[string]SourceConfig `yaml:"sources,omitempty"`
	LLM         LLMConfig               `yaml:"llm,omitempty"`
	Library     LibraryConfig           `yaml:"library,omitempty"`
}

// Timeouts bound source calls.
type Timeouts struct {
	Source Duration `yaml:"source,omitempty"` // one source call
	Marker Duration `yaml:"marker,omitempty"` // all calls for one marker
}

// CacheConfig selects and configures the resolution cache.
type CacheConfig struct {
	Backend string   `yaml:"backend,omitempty"` // memory or sqlite
	Path    string   `yaml:"path,omitempty"`
	TTL     Duration `yaml:"ttl,omitempty"`
	// PassphraseEnv names the environment variable holding the passphrase
	// that seals cached records. Records are stored in the clear when the
	// variable is unset.
	PassphraseEnv string `yaml:"passphrase_env,omitempty"`
}

// Confidence overrides the resolution policy.
type Confidence struct {
	Weights    map[string]float64 `yaml:"weights,omitempty"`
	Thresholds map[string]float64 `yaml:"thresholds,omitempty"`
	// LLMMissingFieldPenalty is subtracted per missing field from model
	// records. Nil keeps the default; zero turns the penalty off.
	LLMMissingFieldPenalty *float64 `yaml:"llm_missing_field_penalty,omitempty"`
}

// SourceConfig tunes one metadata source.
type SourceConfig struct {
	Enabled *bool   `yaml:"enabled,omitempty"`
	BaseURL string  `yaml:"base_url,omitempty"`
	Rate    float64 `yaml:"rate,omitempty"` // requests per second
}

// IsEnabled reports whether the source is on. Sources are on by default.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LLMConfig selects the models behind the two model tiers.
type LLMConfig struct {
	Provider  string `yaml:"provider,omitempty"` // gemini or claude-cli
	FastModel string `yaml:"fast_model,omitempty"`
	DeepModel string `yaml:"deep_model,omitempty"`
}

// LibraryConfig points at the user's own bibliography.
type LibraryConfig struct {
	BibTeX string `yaml:"bibtex,omitempty"`
}

// LLM providers.
const (
	ProviderGemini    = "gemini"
	ProviderClaudeCLI = "claude-cli"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Defaults.
const (
	DefaultStyle         = "apa7"
	DefaultParallelism   = 8
	DefaultCacheTTL      = 30 * 24 * time.Hour
	DefaultPassphraseEnv = "CITE_CACHE_PASSPHRASE"
	DefaultFastModel     = "gemini-2.5-flash"
	DefaultDeepModel     = "gemini-2.5-pro"
)

// ValidBackends lists the supported cache backends.
var ValidBackends = []string{BackendMemory, BackendSQLite}

// ValidProviders lists the supported LLM providers.
var ValidProviders = []string{ProviderGemini, ProviderClaudeCLI}

// ErrInvalid marks a configuration that fails validation.
var ErrInvalid = errors.New("invalid config")

// Default returns the built-in configuration.
func Default() *Config {
	p := resolve.DefaultPolicy()
	return &Config{
		Style:       DefaultStyle,
		Parallelism: DefaultParallelism,
		Timeouts: Timeouts{
			Source: Duration{p.SourceTimeout},
			Marker: Duration{p.MarkerBudget},
		},
		Cache: CacheConfig{
			Backend:       BackendSQLite,
			Path:          DefaultCachePath(),
			TTL:           Duration{DefaultCacheTTL},
			PassphraseEnv: DefaultPassphraseEnv,
		},
		LLM: LLMConfig{Provider: ProviderGemini, FastModel: DefaultFastModel, DeepModel: DefaultDeepModel},
	}
}

// Validate checks the values a user can get wrong.
func (c *Config) Validate() error {
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalid, c.Parallelism)
	}
	if c.Timeouts.Source.Duration < 0 || c.Timeouts.Marker.Duration < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalid)
	}
	if !slices.Contains(ValidBackends, c.Cache.Backend) {
		return fmt.Errorf("%w: cache.backend %q (valid: %v)", ErrInvalid, c.Cache.Backend, ValidBackends)
	}
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("%w: llm.provider %q (valid: %v)", ErrInvalid, c.LLM.Provider, ValidProviders)
	}
	for kind, t := range c.Confidence.Thresholds {
		if !reference.ValidKind(reference.Kind(kind)) {
			return fmt.Errorf("%w: unknown kind %q in confidence.thresholds", ErrInvalid, kind)
		}
		if t < 0 || t > 1 {
			return fmt.Errorf("%w: threshold for %s must be in [0, 1], got %g", ErrInvalid, kind, t)
		}
	}
	for name, w := range c.Confidence.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: weight for %s must be in [0, 1], got %g", ErrInvalid, name, w)
		}
	}
	if p := c.Confidence.LLMMissingFieldPenalty; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("%w: llm_missing_field_penalty must be in [0, 1], got %g", ErrInvalid, *p)
	}
	for route, tier := range c.Routing {
		if !slices.Contains(classify.Routes, classify.Route(route)) {
			return fmt.Errorf("%w: unknown route %q in routing", ErrInvalid, route)
		}
		if len(tier) == 0 {
			return fmt.Errorf("%w: routing for %s is empty", ErrInvalid, route)
		}
	}
	for name, s := range c.Sources {
		if s.Rate < 0 {
			return fmt.Errorf("%w: sources.%s.rate must not be negative", ErrInvalid, name)
		}
	}
	return nil
}

// Policy returns the resolution policy with this config's overrides.
func (c *Config) Policy() resolve.Policy {
	o := resolve.Policy{
		Weights:       c.Confidence.Weights,
		Thresholds:    make(map[reference.Kind]float64, len(c.Confidence.Thresholds)),
		SourceTimeout: c.Timeouts.Source.Duration,
		MarkerBudget:  c.Timeouts.Marker.Duration,
	}
	for kind, t := range c.Confidence.Thresholds {
		o.Thresholds[reference.Kind(kind)] = t
	}
	p := resolve.DefaultPolicy().Merge(o)
	if pen := c.Confidence.LLMMissingFieldPenalty; pen != nil {
		p.LLMMissingFieldPenalty = *pen
	}
	return p
}

// ClassifyRouting returns the configured tiers. Routes not named keep
// their defaults.
func (c *Config) ClassifyRouting() classify.Routing {
	r := make(classify.Routing, len(c.Routing))
	for route, tier := range c.Routing {
		r[classify.Route(route)] = tier
	}
	return r
}

// Source returns the settings for the named source.
func (c *Config) Source(name string) SourceConfig {
	return c.Sources[name]
}

// Duration is a time.Duration written as "10s" or "1h30m" in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalYAML writes the duration in Go syntax.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// IsZero lets omitempty drop unset durations.
func (d Duration) IsZero() bool { return d.Duration == 0 }

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
