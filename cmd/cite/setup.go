package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/citeweave/internal/cache"
	"github.com/matsen/citeweave/internal/classify"
	"github.com/matsen/citeweave/internal/config"
	"github.com/matsen/citeweave/internal/pipeline"
	"github.com/matsen/citeweave/internal/resolve"
	"github.com/matsen/citeweave/internal/source"
)

// Environment variables holding source credentials.
const (
	EnvS2APIKey           = "S2_API_KEY"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvCourtListenerToken = "COURTLISTENER_TOKEN"
	EnvGoogleBooksAPIKey  = "GOOGLE_BOOKS_API_KEY"
	EnvNCBIAPIKey         = "NCBI_API_KEY"
	EnvCrossrefMailto     = "CROSSREF_MAILTO"
)

// httpSources builds each HTTP adapter from its options.
var httpSources = []struct {
	name   string
	keyEnv string
	build  func(...source.Option) source.Source
}{
	{"crossref", EnvCrossrefMailto, func(o ...source.Option) source.Source { return source.NewCrossref(o...) }},
	{"openalex", EnvCrossrefMailto, func(o ...source.Option) source.Source { return source.NewOpenAlex(o...) }},
	{"pubmed", EnvNCBIAPIKey, func(o ...source.Option) source.Source { return source.NewPubMed(o...) }},
	{"semanticscholar", EnvS2APIKey, func(o ...source.Option) source.Source { return source.NewSemanticScholar(o...) }},
	{"openlibrary", "", func(o ...source.Option) source.Source { return source.NewOpenLibrary(o...) }},
	{"googlebooks", EnvGoogleBooksAPIKey, func(o ...source.Option) source.Source { return source.NewGoogleBooks(o...) }},
	{"courtlistener", EnvCourtListenerToken, func(o ...source.Option) source.Source { return source.NewCourtListener(o...) }},
	{"webpage", "", func(o ...source.Option) source.Source { return source.NewWebpage(o...) }},
}

// buildRegistry registers every enabled source. Model tiers are added
// only when their provider is usable.
func buildRegistry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*source.Registry, error) {
	reg := source.NewRegistry()
	for _, hs := range httpSources {
		sc := cfg.Source(hs.name)
		if !sc.IsEnabled() {
			continue
		}
		opts := []source.Option{source.WithBaseURL(sc.BaseURL), source.WithRateLimit(sc.Rate)}
		if hs.keyEnv != "" {
			opts = append(opts, source.WithAPIKey(os.Getenv(hs.keyEnv)))
		}
		reg.Add(hs.build(opts...))
	}

	if cfg.Library.BibTeX != "" && cfg.Source("library").IsEnabled() {
		lib, err := source.NewLibrary(cfg.Library.BibTeX)
		if err != nil {
			return nil, err
		}
		reg.Add(lib)
	}

	fast, deep, err := buildGenerators(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	if fast == nil {
		log.Debug("model tiers disabled", zap.String("provider", cfg.LLM.Provider))
		return reg, nil
	}
	if cfg.Source(source.LLMFast).IsEnabled() {
		reg.Add(source.NewLLM(source.LLMFast, source.CostCheapLLM, fast))
	}
	if cfg.Source(source.LLMDeep).IsEnabled() {
		reg.Add(source.NewLLM(source.LLMDeep, source.CostPaidLLM, deep))
	}
	return reg, nil
}

// buildGenerators returns nil generators when the provider has no
// credentials or binary available.
func buildGenerators(ctx context.Context, llm config.LLMConfig) (fast, deep source.Generator, err error) {
	switch llm.Provider {
	case config.ProviderClaudeCLI:
		if _, err := exec.LookPath("claude"); err != nil {
			return nil, nil, nil
		}
		return source.NewClaudeCLI(claudeModel(llm.FastModel, "haiku")),
			source.NewClaudeCLI(claudeModel(llm.DeepModel, "sonnet")), nil
	default:
		key := os.Getenv(EnvGeminiAPIKey)
		if key == "" {
			return nil, nil, nil
		}
		f, err := source.NewGeminiGenerator(ctx, key, llm.FastModel)
		if err != nil {
			return nil, nil, err
		}
		d, err := source.NewGeminiGenerator(ctx, key, llm.DeepModel)
		if err != nil {
			return nil, nil, err
		}
		return f, d, nil
	}
}

// claudeModel keeps model names meant for claude and falls back to def
// for the Gemini defaults.
func claudeModel(model, def string) string {
	if model == "" || strings.HasPrefix(model, "gemini") {
		return def
	}
	return model
}

// openStore opens the configured cache store. The returned close
// function is never nil.
func openStore(ctx context.Context, cc config.CacheConfig) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	var store cache.Store
	closeFn := noop

	switch cc.Backend {
	case config.BackendMemory:
		store = cache.NewMemoryStore()
	default:
		if err := os.MkdirAll(filepath.Dir(cc.Path), 0755); err != nil {
			return nil, noop, fmt.Errorf("creating cache directory: %w", err)
		}
		sq, err := cache.OpenSQLite(cc.Path)
		if err != nil {
			return nil, noop, err
		}
		store, closeFn = sq, sq.Close
	}

	if cc.PassphraseEnv != "" {
		if pass := os.Getenv(cc.PassphraseEnv); pass != "" {
			sealed, err := cache.NewSealedStore(ctx, store, pass)
			if err != nil {
				_ = closeFn()
				return nil, noop, err
			}
			store = sealed
		}
	}
	return store, closeFn, nil
}

// newPipeline wires sources, cache and policy from the loaded config.
// The caller must call the returned close function.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, func() error, error) {
	reg, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store, closeFn, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	c := cache.New(store, cache.WithTTL(cfg.Cache.TTL.Duration), cache.WithLogger(logger.Named("cache")))
	r := resolve.New(reg,
		resolve.WithCache(c),
		resolve.WithPolicy(cfg.Policy()),
		resolve.WithLogger(logger.Named("resolve")))
	p := pipeline.New(r,
		pipeline.WithClassifier(classify.New(cfg.ClassifyRouting())),
		pipeline.WithParallelism(cfg.Parallelism),
		pipeline.WithLogger(logger.Named("pipeline")))
	return p, closeFn, nil
}
