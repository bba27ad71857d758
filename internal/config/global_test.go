package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := Path(), "/custom/config/cite/config.yml"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := Path(), filepath.Join(home, ".config", "cite", "config.yml"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestDefaultCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")
	if got, want := DefaultCachePath(), "/custom/cache/cite/cache.db"; got != want {
		t.Errorf("DefaultCachePath() = %q, want %q", got, want)
	}
}

func TestLoad_NotFound(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Style != DefaultStyle || cfg.Parallelism != DefaultParallelism {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `style: chicago-nb
parallelism: 4
timeouts:
  source: 5s
cache:
  backend: memory
  ttl: 24h
confidence:
  thresholds:
    webpage: 0.6
routing:
  author_year: [library, crossref, llm-fast]
sources:
  crossref:
    base_url: http://localhost:8080
    rate: 2.5
library:
  bibtex: ~/refs.bib
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Style != "chicago-nb" {
		t.Errorf("Style = %q, want chicago-nb", cfg.Style)
	}
	if cfg.Parallelism != 4 {
		t.Errorf("Parallelism = %d, want 4", cfg.Parallelism)
	}
	if cfg.Timeouts.Source.Duration != 5*time.Second {
		t.Errorf("Timeouts.Source = %v, want 5s", cfg.Timeouts.Source)
	}
	if cfg.Timeouts.Marker.Duration != 45*time.Second {
		t.Errorf("Timeouts.Marker = %v, want default 45s", cfg.Timeouts.Marker)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("Cache = %+v, want memory with 24h ttl", cfg.Cache)
	}
	if cfg.Cache.PassphraseEnv != DefaultPassphraseEnv {
		t.Errorf("Cache.PassphraseEnv = %q, want default", cfg.Cache.PassphraseEnv)
	}
	if got := cfg.Source("crossref"); got.BaseURL != "http://localhost:8080" || got.Rate != 2.5 {
		t.Errorf("Source(crossref) = %+v", got)
	}
	if len(cfg.Routing["author_year"]) != 3 {
		t.Errorf("Routing[author_year] = %v", cfg.Routing["author_year"])
	}
	if home, err := os.UserHomeDir(); err == nil {
		if want := filepath.Join(home, "refs.bib"); cfg.Library.BibTeX != want {
			t.Errorf("Library.BibTeX = %q, want %q", cfg.Library.BibTeX, want)
		}
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("parallelism: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}

	if err := os.WriteFile(path, []byte("style: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() succeeded on malformed YAML")
	}
}

func TestLoadGlobal_Cached(t *testing.T) {
	ResetGlobalCache()
	defer ResetGlobalCache()

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, AppDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(), []byte("style: mla9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	first, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal() error = %v", err)
	}
	if first.Style != "mla9" {
		t.Errorf("Style = %q, want mla9", first.Style)
	}

	// Later edits are not seen until the cache is reset.
	if err := os.WriteFile(Path(), []byte("style: harvard\n"), 0644); err != nil {
		t.Fatal(err)
	}
	second, _ := LoadGlobal()
	if second != first {
		t.Error("LoadGlobal() reloaded without a reset")
	}
	ResetGlobalCache()
	third, _ := LoadGlobal()
	if third.Style != "harvard" {
		t.Errorf("Style after reset = %q, want harvard", third.Style)
	}
}
