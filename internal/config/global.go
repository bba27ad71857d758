package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the directory name under XDG_CONFIG_HOME and XDG_CACHE_HOME.
	AppDir = "cite"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// CacheFile is the SQLite cache file name.
	CacheFile = "cache.db"
)

// globalCache caches the loaded config.
var globalCache *Config

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cite/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppDir, ConfigFile)
}

// DefaultCachePath returns where the SQLite cache lives by default.
// Respects XDG_CACHE_HOME, defaults to ~/.cache/cite/cache.db.
func DefaultCachePath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return CacheFile
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, AppDir, CacheFile)
}

// Load reads the config file at path over the defaults.
// Returns the defaults (not an error) if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	cfg.Library.BibTeX = ExpandPath(cfg.Library.BibTeX)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadGlobal loads the config file at Path once per process.
func LoadGlobal() (*Config, error) {
	if globalCache != nil {
		return globalCache, nil
	}
	cfg, err := Load(Path())
	if err != nil {
		return nil, err
	}
	globalCache = cfg
	return cfg, nil
}

// ResetGlobalCache clears the cached config.
// Useful for testing.
func ResetGlobalCache() {
	globalCache = nil
}

// HelpfulMessage explains where the config file goes.
func HelpfulMessage() string {
	configPath := Path()
	return fmt.Sprintf(`Tip: Create %s to change the default style or cache:
  mkdir -p %s
  echo 'style: chicago-nb' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
