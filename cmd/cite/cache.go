package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/citeweave/internal/cache"
	"github.com/matsen/citeweave/internal/config"
)

var cachePurgeAll bool

func init() {
	cachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "Remove every entry, not only expired ones")
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the resolution cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired cache entries",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

// CacheStatsResponse is the output of cache stats.
type CacheStatsResponse struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	cache.Stats
}

// PurgeResponse is the output of cache purge.
type PurgeResponse struct {
	Removed int  `json:"removed"`
	All     bool `json:"all"`
}

func openMaintainer(cmd *cobra.Command) (cache.Maintainer, func() error, error) {
	store, closeFn, err := openStore(cmd.Context(), cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	m, ok := store.(cache.Maintainer)
	if !ok {
		_ = closeFn()
		return nil, nil, fmt.Errorf("cache backend %q does not support maintenance", cfg.Cache.Backend)
	}
	return m, closeFn, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	m, closeFn, err := openMaintainer(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	stats, err := m.Stats(cmd.Context())
	if err != nil {
		return err
	}
	resp := CacheStatsResponse{Backend: cfg.Cache.Backend, Stats: stats}
	if cfg.Cache.Backend != config.BackendMemory {
		resp.Path = cfg.Cache.Path
	}

	if humanOutput {
		outputHuman("Backend: %s\n", resp.Backend)
		if resp.Path != "" {
			outputHuman("Path:    %s\n", resp.Path)
		}
		outputHuman("Entries: %d (%d expired)\n", stats.Entries, stats.Expired)
		return nil
	}
	return outputJSON(resp)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	m, closeFn, err := openMaintainer(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := m.Purge(cmd.Context(), cachePurgeAll)
	if err != nil {
		return err
	}
	if humanOutput {
		outputHuman("Removed %d entries\n", n)
		return nil
	}
	return outputJSON(PurgeResponse{Removed: n, All: cachePurgeAll})
}
