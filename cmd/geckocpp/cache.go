package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/probecache"
)

var (
	cacheFormat string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the probe cache",
	Long: `The probe cache persists compiler probe results keyed by compiler
identity, so repeated folder probes skip spawning the compiler. Entries
invalidate themselves when the compiler binary changes.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show probe cache contents",
	Run:   runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached probe results",
	Run:   runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheFormat, "format", "human", "Output format (json, yaml, human)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// CacheStatsCLI contains the probe cache contents for CLI output
type CacheStatsCLI struct {
	Path    string               `json:"path" yaml:"path"`
	Entries int                  `json:"entries" yaml:"entries"`
	Bytes   int64                `json:"bytes" yaml:"bytes"`
	Probes  []probecache.Summary `json:"probes,omitempty" yaml:"probes,omitempty"`
}

// mustOpenCache opens the configured cache store or exits.
func mustOpenCache() *probecache.Store {
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

	if !cfg.Cache.Enabled {
		fmt.Fprintln(os.Stderr, "The probe cache is disabled in configuration.")
		os.Exit(1)
	}
	store, err := cfg.OpenCache(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening probe cache: %v\n", err)
		os.Exit(1)
	}
	return store
}

func runCacheStats(cmd *cobra.Command, args []string) {
	store := mustOpenCache()
	defer func() { _ = store.Close() }()

	stats, err := store.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading cache: %v\n", err)
		os.Exit(1)
	}
	entries, err := store.Entries()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing cache: %v\n", err)
		os.Exit(1)
	}

	resp := &CacheStatsCLI{
		Path:    stats.Path,
		Entries: stats.Entries,
		Bytes:   stats.Bytes,
		Probes:  entries,
	}

	output, err := FormatResponse(resp, OutputFormat(cacheFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	store := mustOpenCache()
	defer func() { _ = store.Close() }()

	removed, err := store.Clear()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d cached probe(s)\n", removed)
}

func formatCacheStatsHuman(resp *CacheStatsCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Probe cache at %s\n", resp.Path))
	b.WriteString(fmt.Sprintf("%d entries, %d compressed bytes\n", resp.Entries, resp.Bytes))
	for _, p := range resp.Probes {
		b.WriteString(fmt.Sprintf("  %s  %-12s stored %s\n",
			p.Compiler, p.Mode, p.StoredAt.Format("2006-01-02 15:04:05")))
	}

	return b.String(), nil
}
