package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/version"
)

var (
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folder recognition status",
	Long: `Probe the workspace folder and report whether it is a recognized
build tree, which compilers were discovered, and the probe cache state.`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(statusCmd)
}

// StatusResponseCLI contains the folder status for CLI output
type StatusResponseCLI struct {
	Version    string              `json:"version" yaml:"version"`
	Folder     string              `json:"folder" yaml:"folder"`
	State      string              `json:"state" yaml:"state"`
	Recognized bool                `json:"recognized" yaml:"recognized"`
	Reason     string              `json:"reason,omitempty" yaml:"reason,omitempty"`
	ObjDir     string              `json:"topobjdir,omitempty" yaml:"topobjdir,omitempty"`
	SrcDir     string              `json:"topsrcdir,omitempty" yaml:"topsrcdir,omitempty"`
	Compilers  []CompilerStatusCLI `json:"compilers,omitempty" yaml:"compilers,omitempty"`
	Cache      *CacheStatusCLI     `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// CompilerStatusCLI describes one probed compiler
type CompilerStatusCLI struct {
	Language string `json:"language" yaml:"language"`
	Path     string `json:"path" yaml:"path"`
	Mode     string `json:"intelliSenseMode" yaml:"intelliSenseMode"`
	Standard string `json:"standard" yaml:"standard"`
	Includes int    `json:"includes" yaml:"includes"`
	Defines  int    `json:"defines" yaml:"defines"`
}

// CacheStatusCLI describes the probe cache state
type CacheStatusCLI struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Entries int    `json:"entries" yaml:"entries"`
	Bytes   int64  `json:"bytes" yaml:"bytes"`
}

func runStatus(cmd *cobra.Command, args []string) {
	start := time.Now()
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

	store := openCache(cfg, logger)
	f, err := probeFolder(newContext(), root, cfg, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp := &StatusResponseCLI{
		Version:    version.Info(),
		Folder:     root.String(),
		State:      f.State().String(),
		Recognized: f.Recognized(),
	}
	if reason := f.Reason(); reason != nil {
		resp.Reason = reason.Error()
	}
	if build := f.Build(); build != nil {
		resp.ObjDir = build.Env.ObjDir.String()
		resp.SrcDir = build.Env.SrcDir.String()
		for _, c := range []*compiler.Compiler{build.C, build.CPP} {
			resp.Compilers = append(resp.Compilers, CompilerStatusCLI{
				Language: c.Lang.String(),
				Path:     c.Bin,
				Mode:     c.Settings.IntelliSenseMode,
				Standard: c.Settings.Standard,
				Includes: len(c.Defaults.Includes()),
				Defines:  len(c.Defaults.Defines),
			})
		}
	}

	cache := &CacheStatusCLI{Enabled: store != nil}
	if store != nil {
		if stats, err := store.Stats(); err == nil {
			cache.Path = stats.Path
			cache.Entries = stats.Entries
			cache.Bytes = stats.Bytes
		}
	}
	resp.Cache = cache

	output, err := FormatResponse(resp, OutputFormat(statusFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if statusFormat == "human" {
		fmt.Printf("\n(Probe took %dms)\n", time.Since(start).Milliseconds())
	}
}

func formatStatusHuman(resp *StatusResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("geckocpp v%s\n", resp.Version))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Folder: %s\n", resp.Folder))
	b.WriteString(fmt.Sprintf("State:  %s\n", resp.State))
	if resp.Reason != "" {
		b.WriteString(fmt.Sprintf("Reason: %s\n", resp.Reason))
	}
	if resp.ObjDir != "" {
		b.WriteString(fmt.Sprintf("\nObject dir: %s\n", resp.ObjDir))
		b.WriteString(fmt.Sprintf("Source dir: %s\n", resp.SrcDir))
	}

	if len(resp.Compilers) > 0 {
		b.WriteString("\nCompilers:\n")
		for _, c := range resp.Compilers {
			b.WriteString(fmt.Sprintf("  %-4s %s\n", c.Language, c.Path))
			b.WriteString(fmt.Sprintf("       mode=%s standard=%s includes=%d defines=%d\n",
				c.Mode, c.Standard, c.Includes, c.Defines))
		}
	}

	if resp.Cache != nil {
		if resp.Cache.Enabled {
			b.WriteString(fmt.Sprintf("\nProbe cache: %d entries, %d bytes\n  %s\n",
				resp.Cache.Entries, resp.Cache.Bytes, resp.Cache.Path))
		} else {
			b.WriteString("\nProbe cache: disabled\n")
		}
	}

	return b.String(), nil
}
