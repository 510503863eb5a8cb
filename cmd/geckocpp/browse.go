package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	browseFormat string
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Show the project-wide browse include paths",
	Long: `List the union search path used for whole-project browsing: the
source root, the generated-header locations under the object directory, and
both compilers' built-in include directories.`,
	Run: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&browseFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(browseCmd)
}

// BrowseResponseCLI lists the browse search path for CLI output.
type BrowseResponseCLI struct {
	Folder      string   `json:"folder" yaml:"folder"`
	BrowsePaths []string `json:"browsePath" yaml:"browsePath"`
}

func runBrowse(cmd *cobra.Command, args []string) {
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

	store := openCache(cfg, logger)
	f := mustRecognizedFolder(newContext(), root, cfg, store, logger)

	paths, err := f.BrowseConfiguration()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving browse paths: %v\n", err)
		os.Exit(1)
	}

	resp := &BrowseResponseCLI{Folder: root.String()}
	for _, p := range paths {
		resp.BrowsePaths = append(resp.BrowsePaths, p.String())
	}

	output, err := FormatResponse(resp, OutputFormat(browseFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func formatBrowseHuman(resp *BrowseResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Browse path for %s (%d entries)\n", resp.Folder, len(resp.BrowsePaths)))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	for _, p := range resp.BrowsePaths {
		b.WriteString(fmt.Sprintf("  %s\n", p))
	}

	return b.String(), nil
}
