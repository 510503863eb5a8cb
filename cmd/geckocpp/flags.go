package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/config"
	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/mach"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

var (
	flagsFormat string
	flagsRaw    bool
)

var flagsCmd = &cobra.Command{
	Use:   "flags <file>",
	Short: "Show the resolved compiler configuration for a source file",
	Long: `Resolve the compiler configuration (include paths, defines, forced
includes, language standard) that applies to one source file, exactly as the
configuration provider would report it to an editor.

With --raw, ask the build tool directly for the compiler command line it
would use and print it unparsed. Useful for checking what the resolved
configuration was derived from.`,
	Args: cobra.ExactArgs(1),
	Run:  runFlags,
}

func init() {
	flagsCmd.Flags().StringVar(&flagsFormat, "format", "human", "Output format (json, yaml, human)")
	flagsCmd.Flags().BoolVar(&flagsRaw, "raw", false, "Print the build tool's raw compiler command line")
	rootCmd.AddCommand(flagsCmd)
}

// FlagsResponseCLI wraps the per-file configuration for CLI output.
type FlagsResponseCLI struct {
	File          string                    `json:"file" yaml:"file"`
	Configuration *folder.FileConfiguration `json:"configuration" yaml:"configuration"`
}

func runFlags(cmd *cobra.Command, args []string) {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	file, err := fspath.New(abs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

	if flagsRaw {
		runFlagsRaw(root, cfg, file, logger)
		return
	}

	store := openCache(cfg, logger)
	f := mustRecognizedFolder(newContext(), root, cfg, store, logger)

	configuration, err := f.Configuration(file)
	if err != nil {
		if errdefs.IsCode(err, errdefs.ConfigUnavailable) {
			fmt.Printf("No configuration available for %s\n", file)
			var ge *errdefs.Error
			if errors.As(err, &ge) {
				fmt.Printf("  %s\n", ge.Message)
			}
			return
		}
		fmt.Fprintf(os.Stderr, "Error resolving configuration: %v\n", err)
		os.Exit(1)
	}

	output, err := FormatResponse(&FlagsResponseCLI{File: file.String(), Configuration: configuration}, OutputFormat(flagsFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

// runFlagsRaw prints the compiler command line the build tool reports for
// file, without parsing it.
func runFlagsRaw(root fspath.Path, cfg *config.Config, file fspath.Path, logger *slog.Logger) {
	opts, err := cfg.FolderOptions(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	client, err := mach.NewClient(proc.Exec{}, root, opts.Mach, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	raw, err := client.CompileFlags(newContext(), file)
	if err != nil {
		if errdefs.IsCode(err, errdefs.BuildRequired) {
			fmt.Fprintf(os.Stderr, "The tree has not been built yet. Run './mach build' in %s first.\n", root)
		} else {
			fmt.Fprintf(os.Stderr, "Error fetching compiler command line: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Println(raw)
}

func formatFlagsHuman(resp *FlagsResponseCLI) (string, error) {
	var b strings.Builder
	c := resp.Configuration

	b.WriteString(fmt.Sprintf("Configuration for %s\n", resp.File))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("IntelliSense mode: %s\n", c.IntelliSenseMode))
	b.WriteString(fmt.Sprintf("Standard:          %s\n", c.Standard))
	if c.CompilerPath != "" {
		b.WriteString(fmt.Sprintf("Compiler:          %s\n", c.CompilerPath))
	}
	if c.WindowsSDKVersion != "" {
		b.WriteString(fmt.Sprintf("Windows SDK:       %s\n", c.WindowsSDKVersion))
	}

	b.WriteString(fmt.Sprintf("\nInclude path (%d):\n", len(c.IncludePath)))
	for _, p := range c.IncludePath {
		b.WriteString(fmt.Sprintf("  %s\n", p))
	}
	if len(c.ForcedInclude) > 0 {
		b.WriteString(fmt.Sprintf("\nForced includes (%d):\n", len(c.ForcedInclude)))
		for _, p := range c.ForcedInclude {
			b.WriteString(fmt.Sprintf("  %s\n", p))
		}
	}
	if len(c.MacFrameworkPath) > 0 {
		b.WriteString(fmt.Sprintf("\nFramework path (%d):\n", len(c.MacFrameworkPath)))
		for _, p := range c.MacFrameworkPath {
			b.WriteString(fmt.Sprintf("  %s\n", p))
		}
	}
	b.WriteString(fmt.Sprintf("\nDefines (%d):\n", len(c.Defines)))
	for _, d := range c.Defines {
		b.WriteString(fmt.Sprintf("  %s\n", d))
	}

	return b.String(), nil
}
