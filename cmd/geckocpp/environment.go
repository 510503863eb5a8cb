package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/mach"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

var (
	environmentFormat string
)

var environmentCmd = &cobra.Command{
	Use:   "environment",
	Short: "Show what the build tool reports about this tree",
	Long: `Query the build tool for the tree environment: object directory,
source root, mozconfig, and the build variables recorded by the last
configure run.`,
	Run: runEnvironment,
}

func init() {
	environmentCmd.Flags().StringVar(&environmentFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(environmentCmd)
}

// EnvironmentResponseCLI describes the tree environment for CLI output.
type EnvironmentResponseCLI struct {
	Folder    string            `json:"folder" yaml:"folder"`
	Mach      string            `json:"mach" yaml:"mach"`
	ObjDir    string            `json:"topobjdir" yaml:"topobjdir"`
	SrcDir    string            `json:"topsrcdir" yaml:"topsrcdir"`
	Mozconfig string            `json:"mozconfig,omitempty" yaml:"mozconfig,omitempty"`
	MacOSSDK  string            `json:"macosSdk,omitempty" yaml:"macosSdk,omitempty"`
	CC        string            `json:"cc,omitempty" yaml:"cc,omitempty"`
	CXX       string            `json:"cxx,omitempty" yaml:"cxx,omitempty"`
	Vars      map[string]string `json:"vars,omitempty" yaml:"vars,omitempty"`
}

func runEnvironment(cmd *cobra.Command, args []string) {
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

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

	env, err := client.Environment(newContext())
	if err != nil {
		if errdefs.IsCode(err, errdefs.BuildRequired) {
			fmt.Fprintf(os.Stderr, "The tree has not been built yet. Run './mach build' in %s first.\n", root)
		} else {
			fmt.Fprintf(os.Stderr, "Error querying environment: %v\n", err)
		}
		os.Exit(1)
	}

	resp := &EnvironmentResponseCLI{
		Folder:    root.String(),
		Mach:      client.Mach().String(),
		ObjDir:    env.ObjDir.String(),
		SrcDir:    env.SrcDir.String(),
		Mozconfig: env.MozconfigPath,
		CC:        env.Vars.Get("CC"),
		CXX:       env.Vars.Get("CXX"),
	}
	if !env.MacOSSDK.IsZero() {
		resp.MacOSSDK = env.MacOSSDK.String()
	}
	if environmentFormat != "human" {
		resp.Vars = env.Vars
	}

	output, err := FormatResponse(resp, OutputFormat(environmentFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func formatEnvironmentHuman(resp *EnvironmentResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Tree environment for %s\n", resp.Folder))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	b.WriteString(fmt.Sprintf("Mach:       %s\n", resp.Mach))
	b.WriteString(fmt.Sprintf("Object dir: %s\n", resp.ObjDir))
	b.WriteString(fmt.Sprintf("Source dir: %s\n", resp.SrcDir))
	if resp.Mozconfig != "" {
		b.WriteString(fmt.Sprintf("Mozconfig:  %s\n", resp.Mozconfig))
	}
	if resp.MacOSSDK != "" {
		b.WriteString(fmt.Sprintf("macOS SDK:  %s\n", resp.MacOSSDK))
	}
	if resp.CC != "" {
		b.WriteString(fmt.Sprintf("CC:         %s\n", resp.CC))
	}
	if resp.CXX != "" {
		b.WriteString(fmt.Sprintf("CXX:        %s\n", resp.CXX))
	}

	return b.String(), nil
}
