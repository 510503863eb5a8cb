package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/mach"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

var (
	doctorFix    bool
	doctorFormat string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration discovery issues",
	Long: `Check each stage of the discovery pipeline for this folder: the
mach entry point, the tree environment, the compiler probes, and the probe
cache.

Use --fix to output a shell script with suggested fixes (does not auto-execute).`,
	Run: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Output fix script (does not auto-execute)")
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, yaml, human)")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorResponseCLI contains the diagnostic results for CLI output
type DoctorResponseCLI struct {
	Folder  string           `json:"folder" yaml:"folder"`
	Healthy bool             `json:"healthy" yaml:"healthy"`
	Checks  []DoctorCheckCLI `json:"checks" yaml:"checks"`
}

// DoctorCheckCLI describes one diagnostic check
type DoctorCheckCLI struct {
	Name    string              `json:"name" yaml:"name"`
	Passed  bool                `json:"passed" yaml:"passed"`
	Details string              `json:"details,omitempty" yaml:"details,omitempty"`
	Fixes   []errdefs.FixAction `json:"suggestedFixes,omitempty" yaml:"suggestedFixes,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) {
	root := mustResolveFolder()
	cfg := mustLoadConfig(root)
	logger, factory := newCLILogger(cfg)
	defer func() { _ = factory.Close() }()

	resp := &DoctorResponseCLI{Folder: root.String(), Healthy: true}
	add := func(c DoctorCheckCLI) {
		if !c.Passed {
			resp.Healthy = false
		}
		resp.Checks = append(resp.Checks, c)
	}

	// Stage 1: the mach entry point.
	opts, err := cfg.FolderOptions(nil)
	if err != nil {
		add(DoctorCheckCLI{Name: "config", Details: err.Error()})
		finishDoctor(resp)
		return
	}
	machPath, found := mach.Locate(root, opts.Mach.Mach)
	if !found {
		expected := opts.Mach.Mach
		if expected.IsZero() {
			expected = root.Join("mach")
		}
		add(DoctorCheckCLI{
			Name:    "mach",
			Details: fmt.Sprintf("no mach entry point at %s", expected),
			Fixes:   errdefs.GetSuggestedFixes(errdefs.NotABuildTree),
		})
		finishDoctor(resp)
		return
	}
	add(DoctorCheckCLI{Name: "mach", Passed: true, Details: machPath.String()})

	// Stage 2: the tree environment.
	client, err := mach.NewClient(proc.Exec{}, root, opts.Mach, logger)
	if err != nil {
		add(DoctorCheckCLI{Name: "environment", Details: err.Error()})
		finishDoctor(resp)
		return
	}
	env, err := client.Environment(newContext())
	if err != nil {
		check := DoctorCheckCLI{Name: "environment", Details: err.Error()}
		if code, ok := errdefs.CodeOf(err); ok {
			check.Fixes = errdefs.GetSuggestedFixes(code)
		}
		add(check)
		finishDoctor(resp)
		return
	}
	add(DoctorCheckCLI{Name: "environment", Passed: true,
		Details: fmt.Sprintf("topobjdir=%s topsrcdir=%s", env.ObjDir, env.SrcDir)})

	// Stage 3: one probe per language compiler.
	store := openCache(cfg, logger)
	f, err := probeFolder(newContext(), root, cfg, store, logger)
	if err != nil {
		add(DoctorCheckCLI{Name: "compilers", Details: err.Error()})
		finishDoctor(resp)
		return
	}
	if build := f.Build(); build != nil {
		for _, c := range []*compiler.Compiler{build.C, build.CPP} {
			add(DoctorCheckCLI{
				Name:   "compiler/" + c.Lang.String(),
				Passed: true,
				Details: fmt.Sprintf("%s (%s, %d defines)",
					c.Bin, c.Settings.IntelliSenseMode, len(c.Defaults.Defines)),
			})
		}
	} else {
		check := DoctorCheckCLI{Name: "compilers"}
		if reason := f.Reason(); reason != nil {
			check.Details = reason.Error()
			if code, ok := errdefs.CodeOf(reason); ok {
				check.Fixes = errdefs.GetSuggestedFixes(code)
			}
		}
		add(check)
	}

	// Stage 4: the probe cache.
	switch {
	case !cfg.Cache.Enabled:
		add(DoctorCheckCLI{Name: "cache", Passed: true, Details: "disabled"})
	case store == nil:
		add(DoctorCheckCLI{Name: "cache", Details: "failed to open; probing runs uncached"})
	default:
		stats, err := store.Stats()
		if err != nil {
			add(DoctorCheckCLI{Name: "cache", Details: err.Error()})
		} else {
			add(DoctorCheckCLI{Name: "cache", Passed: true,
				Details: fmt.Sprintf("%d entries at %s", stats.Entries, stats.Path)})
		}
	}

	finishDoctor(resp)
}

func finishDoctor(resp *DoctorResponseCLI) {
	if doctorFix {
		fmt.Print(fixScript(resp))
		if !resp.Healthy {
			os.Exit(1)
		}
		return
	}

	output, err := FormatResponse(resp, OutputFormat(doctorFormat))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
	if !resp.Healthy {
		os.Exit(1)
	}
}

// fixScript renders the suggested fixes of failed checks as a shell script.
// Unsafe commands are left commented out.
func fixScript(resp *DoctorResponseCLI) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n# Suggested fixes from geckocpp doctor. Review before running.\n")
	for _, check := range resp.Checks {
		if check.Passed {
			continue
		}
		b.WriteString(fmt.Sprintf("\n# %s: %s\n", check.Name, check.Details))
		for _, fix := range check.Fixes {
			switch fix.Type {
			case errdefs.RunCommand:
				if fix.Safe {
					b.WriteString(fix.Command + "\n")
				} else {
					b.WriteString(fmt.Sprintf("# %s  (%s)\n", fix.Command, fix.Description))
				}
			case errdefs.OpenDocs:
				b.WriteString(fmt.Sprintf("# see %s\n", fix.URL))
			}
		}
	}
	return b.String()
}

func formatDoctorHuman(resp *DoctorResponseCLI) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Diagnostics for %s\n", resp.Folder))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	for _, check := range resp.Checks {
		mark := "ok  "
		if !check.Passed {
			mark = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %-16s %s\n", mark, check.Name, check.Details))
		for _, fix := range check.Fixes {
			if fix.Command != "" {
				b.WriteString(fmt.Sprintf("       fix: %s\n", fix.Command))
			} else if fix.URL != "" {
				b.WriteString(fmt.Sprintf("       see: %s\n", fix.URL))
			}
		}
	}
	if resp.Healthy {
		b.WriteString("\nAll checks passed.\n")
	} else {
		b.WriteString("\nSome checks failed. Run with --fix to get a fix script.\n")
	}

	return b.String(), nil
}
