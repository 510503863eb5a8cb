package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/version"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// folderFlag is the CLI --folder flag value
	folderFlag string
)

var rootCmd = &cobra.Command{
	Use:   "geckocpp",
	Short: "geckocpp - C/C++ configuration discovery for Mach build trees",
	Long: `geckocpp discovers the exact compiler configuration (include paths,
defines, forced includes, language standard) that applies to any source file
in a Mach-style build tree, so an editor's code-intelligence engine can parse
the file correctly without running the real build.

Run 'geckocpp serve' to speak the configuration-provider protocol on stdio,
or use the one-shot queries (flags, environment, browse, status) directly.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("geckocpp version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&folderFlag, "folder", "",
		"Workspace folder root (default: current directory)")
}

// resolveFolder determines the workspace folder root from --folder or the
// current directory, always absolute.
func resolveFolder() (fspath.Path, error) {
	dir := folderFlag
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fspath.Path{}, err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fspath.Path{}, err
	}
	return fspath.New(abs)
}
