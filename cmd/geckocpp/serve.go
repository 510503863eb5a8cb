package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FractalBrew/geckocpp/internal/config"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/proc"
	"github.com/FractalBrew/geckocpp/internal/provider"
	"github.com/FractalBrew/geckocpp/internal/slogutil"
	"github.com/FractalBrew/geckocpp/internal/version"
	"github.com/FractalBrew/geckocpp/internal/watcher"
)

var (
	serveMirrorStderr bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configuration-provider server on stdio",
	Long: `Speak the configuration-provider protocol on stdin/stdout. The
editor host sends workspace folders and per-file configuration requests;
geckocpp answers with resolved compiler configurations and pushes staleness
notifications when build configuration changes.

Logs go to a file (stdout belongs to the protocol); --mirror-stderr also
copies them to stderr.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMirrorStderr, "mirror-stderr", false, "Also log to stderr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	dir, err := config.GlobalDir()
	if err != nil {
		return err
	}
	global, err := config.LoadGlobal(dir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	factory := slogutil.NewFactory(global.Logging, logLevelFlag)
	defer func() { _ = factory.Close() }()
	logger := factory.ServeLogger(serveMirrorStderr)

	store := openCache(global, logger)
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	source := config.Source(global, store, logger)
	server := provider.NewServer(version.Info(), proc.Exec{}, source, logger, slog.LevelWarn)

	if global.Watcher.Enabled {
		stop := startWatcher(global, source, server, logger)
		defer stop()
	}

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
	return nil
}

// startWatcher polls each folder's build configuration (the mach entry
// point, geckocpp.toml, and the generated autoconf.mk) and rebuilds the
// folder when any of them change. Returns a stop function.
func startWatcher(global *config.Config, source func(fspath.Path) folder.Options, server *provider.Server, logger *slog.Logger) func() {
	ws := server.Workspace()

	wcfg := watcher.DefaultConfig()
	if global.Watcher.PollIntervalMs > 0 {
		wcfg.PollInterval = time.Duration(global.Watcher.PollIntervalMs) * time.Millisecond
	}
	if global.Watcher.DebounceMs > 0 {
		wcfg.Debounce = time.Duration(global.Watcher.DebounceMs) * time.Millisecond
	}

	w := watcher.New(wcfg, logger, func(root fspath.Path, events []watcher.Event) {
		logger.Info("build configuration changed, rebuilding folder",
			"folder", root.String(), "events", len(events))
		ws.Rebuild(context.Background(), root)
	})

	ws.SetObserver(func(f *folder.Folder, added bool) {
		if !added {
			w.UnwatchFolder(f.Root())
			return
		}
		var objdir fspath.Path
		if build := f.Build(); build != nil {
			objdir = build.Env.ObjDir
		}
		w.WatchFolder(f.Root(), config.WatchTargets(f.Root(), source(f.Root()), objdir))
	})

	return func() {
		ws.SetObserver(nil)
		w.Stop()
	}
}
