package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/FractalBrew/geckocpp/internal/config"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/probecache"
	"github.com/FractalBrew/geckocpp/internal/proc"
	"github.com/FractalBrew/geckocpp/internal/slogutil"
)

// newContext returns the context CLI commands run under.
func newContext() context.Context {
	return context.Background()
}

// mustResolveFolder resolves the workspace folder root or exits.
func mustResolveFolder() fspath.Path {
	root, err := resolveFolder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving folder: %v\n", err)
		os.Exit(1)
	}
	return root
}

// mustLoadConfig loads the effective configuration for root (global config
// overlaid with the folder's geckocpp.toml) or exits.
func mustLoadConfig(root fspath.Path) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newCLILogger builds the stderr logger one-shot commands use. The caller
// must Close the factory before exiting.
func newCLILogger(cfg *config.Config) (*slog.Logger, *slogutil.Factory) {
	factory := slogutil.NewFactory(cfg.Logging, logLevelFlag)
	return factory.CLILogger(), factory
}

// openCache opens the probe cache when enabled. Failure to open degrades to
// uncached probing with a warning rather than an error.
func openCache(cfg *config.Config, logger *slog.Logger) *probecache.Store {
	if !cfg.Cache.Enabled {
		return nil
	}
	store, err := cfg.OpenCache(logger)
	if err != nil {
		logger.Warn("probe cache unavailable, probing uncached", "error", err.Error())
		return nil
	}
	return store
}

// probeFolder builds and probes a folder model for one-shot commands.
func probeFolder(ctx context.Context, root fspath.Path, cfg *config.Config, store *probecache.Store, logger *slog.Logger) (*folder.Folder, error) {
	opts, err := cfg.FolderOptions(store)
	if err != nil {
		return nil, err
	}
	f := folder.New(root, proc.Exec{}, opts, logger)
	f.Probe(ctx)
	return f, nil
}

// mustRecognizedFolder probes root and exits with the probe failure reason
// unless the tree is recognized.
func mustRecognizedFolder(ctx context.Context, root fspath.Path, cfg *config.Config, store *probecache.Store, logger *slog.Logger) *folder.Folder {
	f, err := probeFolder(ctx, root, cfg, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !f.Recognized() {
		if reason := f.Reason(); reason != nil {
			fmt.Fprintf(os.Stderr, "%s is not a usable build tree: %v\n", root, reason)
		} else {
			fmt.Fprintf(os.Stderr, "%s is not a recognized build tree\n", root)
		}
		os.Exit(1)
	}
	return f
}
