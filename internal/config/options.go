package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/probecache"
	"github.com/FractalBrew/geckocpp/internal/workspace"
)

// CacheDir returns the probe cache location: the configured directory or
// the user cache directory.
func (c *Config) CacheDir() (fspath.Path, error) {
	if c.Cache.Dir != "" {
		return fspath.New(c.Cache.Dir)
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return fspath.Path{}, fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return fspath.New(filepath.Join(base, "geckocpp"))
}

// OpenCache opens the probe cache store. Returns nil when caching is
// disabled; the caller owns the store and must close it.
func (c *Config) OpenCache(logger *slog.Logger) (*probecache.Store, error) {
	if !c.Cache.Enabled {
		return nil, nil
	}
	dir, err := c.CacheDir()
	if err != nil {
		return nil, err
	}
	return probecache.OpenStore(dir, logger)
}

// FolderOptions translates the configuration into probing options. The
// store may be nil when caching is disabled.
func (c *Config) FolderOptions(store *probecache.Store) (folder.Options, error) {
	opts := folder.Options{Cache: store}

	if c.Compilers.C != "" || c.Compilers.CPP != "" {
		opts.Compilers = make(map[compiler.Language]string, 2)
		if c.Compilers.C != "" {
			opts.Compilers[compiler.C] = c.Compilers.C
		}
		if c.Compilers.CPP != "" {
			opts.Compilers[compiler.CPP] = c.Compilers.CPP
		}
	}

	if c.Mach.Path != "" {
		p, err := fspath.New(c.Mach.Path)
		if err != nil {
			return folder.Options{}, fmt.Errorf("invalid mach path: %w", err)
		}
		opts.Mach.Mach = p
	}
	if len(c.Mach.Env) > 0 {
		opts.Mach.Env = c.Mach.Env
	}
	if c.Mach.EnvFile != "" {
		p, err := fspath.New(c.Mach.EnvFile)
		if err != nil {
			return folder.Options{}, fmt.Errorf("invalid mach env file: %w", err)
		}
		opts.Mach.EnvFile = p
	}
	if c.Mach.MozillaBuild != "" {
		p, err := fspath.New(c.Mach.MozillaBuild)
		if err != nil {
			return folder.Options{}, fmt.Errorf("invalid MozillaBuild root: %w", err)
		}
		opts.Mach.MozillaBuild = p
	}

	if c.Headers.Classifier == ClassifierContent {
		opts.Classifier = folder.NewContentClassifier()
	}

	return opts, nil
}

// Source returns a per-folder options source: the global configuration
// overlaid with each folder's geckocpp.toml at probe time, so edits to
// the override file take effect on the next rebuild.
func Source(global *Config, store *probecache.Store, logger *slog.Logger) workspace.OptionsSource {
	return func(root fspath.Path) folder.Options {
		effective := global
		over, err := LoadFolder(root)
		if err != nil {
			logger.Warn("ignoring folder config", "folder", root.String(), "error", err.Error())
		} else if over != nil {
			merged := Overlay(global, over)
			if err := merged.Validate(); err != nil {
				logger.Warn("ignoring invalid folder config", "folder", root.String(), "error", err.Error())
			} else {
				effective = merged
			}
		}

		opts, err := effective.FolderOptions(store)
		if err != nil {
			logger.Warn("falling back to default options", "folder", root.String(), "error", err.Error())
			return folder.Options{Cache: store}
		}
		return opts
	}
}

// WatchTargets lists the files whose changes should trigger a rebuild of
// a folder: the mach entry point, the folder override file, and (once the
// tree is recognized) the generated build config.
func WatchTargets(root fspath.Path, opts folder.Options, objdir fspath.Path) []fspath.Path {
	entry := opts.Mach.Mach
	if entry.IsZero() {
		entry = root.Join("mach")
	}
	targets := []fspath.Path{entry, root.Join(FolderFileName)}
	if !objdir.IsZero() {
		targets = append(targets, objdir.Join("config", "autoconf.mk"))
	}
	return targets
}
