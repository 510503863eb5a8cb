// Package folder models one workspace folder's build tree: the recognition
// state machine, the published Build (environment plus the two language
// compilers) and per-file configuration resolution. A Build is immutable
// once published; rebuilds construct a replacement privately and swap it in
// whole, so concurrent readers see fully-old or fully-new, never a mix.
package folder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/FractalBrew/geckocpp/internal/compiler"
	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/mach"
	"github.com/FractalBrew/geckocpp/internal/makevars"
	"github.com/FractalBrew/geckocpp/internal/probecache"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

// State is a folder's position in the recognition lifecycle.
type State int

const (
	// Unprobed folders have not been examined yet
	Unprobed State = iota
	// Probing folders are running the recognition pipeline
	Probing
	// Recognized folders answer configuration queries
	Recognized
	// NotABuildTree folders stay usable as plain editor folders, just
	// without smart configuration
	NotABuildTree
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case Unprobed:
		return "unprobed"
	case Probing:
		return "probing"
	case Recognized:
		return "recognized"
	case NotABuildTree:
		return "not-a-build-tree"
	}
	return "unknown"
}

// backendCacheSize bounds the per-folder cache of parsed backend.mk files.
const backendCacheSize = 256

// Options is the user configuration that affects probing and resolution.
type Options struct {
	// Compilers overrides the compiler command per language. Values may
	// carry launcher prefixes, like the CC/CXX build variables do.
	Compilers map[compiler.Language]string
	// Mach configures build-tool invocation.
	Mach mach.Options
	// Classifier decides the language of header files. Nil means the
	// .c-sibling rule.
	Classifier Classifier
	// Cache is the probe cache. Nil disables caching.
	Cache *probecache.Store
}

// Build is one fully-probed model of a tree.
type Build struct {
	// Generation distinguishes this build from its predecessors; caches
	// key on it so a rebuild invalidates them for free.
	Generation string
	// Env is the tree environment mach reported.
	Env *mach.Environment
	// Client is the mach client the build was probed with.
	Client *mach.Client
	// C and CPP are the two language compilers.
	C   *compiler.Compiler
	CPP *compiler.Compiler
}

// CompilerFor returns the compiler answering for lang.
func (b *Build) CompilerFor(lang compiler.Language) *compiler.Compiler {
	if lang == compiler.C {
		return b.C
	}
	return b.CPP
}

// Folder is the per-workspace-folder model.
type Folder struct {
	root   fspath.Path
	opts   Options
	runner proc.Runner
	logger *slog.Logger

	backend *lru.Cache[string, makevars.Vars]

	mu     sync.RWMutex
	state  State
	build  *Build
	reason error
}

// New creates an unprobed folder model. Probe must run before configuration
// queries answer anything.
func New(root fspath.Path, runner proc.Runner, opts Options, logger *slog.Logger) *Folder {
	if opts.Classifier == nil {
		opts.Classifier = SiblingClassifier{}
	}
	backend, _ := lru.New[string, makevars.Vars](backendCacheSize)
	return &Folder{
		root:    root,
		opts:    opts,
		runner:  runner,
		logger:  logger,
		backend: backend,
		state:   Unprobed,
	}
}

// Root returns the folder root.
func (f *Folder) Root() fspath.Path {
	return f.root
}

// State returns the current lifecycle state.
func (f *Folder) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Recognized reports whether the folder currently answers configuration
// queries.
func (f *Folder) Recognized() bool {
	return f.State() == Recognized
}

// CanProvideConfig is Recognized under the name the provider protocol uses.
func (f *Folder) CanProvideConfig() bool {
	return f.Recognized()
}

// Reason returns why the folder is not a build tree, or nil.
func (f *Folder) Reason() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.reason
}

// Build returns the published build, or nil before recognition.
func (f *Folder) Build() *Build {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.build
}

// Probe runs the recognition pipeline. Concurrent calls collapse: a second
// caller observing Probing returns immediately.
func (f *Folder) Probe(ctx context.Context) State {
	f.mu.Lock()
	if f.state == Probing {
		f.mu.Unlock()
		return Probing
	}
	f.state = Probing
	f.mu.Unlock()

	build, err := f.construct(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Warn("folder not recognized", "folder", f.root.String(), "reason", err.Error())
		f.state = NotABuildTree
		f.build = nil
		f.reason = err
		return f.state
	}
	f.state = Recognized
	f.build = build
	f.reason = nil
	f.backend.Purge()
	return f.state
}

// Rebuild discards the published model and re-probes from scratch. The old
// model stays visible until the replacement is ready. Returns the
// recognized-ness before and after so the owner can adjust its counter.
func (f *Folder) Rebuild(ctx context.Context) (was, now bool) {
	f.mu.RLock()
	was = f.state == Recognized
	f.mu.RUnlock()

	build, err := f.construct(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Warn("folder not recognized after rebuild", "folder", f.root.String(), "reason", err.Error())
		f.state = NotABuildTree
		f.build = nil
		f.reason = err
		return was, false
	}
	f.state = Recognized
	f.build = build
	f.reason = nil
	f.backend.Purge()
	return was, true
}

// construct runs the probe pipeline in private state: locate mach, fetch
// the environment, set up one compiler per language.
func (f *Folder) construct(ctx context.Context) (*Build, error) {
	client, err := mach.NewClient(f.runner, f.root, f.opts.Mach, f.logger)
	if err != nil {
		return nil, err
	}

	env, err := client.Environment(ctx)
	if err != nil {
		return nil, err
	}

	build := &Build{
		Generation: uuid.New().String(),
		Env:        env,
		Client:     client,
	}

	for _, lang := range []compiler.Language{compiler.C, compiler.CPP} {
		comp, err := f.setupCompiler(ctx, env, lang)
		if err != nil {
			return nil, err
		}
		if lang == compiler.C {
			build.C = comp
		} else {
			build.CPP = comp
		}
	}

	f.logger.Info("folder recognized",
		"folder", f.root.String(),
		"objdir", env.ObjDir.String(),
		"generation", build.Generation)
	return build, nil
}

// buildVarFor names the per-language compiler build variable.
func buildVarFor(lang compiler.Language) string {
	if lang == compiler.C {
		return "CC"
	}
	return "CXX"
}

func (f *Folder) setupCompiler(ctx context.Context, env *mach.Environment, lang compiler.Language) (*compiler.Compiler, error) {
	value := f.opts.Compilers[lang]
	if value == "" {
		value = env.Vars.Get(buildVarFor(lang))
	}
	if value == "" {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			fmt.Sprintf("build variables define no %s", buildVarFor(lang)), nil)
	}

	bin, err := compiler.ResolveBinary(value)
	if err != nil {
		return nil, errdefs.New(errdefs.MalformedEnvironment,
			fmt.Sprintf("cannot resolve %s from %q", buildVarFor(lang), value), err)
	}
	// Build variables written under the MSYS layer spell paths in unixy
	// notation.
	bin = fspath.FromUnixy(bin, fspath.NativeFlavor())

	dialect := compiler.DialectForBinary(bin)
	settings := compiler.NewSettings(dialect, lang, "", env.Vars.Get("WINDOWS_SDK_VERSION"), env.MacOSSDK)
	stdFlag := dialect.StdFlag(settings.Standard)

	defaults, err := f.probeDefaults(ctx, bin, dialect, lang, stdFlag, settings.IntelliSenseMode)
	if err != nil {
		return nil, err
	}

	return &compiler.Compiler{
		Bin:      bin,
		Lang:     lang,
		Dialect:  dialect,
		Settings: settings,
		Defaults: defaults,
	}, nil
}

// probeDefaults consults the probe cache before spawning the compiler.
func (f *Folder) probeDefaults(ctx context.Context, bin string, dialect compiler.Dialect, lang compiler.Language, stdFlag, mode string) (*compiler.Defaults, error) {
	var key string
	if f.opts.Cache != nil {
		k, err := probecache.Key(bin, dialect, lang, stdFlag)
		if err != nil {
			f.logger.Debug("probe cache key unavailable", "compiler", bin, "error", err)
		} else {
			key = k
			if entry, err := f.opts.Cache.Get(key); err == nil && entry != nil {
				f.logger.Debug("probe cache hit", "compiler", bin, "language", lang.String())
				return entry.Defaults, nil
			}
		}
	}

	defaults, res, err := compiler.Probe(ctx, f.runner, bin, dialect, lang, stdFlag,
		proc.Options{Cwd: f.root})
	if err != nil {
		return nil, err
	}

	if f.opts.Cache != nil && key != "" {
		entry := &probecache.Entry{Defaults: defaults, Output: res.Combined()}
		if err := f.opts.Cache.Put(key, bin, mode, entry); err != nil {
			f.logger.Warn("failed to cache probe result", "compiler", bin, "error", err)
		}
	}
	return defaults, nil
}

// BrowseConfiguration aggregates the project-wide include search path: the
// source root, the generated-header locations in the object directory, and
// both compilers' default include sets, deduplicated in stable order.
func (f *Folder) BrowseConfiguration() ([]fspath.Path, error) {
	build := f.Build()
	if build == nil {
		return nil, errdefs.New(errdefs.ConfigUnavailable,
			"folder is not a recognized build tree", nil)
	}

	var paths []fspath.Path
	paths = append(paths, build.Env.SrcDir)
	paths = append(paths, build.Env.ObjDir.Join("dist", "include"))
	paths = append(paths, build.Env.ObjDir.Join("ipc", "ipdl", "_ipdlheaders"))
	paths = append(paths, build.C.Defaults.Includes()...)
	paths = append(paths, build.CPP.Defaults.Includes()...)

	seen := make(map[string]bool, len(paths))
	out := make([]fspath.Path, 0, len(paths))
	for _, p := range paths {
		if seen[p.String()] {
			continue
		}
		seen[p.String()] = true
		out = append(out, p)
	}
	return out, nil
}
