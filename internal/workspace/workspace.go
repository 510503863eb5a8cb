// Package workspace coordinates the set of open folders. It owns the
// folder map and the recognized counter, and drives the host-facing
// provider registration from counter transitions: the registration is
// created when the first folder becomes recognized, torn down when the
// last one goes away, and re-created on the next transition.
package workspace

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/folder"
	"github.com/FractalBrew/geckocpp/internal/fspath"
	"github.com/FractalBrew/geckocpp/internal/proc"
)

// Notifier receives the workspace's host-facing events. Ownership is
// one-way: implementations must not call back into the Workspace, since
// events may fire with its lock held.
type Notifier interface {
	// RegisterProvider fires when the first folder becomes recognized.
	RegisterProvider()
	// UnregisterProvider fires when the last recognized folder goes away.
	UnregisterProvider()
	// ConfigurationsStale fires when a rebuild may have invalidated
	// previously served per-file configurations.
	ConfigurationsStale()
	// BrowseStale fires when a rebuild may have changed browse paths.
	BrowseStale()
	// BuildRequired fires at most once per folder until its next rebuild.
	BuildRequired(root fspath.Path, reason error)
}

// NopNotifier ignores every event.
type NopNotifier struct{}

// RegisterProvider implements Notifier.
func (NopNotifier) RegisterProvider() {}

// UnregisterProvider implements Notifier.
func (NopNotifier) UnregisterProvider() {}

// ConfigurationsStale implements Notifier.
func (NopNotifier) ConfigurationsStale() {}

// BrowseStale implements Notifier.
func (NopNotifier) BrowseStale() {}

// BuildRequired implements Notifier.
func (NopNotifier) BuildRequired(fspath.Path, error) {}

// OptionsSource yields the effective options for a folder at probe time,
// so configuration changes take effect on the next rebuild.
type OptionsSource func(root fspath.Path) folder.Options

// Observer sees folder lifecycle transitions after they land: added and
// re-probed folders with added=true, removed folders with added=false.
// Invoked without the workspace lock held.
type Observer func(f *folder.Folder, added bool)

// Workspace tracks open folders and their recognition state.
type Workspace struct {
	runner   proc.Runner
	source   OptionsSource
	notifier Notifier
	logger   *slog.Logger

	mu         sync.RWMutex
	observer   Observer
	folders    map[string]*folder.Folder
	recognized int
	// notices records folders whose build-required notice already fired;
	// cleared on rebuild so the notice re-arms.
	notices map[string]bool
}

// New creates an empty workspace.
func New(runner proc.Runner, source OptionsSource, notifier Notifier, logger *slog.Logger) *Workspace {
	if source == nil {
		source = func(fspath.Path) folder.Options { return folder.Options{} }
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Workspace{
		runner:   runner,
		source:   source,
		notifier: notifier,
		logger:   logger,
		folders:  make(map[string]*folder.Folder),
		notices:  make(map[string]bool),
	}
}

// SetObserver installs the lifecycle observer. Nil clears it.
func (w *Workspace) SetObserver(obs Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observer = obs
}

// observe invokes the observer outside the lock.
func (w *Workspace) observe(f *folder.Folder, added bool) {
	w.mu.RLock()
	obs := w.observer
	w.mu.RUnlock()
	if obs != nil {
		obs(f, added)
	}
}

// AddFolder registers root and probes it to completion. Adding a root
// that is already tracked returns the existing model without re-probing.
func (w *Workspace) AddFolder(ctx context.Context, root fspath.Path) *folder.Folder {
	w.mu.Lock()
	if f, ok := w.folders[root.String()]; ok {
		w.mu.Unlock()
		return f
	}
	f := folder.New(root, w.runner, w.source(root), w.logger)
	w.folders[root.String()] = f
	w.mu.Unlock()

	f.Probe(ctx)

	w.mu.Lock()
	if w.folders[root.String()] != f {
		// Removed while probing.
		w.mu.Unlock()
		return f
	}
	w.recount()
	w.noticeLocked(f)
	w.mu.Unlock()

	w.observe(f, true)
	return f
}

// RemoveFolder drops root from the workspace. Reports whether it was
// tracked.
func (w *Workspace) RemoveFolder(root fspath.Path) bool {
	w.mu.Lock()
	f, ok := w.folders[root.String()]
	if !ok {
		w.mu.Unlock()
		return false
	}
	delete(w.folders, root.String())
	delete(w.notices, root.String())
	w.recount()
	w.mu.Unlock()

	w.observe(f, false)
	return true
}

// Rebuild re-probes the named folders, or every folder when roots is
// empty. Each folder's published model stays visible until its
// replacement is ready. Staleness notifications fire once at the end if
// any rebuilt folder was or is recognized.
func (w *Workspace) Rebuild(ctx context.Context, roots ...fspath.Path) {
	targets := w.rebuildTargets(roots)

	stale := false
	for _, f := range targets {
		w.mu.Lock()
		delete(w.notices, f.Root().String())
		w.mu.Unlock()

		was, now := f.Rebuild(ctx)
		if was || now {
			stale = true
		}

		w.mu.Lock()
		w.recount()
		w.noticeLocked(f)
		w.mu.Unlock()

		w.observe(f, true)
	}

	if stale {
		w.notifier.ConfigurationsStale()
		w.notifier.BrowseStale()
	}
}

// rebuildTargets snapshots the folders a rebuild covers.
func (w *Workspace) rebuildTargets(roots []fspath.Path) []*folder.Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var targets []*folder.Folder
	if len(roots) == 0 {
		for _, f := range w.folders {
			targets = append(targets, f)
		}
	} else {
		for _, root := range roots {
			if f, ok := w.folders[root.String()]; ok {
				targets = append(targets, f)
			}
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Root().String() < targets[j].Root().String()
	})
	return targets
}

// FolderFor resolves the folder owning path: the tracked folder with the
// deepest root containing it, or nil.
func (w *Workspace) FolderFor(path fspath.Path) *folder.Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var best *folder.Folder
	for _, f := range w.folders {
		if !f.Root().Contains(path) {
			continue
		}
		if best == nil || len(f.Root().String()) > len(best.Root().String()) {
			best = f
		}
	}
	return best
}

// Folders returns every tracked folder, ordered by root.
func (w *Workspace) Folders() []*folder.Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*folder.Folder, 0, len(w.folders))
	for _, f := range w.folders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Root().String() < out[j].Root().String()
	})
	return out
}

// Recognized returns the folders currently answering configuration
// queries, ordered by root.
func (w *Workspace) Recognized() []*folder.Folder {
	var out []*folder.Folder
	for _, f := range w.Folders() {
		if f.Recognized() {
			out = append(out, f)
		}
	}
	return out
}

// CanConfigure reports whether any folder currently answers configuration
// queries.
func (w *Workspace) CanConfigure() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.recognized > 0
}

// recount recomputes the recognized counter and fires registration
// transitions. Callers hold the write lock.
func (w *Workspace) recount() {
	count := 0
	for _, f := range w.folders {
		if f.Recognized() {
			count++
		}
	}
	prev := w.recognized
	w.recognized = count

	switch {
	case prev == 0 && count > 0:
		w.logger.Info("registering configuration provider", "recognized", count)
		w.notifier.RegisterProvider()
	case prev > 0 && count == 0:
		w.logger.Info("unregistering configuration provider")
		w.notifier.UnregisterProvider()
	}
}

// noticeLocked fires the one-time build-required notice for f if its
// probe failed on an unbuilt tree. Callers hold the write lock.
func (w *Workspace) noticeLocked(f *folder.Folder) {
	reason := f.Reason()
	if reason == nil || !errdefs.IsCode(reason, errdefs.BuildRequired) {
		return
	}
	key := f.Root().String()
	if w.notices[key] {
		return
	}
	w.notices[key] = true
	w.notifier.BuildRequired(f.Root(), reason)
}
