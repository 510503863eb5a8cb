// Package watcher polls the files a workspace folder's build
// configuration depends on and reports changes in debounced batches.
// Polling is deliberate: the interesting files live on network mounts and
// MSYS paths where inotify-style watching is unreliable.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one observed change to a watched file.
type Event struct {
	Type      EventType
	Path      fspath.Path
	Timestamp time.Time
}

// ChangeHandler is called with the batched changes of one folder after
// the debounce window closes.
type ChangeHandler func(root fspath.Path, events []Event)

// Config contains watcher configuration
type Config struct {
	Enabled      bool
	PollInterval time.Duration
	Debounce     time.Duration
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		PollInterval: 2 * time.Second,
		Debounce:     5 * time.Second,
	}
}

// Watcher polls registered files per workspace folder.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	wg     sync.WaitGroup

	folders map[string]*folderWatcher
}

// folderWatcher tracks the watched files of a single folder.
type folderWatcher struct {
	root    fspath.Path
	batch   *BatchDebouncer
	stopCh  chan struct{}
	mu      sync.Mutex
	targets []fspath.Path
	// seen maps target path to last observed mtime; a zero time means
	// the file was absent.
	seen map[string]time.Time
}

// New creates a watcher. The handler runs on a timer goroutine; it must
// not block for long.
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())

	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	return &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		folders: make(map[string]*folderWatcher),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop halts all polling and waits for the poll goroutines to exit.
// Pending debounced batches are dropped.
func (w *Watcher) Stop() {
	w.cancel()

	w.mu.Lock()
	for _, fw := range w.folders {
		close(fw.stopCh)
		fw.batch.Cancel()
	}
	w.folders = make(map[string]*folderWatcher)
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("watcher stopped")
}

// WatchFolder starts polling targets for a folder. Watching the same
// folder again replaces its target set.
func (w *Watcher) WatchFolder(root fspath.Path, targets []fspath.Path) {
	if !w.config.Enabled {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if fw, exists := w.folders[root.String()]; exists {
		fw.replaceTargets(targets)
		return
	}

	fw := &folderWatcher{
		root:   root,
		stopCh: make(chan struct{}),
	}
	fw.batch = NewBatchDebouncer(w.config.Debounce, func(events []Event) {
		w.logger.Debug("build config changed", "folder", root.String(), "events", len(events))
		if w.handler != nil {
			w.handler(root, events)
		}
	})
	fw.replaceTargets(targets)

	w.folders[root.String()] = fw

	w.wg.Add(1)
	go w.pollFolder(fw)

	w.logger.Info("watching folder", "folder", root.String(), "targets", len(targets))
}

// UnwatchFolder stops polling a folder.
func (w *Watcher) UnwatchFolder(root fspath.Path) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if fw, exists := w.folders[root.String()]; exists {
		close(fw.stopCh)
		fw.batch.Cancel()
		delete(w.folders, root.String())
		w.logger.Info("stopped watching folder", "folder", root.String())
	}
}

// WatchedFolders returns the roots currently being polled, in map order.
func (w *Watcher) WatchedFolders() []fspath.Path {
	w.mu.RLock()
	defer w.mu.RUnlock()

	roots := make([]fspath.Path, 0, len(w.folders))
	for _, fw := range w.folders {
		roots = append(roots, fw.root)
	}
	return roots
}

// pollFolder ticks until the folder is unwatched or the watcher stops.
func (w *Watcher) pollFolder(fw *folderWatcher) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fw.check()
		case <-fw.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

// replaceTargets swaps the watched file set, keeping known mtimes for
// targets that survive so no spurious events fire.
func (fw *folderWatcher) replaceTargets(targets []fspath.Path) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	seen := make(map[string]time.Time, len(targets))
	for _, target := range targets {
		key := target.String()
		if prev, ok := fw.seen[key]; ok {
			seen[key] = prev
		} else {
			seen[key] = modTime(target)
		}
	}
	fw.targets = targets
	fw.seen = seen
}

// check stats every target once and feeds observed changes into the
// debounced batch.
func (fw *folderWatcher) check() {
	fw.mu.Lock()
	targets := fw.targets
	fw.mu.Unlock()

	now := time.Now()
	for _, target := range targets {
		current := modTime(target)

		fw.mu.Lock()
		last := fw.seen[target.String()]
		fw.seen[target.String()] = current
		fw.mu.Unlock()

		switch {
		case last.IsZero() && !current.IsZero():
			fw.batch.Add(Event{Type: EventCreate, Path: target, Timestamp: now})
		case !last.IsZero() && current.IsZero():
			fw.batch.Add(Event{Type: EventDelete, Path: target, Timestamp: now})
		case current.After(last):
			fw.batch.Add(Event{Type: EventModify, Path: target, Timestamp: now})
		}
	}
}

// modTime returns the file's mtime, or the zero time when it is absent.
func modTime(p fspath.Path) time.Time {
	info, err := os.Stat(p.String())
	if err != nil || info.IsDir() {
		return time.Time{}
	}
	return info.ModTime()
}
