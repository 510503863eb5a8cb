package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if !config.Enabled {
		t.Error("Enabled should be true by default")
	}
	if config.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", config.PollInterval)
	}
	if config.Debounce != 5*time.Second {
		t.Errorf("Debounce = %v, want 5s", config.Debounce)
	}
}

func TestNewWatcher(t *testing.T) {
	w := New(Config{Enabled: true}, discardLogger(), nil)
	if w == nil {
		t.Fatal("New() returned nil")
	}
	if w.folders == nil {
		t.Error("folders map should be initialized")
	}
	if w.config.PollInterval <= 0 || w.config.Debounce <= 0 {
		t.Error("zero intervals should be replaced with defaults")
	}
}

func TestBatchDebouncer(t *testing.T) {
	batches := make(chan []Event, 4)
	b := NewBatchDebouncer(30*time.Millisecond, func(events []Event) {
		batches <- events
	})

	root := fspath.MustNew(t.TempDir())
	b.Add(Event{Type: EventCreate, Path: root.Join("a")})
	b.Add(Event{Type: EventModify, Path: root.Join("b")})
	b.Add(Event{Type: EventModify, Path: root.Join("c")})

	if b.EventCount() != 3 {
		t.Errorf("EventCount() = %d, want 3 while pending", b.EventCount())
	}

	select {
	case events := <-batches:
		if len(events) != 3 {
			t.Errorf("batch size = %d, want 3", len(events))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch emitted")
	}

	// A second burst emits a fresh batch.
	b.Add(Event{Type: EventDelete, Path: root.Join("a")})
	select {
	case events := <-batches:
		if len(events) != 1 || events[0].Type != EventDelete {
			t.Errorf("batch = %+v", events)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no second batch emitted")
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	batches := make(chan []Event, 1)
	b := NewBatchDebouncer(20*time.Millisecond, func(events []Event) {
		batches <- events
	})

	b.Add(Event{Type: EventModify})
	b.Cancel()

	select {
	case <-batches:
		t.Error("cancelled batch should not emit")
	case <-time.After(100 * time.Millisecond):
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount() = %d after Cancel", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	batches := make(chan []Event, 1)
	b := NewBatchDebouncer(time.Hour, func(events []Event) {
		batches <- events
	})

	b.Add(Event{Type: EventModify})
	b.Flush()

	select {
	case events := <-batches:
		if len(events) != 1 {
			t.Errorf("batch size = %d, want 1", len(events))
		}
	case <-time.After(time.Second):
		t.Fatal("Flush() did not emit")
	}
}

// watchFixture wires a watcher with fast intervals to a channel handler.
func watchFixture(t *testing.T) (*Watcher, chan []Event) {
	t.Helper()
	batches := make(chan []Event, 8)
	w := New(Config{
		Enabled:      true,
		PollInterval: 10 * time.Millisecond,
		Debounce:     30 * time.Millisecond,
	}, discardLogger(), func(root fspath.Path, events []Event) {
		batches <- events
	})
	t.Cleanup(w.Stop)
	return w, batches
}

func waitBatch(t *testing.T, batches chan []Event) []Event {
	t.Helper()
	select {
	case events := <-batches:
		return events
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch observed")
		return nil
	}
}

func TestWatchFolderDetectsCreate(t *testing.T) {
	root := fspath.MustNew(t.TempDir())
	target := root.Join("mach")

	w, batches := watchFixture(t)
	w.WatchFolder(root, []fspath.Path{target})

	if err := os.WriteFile(target.String(), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	events := waitBatch(t, batches)
	if len(events) == 0 || events[0].Type != EventCreate {
		t.Errorf("events = %+v, want a create", events)
	}
	if !events[0].Path.Equal(target) {
		t.Errorf("event path = %s", events[0].Path)
	}
}

func TestWatchFolderDetectsModifyAndDelete(t *testing.T) {
	root := fspath.MustNew(t.TempDir())
	target := root.Join("autoconf.mk")
	if err := os.WriteFile(target.String(), []byte("CC = clang\n"), 0644); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	w, batches := watchFixture(t)
	w.WatchFolder(root, []fspath.Path{target})

	// Advance the mtime explicitly so coarse filesystem timestamps
	// cannot hide the change.
	future := time.Now().Add(10 * time.Second)
	if err := os.Chtimes(target.String(), future, future); err != nil {
		t.Fatalf("advancing mtime: %v", err)
	}

	events := waitBatch(t, batches)
	if len(events) == 0 || events[0].Type != EventModify {
		t.Errorf("events = %+v, want a modify", events)
	}

	if err := os.Remove(target.String()); err != nil {
		t.Fatalf("removing target: %v", err)
	}

	events = waitBatch(t, batches)
	if len(events) == 0 || events[0].Type != EventDelete {
		t.Errorf("events = %+v, want a delete", events)
	}
}

func TestWatchFolderReplacesTargets(t *testing.T) {
	root := fspath.MustNew(t.TempDir())
	kept := root.Join("mach")
	if err := os.WriteFile(kept.String(), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	w, batches := watchFixture(t)
	w.WatchFolder(root, []fspath.Path{kept})

	// Re-watching with a superset must not fire events for the
	// unchanged survivor.
	w.WatchFolder(root, []fspath.Path{kept, root.Join("geckocpp.toml")})

	if len(w.WatchedFolders()) != 1 {
		t.Errorf("WatchedFolders() = %v, want one entry", w.WatchedFolders())
	}

	select {
	case events := <-batches:
		t.Errorf("unexpected events %+v after target replacement", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestUnwatchFolder(t *testing.T) {
	root := fspath.MustNew(t.TempDir())
	target := root.Join("mach")

	w, batches := watchFixture(t)
	w.WatchFolder(root, []fspath.Path{target})
	w.UnwatchFolder(root)

	if len(w.WatchedFolders()) != 0 {
		t.Errorf("WatchedFolders() = %v after unwatch", w.WatchedFolders())
	}

	if err := os.WriteFile(target.String(), []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("writing target: %v", err)
	}

	select {
	case events := <-batches:
		t.Errorf("unexpected events %+v after unwatch", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherDisabled(t *testing.T) {
	w := New(Config{Enabled: false}, discardLogger(), nil)
	defer w.Stop()

	w.WatchFolder(fspath.MustNew(t.TempDir()), nil)

	if len(w.WatchedFolders()) != 0 {
		t.Error("disabled watcher should not register folders")
	}
}

func TestModTime(t *testing.T) {
	dir := t.TempDir()

	if !modTime(fspath.MustNew(dir).Join("absent")).IsZero() {
		t.Error("absent file should have a zero mtime")
	}
	if !modTime(fspath.MustNew(dir)).IsZero() {
		t.Error("directories are not watchable targets")
	}

	file := filepath.Join(dir, "present")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if modTime(fspath.MustNew(file)).IsZero() {
		t.Error("present file should have a non-zero mtime")
	}
}
