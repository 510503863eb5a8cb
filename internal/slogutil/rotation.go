package slogutil

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// rotatingWriter appends to a log file and rotates it once it grows
// past the configured size. Rotated files carry a UTC timestamp suffix
// and only the newest keep of them survive pruning.
type rotatingWriter struct {
	mu      sync.Mutex
	path    string
	limit   int64
	keep    int
	f       *os.File
	written int64
}

// newRotatingWriter opens path for appending. maxSizeKB must be
// positive; keep bounds how many rotated files are retained.
func newRotatingWriter(path string, maxSizeKB, keep int) (*rotatingWriter, error) {
	if keep < 0 {
		keep = 0
	}
	w := &rotatingWriter{
		path:  path,
		limit: int64(maxSizeKB) * 1024,
		keep:  keep,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *rotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.written = info.Size()
	return nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written > 0 && w.written+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.f.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// rotate renames the live file aside and reopens a fresh one. Called
// with the lock held. The file must be closed before the rename so the
// move works on Windows.
func (w *rotatingWriter) rotate() error {
	if err := w.f.Close(); err != nil {
		return err
	}
	stamp := time.Now().UTC().Format("20060102-150405.000000000")
	_ = os.Rename(w.path, w.path+"."+stamp)
	w.prune()
	return w.open()
}

// prune deletes rotated files beyond the retention count. Timestamp
// suffixes sort chronologically, so the oldest files sort first.
func (w *rotatingWriter) prune() {
	old, err := filepath.Glob(w.path + ".*")
	if err != nil || len(old) <= w.keep {
		return
	}
	sort.Strings(old)
	for _, p := range old[:len(old)-w.keep] {
		_ = os.Remove(p)
	}
}
