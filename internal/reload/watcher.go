// Package reload notices edits to configuration files between polls.
package reload

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// snapshot is what a file looked like when the watcher last saw it. The
// digest decides; modTime and size only let Check skip rereading a file that
// was not touched.
type snapshot struct {
	digest  uint64
	modTime time.Time
	size    int64
}

// Watcher compares configuration files against the contents they had at the
// last Update. Saving a file without changing its bytes is not a change.
type Watcher struct {
	mu    sync.Mutex
	files map[string]snapshot
}

// NewWatcher builds a watcher tracking paths.
func NewWatcher(paths ...string) (*Watcher, error) {
	w := &Watcher{}
	if err := w.Update(paths...); err != nil {
		return nil, err
	}
	return w, nil
}

// Update replaces the tracked set. Paths that do not name a readable regular
// file are ignored.
func (w *Watcher) Update(paths ...string) error {
	if w == nil {
		return nil
	}
	files := make(map[string]snapshot, len(paths))
	for _, path := range uniquePaths(paths) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		snap, ok := take(abs)
		if !ok {
			continue
		}
		files[abs] = snap
	}
	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
	return nil
}

// Check returns the sorted paths whose contents differ from the last Update,
// including files that disappeared. It does not advance the baseline.
func (w *Watcher) Check() ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var changed []string
	for path, was := range w.files {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			changed = append(changed, path)
			continue
		}
		if info.Size() == was.size && info.ModTime().Equal(was.modTime) {
			continue
		}
		now, ok := take(path)
		if !ok || now.digest != was.digest {
			changed = append(changed, path)
		}
	}
	slices.Sort(changed)
	return changed, nil
}

func take(path string) (snapshot, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return snapshot{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot{}, false
	}
	return snapshot{digest: xxhash.Sum64(data), modTime: info.ModTime(), size: info.Size()}, true
}

func uniquePaths(paths []string) []string {
	var out []string
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || slices.Contains(out, path) {
			continue
		}
		out = append(out, path)
	}
	return out
}
