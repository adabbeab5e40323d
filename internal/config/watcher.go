package config

import (
	"fmt"
	"os"
	"time"
)

// Watcher reloads a tuning file when its modification time or size
// changes. It is polled by the frame loop; nothing runs in the background.
type Watcher struct {
	path    string
	modTime time.Time
	size    int64
}

// NewWatcher returns a watcher for path. The first Poll reports the file as
// changed if it exists.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: path, size: -1}
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Poll stats the file and, if it changed since the last successful load,
// loads and validates it. A file that fails to parse is reported once and
// not retried until it changes again.
func (w *Watcher) Poll() (*TuningConfig, bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, false, fmt.Errorf("stat %s: %w", w.path, err)
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return nil, false, nil
	}
	w.modTime, w.size = info.ModTime(), info.Size()

	cfg, err := LoadTuningConfig(w.path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}
