package assets

import (
	"os"
	"path/filepath"
	"strings"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the output root with fsnotify and records change
// metrics. It deliberately keeps no listing state: gallery results are
// always recomputed per request, so the watcher exists purely for
// observability.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher
}

// NewWatcher creates a watcher over root. Call Run in a goroutine and Stop
// during shutdown.
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{root: root, fsw: fsw}, nil
}

// Run registers every directory under the root and processes events until
// Stop is called. Errors are recorded in metrics and never fatal.
func (w *Watcher) Run() {
	watchCount := w.addDirectories()
	logging.Debug("output watcher started, watching %d directories", watchCount)
	metrics.WatchedDirectories.Set(float64(watchCount))

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("output watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// Stop closes the watcher, causing Run to return.
func (w *Watcher) Stop() {
	if err := w.fsw.Close(); err != nil {
		logging.Error("failed to close output watcher: %v", err)
	}
}

func (w *Watcher) addDirectories() int {
	watchCount := 0
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			if addErr := w.fsw.Add(path); addErr != nil {
				logging.Warn("failed to watch %s: %v", path, addErr)
				metrics.WatcherErrors.Inc()
			} else {
				watchCount++
			}
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk output root for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if strings.Contains(event.Name, string(filepath.Separator)+".") {
		return
	}

	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	// New directories must be registered so later output lands in metrics too.
	if event.Op&fsnotify.Create != 0 {
		info, err := os.Stat(event.Name)
		if err != nil || !info.IsDir() {
			return
		}
		if err := w.fsw.Add(event.Name); err != nil {
			logging.Warn("failed to watch new directory %s: %v", event.Name, err)
			metrics.WatcherErrors.Inc()
		} else {
			logging.Debug("watching new output directory: %s", event.Name)
			metrics.WatchedDirectories.Inc()
		}
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
