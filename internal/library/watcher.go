package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/audiarr/audiarr/internal/logger"
)

// Watcher watches the download directory for file system changes and
// triggers a sweep when a download finishes writing. This catches
// completions between monitor ticks without polling faster.
type Watcher struct {
	root          string
	onChange      func()
	watcher       *fsnotify.Watcher
	mu            sync.Mutex
	pending       bool
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcher creates a watcher over root. onChange runs after activity
// settles; it is never invoked concurrently with itself by the watcher.
func NewWatcher(root string, onChange func()) *Watcher {
	return &Watcher{
		root:          root,
		onChange:      onChange,
		debounceDelay: 2 * time.Second,
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the download directory and its subdirectories.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	logger.Info().Str("path", w.root).Msg("download watcher started")
	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("download watcher error")
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod fires when files are merely opened or browsed.
	if event.Op == fsnotify.Chmod {
		return
	}
	relevant := event.Op&fsnotify.Create != 0 ||
		event.Op&fsnotify.Write != 0 ||
		event.Op&fsnotify.Rename != 0
	if !relevant {
		return
	}

	// New release folders must be added to the watch list so files
	// written inside them are seen.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
		}
	}

	// Partial files are still being written; wait for the rename.
	if filepath.Ext(event.Name) == ".partial" && event.Op&fsnotify.Rename == 0 {
		return
	}

	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	logger.Debug().Msg("download activity settled, triggering sweep")
	w.onChange()
}
