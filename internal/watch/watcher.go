// Package watch reports debounced changes to a fixed set of files.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"cvcraft/internal/errors"
)

const defaultDebounce = time.Second

// Watcher invokes a callback after watched files stop changing for the
// debounce delay. Directories are watched too so atomic renames are seen.
type Watcher struct {
	mu sync.RWMutex

	name  string
	files []string

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onChange func()
	logger   *errors.Logger
	running  bool
}

// New creates a watcher for the non-empty paths in files.
func New(name string, files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *Watcher {
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounce
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	watched := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			watched = append(watched, f)
		}
	}

	return &Watcher{
		name:          name,
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%s watcher is already running", w.name)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsWatcher = fsw

	if err := w.updateModTimes(); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	for _, file := range w.files {
		if err := w.add(file); err != nil {
			w.logger.Warn("Failed to watch file", "watcher", w.name, "file", file, "error", err)
		}
	}

	w.running = true
	go w.loop(fsw)

	w.logger.Info("File watcher started", "watcher", w.name, "files", w.files, "debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
	fsw := w.fsWatcher
	w.mu.Unlock()

	if err := fsw.Close(); err != nil {
		w.logger.LogError(err, "Failed to close file system watcher", "watcher", w.name)
		return err
	}
	w.logger.Info("File watcher stopped", "watcher", w.name)
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Files returns the watched paths
func (w *Watcher) Files() []string {
	return slices.Clone(w.files)
}

// add watches file, falling back to its directory when it does not exist yet.
func (w *Watcher) add(file string) error {
	dir := filepath.Dir(file)
	if err := w.fsWatcher.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", file, err)
		}
		w.logger.Info("Watching directory for missing file", "file", file, "directory", dir)
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

func (w *Watcher) updateModTimes() error {
	for _, file := range w.files {
		stat, err := os.Stat(file)
		switch {
		case err == nil:
			w.lastModTime[file] = stat.ModTime()
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged is only called from the loop goroutine.
func (w *Watcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, known := w.lastModTime[file]; known && os.IsNotExist(err) {
			delete(w.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, known := w.lastModTime[file]
	if !known || stat.ModTime().After(lastMod) {
		w.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.isRelevant(event) {
				w.scheduleReload()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error", "watcher", w.name)

		case <-w.reloadChan:
			changed := false
			for _, file := range w.files {
				// check every file so all modification times stay current
				if w.hasFileChanged(file) {
					changed = true
				}
			}
			if changed {
				w.logger.Info("Watched files changed", "watcher", w.name)
				w.onChange()
			}

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	return slices.ContainsFunc(w.files, func(file string) bool {
		return filepath.Clean(event.Name) == filepath.Clean(file)
	})
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
		}
	})
}
