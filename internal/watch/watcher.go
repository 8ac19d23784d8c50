package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cvforge/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is used when no delay is configured.
const DefaultDebounceDelay = 500 * time.Millisecond

// Watcher watches a single file and calls onChange once per burst of writes.
type Watcher struct {
	mu sync.RWMutex

	path    string
	modTime time.Time
	size    int64
	exists  bool

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	changeChan chan struct{}
	done       chan struct{}

	onChange func()
	logger   *errors.Logger

	running bool
}

// New creates a watcher for path. A zero debounceDelay uses DefaultDebounceDelay.
func New(path string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.NewValidationError(errors.ErrCodeFileNotFound, "filename cannot be empty", nil)
	}
	if onChange == nil {
		return nil, fmt.Errorf("watch callback is required")
	}
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	return &Watcher{
		path:          abs,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		changeChan:    make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}, nil
}

// Start begins watching. The parent directory is watched as well so editors
// that save by rename are noticed.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("file watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.fsWatcher = fsWatcher
	w.recordModTime()
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.watchLoop(fsWatcher, w.stopChan, w.done)

	w.logger.Info("File watcher started",
		"file", w.path,
		"debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
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
	done := w.done
	err := w.fsWatcher.Close()
	w.mu.Unlock()

	<-done
	if err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	w.logger.Info("File watcher stopped", "file", w.path)
	return nil
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) watchLoop(fsWatcher *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleChange()
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error", "file", w.path)

		case <-w.changeChan:
			if w.hasFileChanged() {
				w.logger.Debug("Watched file changed", "file", w.path)
				w.onChange()
			}

		case <-stop:
			return
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) scheduleChange() {
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
		case w.changeChan <- struct{}{}:
		default:
		}
	})
}

// recordModTime must be called with mu held.
func (w *Watcher) recordModTime() {
	stat, err := os.Stat(w.path)
	if err != nil {
		w.exists = false
		w.modTime = time.Time{}
		w.size = 0
		return
	}
	w.exists = true
	w.modTime = stat.ModTime()
	w.size = stat.Size()
}

// hasFileChanged reports a change when the file reappeared or its mtime or
// size differ. A removed file is not a change; the next write will be.
func (w *Watcher) hasFileChanged() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	stat, err := os.Stat(w.path)
	if err != nil {
		w.exists = false
		return false
	}
	changed := !w.exists || !stat.ModTime().Equal(w.modTime) || stat.Size() != w.size
	w.exists = true
	w.modTime = stat.ModTime()
	w.size = stat.Size()
	return changed
}
