package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Lcs002/nsp-crisma-app/internal/observability"
	"github.com/Lcs002/nsp-crisma-app/internal/store"
)

// UsersCallback is called with the full credential set after a successful
// users-file reload.
type UsersCallback func([]store.Credentials)

// ErrorCallback is called when a reload fails.
type ErrorCallback func(error)

// UsersWatcher watches the users file for changes and pushes reloaded
// credential sets to the callback. Editors often replace files via rename,
// so the watch covers the containing directory.
type UsersWatcher struct {
	path          string
	watcher       *fsnotify.Watcher
	callback      UsersCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration
	lastUsers     []store.Credentials
	mu            sync.RWMutex
	stopCh        chan struct{}
	stoppedCh     chan struct{}
	running       bool
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*UsersWatcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *UsersWatcher) {
		w.debounceDelay = delay
	}
}

// WithLogger sets the logger for the watcher.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *UsersWatcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *UsersWatcher) {
		w.errorCallback = callback
	}
}

// NewUsersWatcher creates a users-file watcher.
func NewUsersWatcher(path string, callback UsersCallback, opts ...WatcherOption) (*UsersWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &UsersWatcher{
		path:          absPath,
		watcher:       fsWatcher,
		callback:      callback,
		debounceDelay: 100 * time.Millisecond,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start loads the initial credential set and begins watching.
func (w *UsersWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	users, err := LoadUsersFile(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.lastUsers = users
	w.mu.Unlock()

	if w.callback != nil {
		w.callback(users)
	}

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	w.logger.Info("started watching users file",
		observability.String("path", w.path),
		observability.Int("users", len(users)),
	)

	go w.watch(ctx)

	return nil
}

// Stop stops watching the users file.
func (w *UsersWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.watcher.Close()
}

// LastUsers returns the last successfully loaded credential set.
func (w *UsersWatcher) LastUsers() []store.Credentials {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastUsers
}

// watch is the main watch loop.
func (w *UsersWatcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("users watcher stopped due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Info("users watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			debounceTimer, debounceCh = w.handleFileEvent(event, debounceTimer, debounceCh)

		case <-debounceCh:
			debounceCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleWatchError(err)
		}
	}
}

// handleFileEvent processes a file system event and returns the updated
// debounce timer.
func (w *UsersWatcher) handleFileEvent(
	event fsnotify.Event,
	debounceTimer *time.Timer,
	debounceCh <-chan time.Time,
) (timer *time.Timer, ch <-chan time.Time) {
	if filepath.Clean(event.Name) != w.path {
		return debounceTimer, debounceCh
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return debounceTimer, debounceCh
	}

	w.logger.Debug("users file changed",
		observability.String("path", event.Name),
		observability.String("op", event.Op.String()),
	)

	if debounceTimer != nil {
		debounceTimer.Stop()
	}
	debounceTimer = time.NewTimer(w.debounceDelay)
	return debounceTimer, debounceTimer.C
}

// handleWatchError handles watcher errors.
func (w *UsersWatcher) handleWatchError(err error) {
	w.logger.Error("users watcher error",
		observability.Error(err),
	)
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}

// reload attempts to reload the users file. On failure the previous
// credential set stays in effect.
func (w *UsersWatcher) reload() {
	w.logger.Info("reloading users file",
		observability.String("path", w.path),
	)

	users, err := LoadUsersFile(w.path)
	if err != nil {
		w.logger.Error("failed to reload users file",
			observability.Error(err),
		)
		if w.errorCallback != nil {
			w.errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.lastUsers = users
	w.mu.Unlock()

	w.logger.Info("users file reloaded",
		observability.Int("users", len(users)),
	)

	if w.callback != nil {
		w.callback(users)
	}
}
