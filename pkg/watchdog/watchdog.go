package watchdog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type WatchDogFactory struct {
	logger *zap.Logger
}

// Filter decides whether a created path is recorded. nil records everything.
type Filter func(path string) bool

// WatchDog records entries created directly inside one directory. It is used
// to learn which scratch folders a tool invocation produced.
type WatchDog struct {
	dir    string
	filter Filter
	logger *zap.Logger

	// states
	watcher *fsnotify.Watcher
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	created []string
}

func NewWatchDogFactory(logger *zap.Logger) *WatchDogFactory {
	return &WatchDogFactory{
		logger: logger,
	}
}

// Watch starts recording creations under dir until Stop is called.
func (w *WatchDogFactory) Watch(dir string, filter Filter) (*WatchDog, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("watch directory unavailable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(absDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to add %s to watcher: %w", absDir, err)
	}

	watchDog := &WatchDog{
		dir:     absDir,
		filter:  filter,
		logger:  w.log(),
		watcher: watcher,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go watchDog.watch()

	w.log().Debug("Added directory to watch list", zap.String("dir", absDir))
	return watchDog, nil
}

func (w *WatchDogFactory) log() *zap.Logger {
	if w == nil || w.logger == nil {
		return zap.NewNop()
	}
	return w.logger
}

// Stop ends the watch and returns the base names recorded so far, in the
// order they were seen. It is safe to call more than once.
func (w *WatchDog) Stop() []string {
	w.once.Do(func() {
		close(w.done)
		<-w.stopped
	})
	return w.Created()
}

func (w *WatchDog) Created() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.created...)
}

func (w *WatchDog) watch() {
	defer close(w.stopped)
	defer w.watcher.Close()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("fsnotify channel closed", zap.String("dir", w.dir))
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("fsnotify error channel closed", zap.String("dir", w.dir))
				return
			}
			w.logger.Error("fsnotify error", zap.Error(err))
		}
	}
}

func (w *WatchDog) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	if w.filter != nil && !w.filter(event.Name) {
		w.logger.Debug("File ignored by filter", zap.String("file", event.Name))
		return
	}
	w.mu.Lock()
	w.created = append(w.created, filepath.Base(event.Name))
	w.mu.Unlock()
	w.logger.Debug("File created", zap.String("file", event.Name))
}
