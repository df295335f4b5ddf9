package reconciler

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"stevedore/pkg/logging"
)

// FileWatcher reports changes to individual files.
//
// It watches the directories holding the files rather than the files
// themselves, so editors that save by writing a new file and renaming it
// over the old one are still seen.
type FileWatcher struct {
	mu sync.RWMutex

	// files is the set of cleaned absolute paths being watched
	files map[string]bool

	// dirs is the set of directories added to the fsnotify watcher
	dirs map[string]bool

	watcher *fsnotify.Watcher

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration

	// pendingEvents tracks pending debounced events by path
	pendingEvents map[string]*debounceEntry

	stopCh  chan struct{}
	running bool
}

type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// NewFileWatcher creates a watcher. A zero interval selects 500ms.
func NewFileWatcher(debounceInterval time.Duration) *FileWatcher {
	if debounceInterval == 0 {
		debounceInterval = 500 * time.Millisecond
	}

	return &FileWatcher{
		files:            make(map[string]bool),
		dirs:             make(map[string]bool),
		debounceInterval: debounceInterval,
		pendingEvents:    make(map[string]*debounceEntry),
		stopCh:           make(chan struct{}),
	}
}

// AddFile adds path to the watched set. The file does not need to exist
// yet, but its directory does.
func (w *FileWatcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)

	w.mu.Lock()
	w.files[abs] = true
	running := w.running
	w.mu.Unlock()

	if running {
		return w.watchDir(filepath.Dir(abs))
	}
	return nil
}

// Start begins watching and delivers events on changes until ctx is done
// or Stop is called.
func (w *FileWatcher) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	var dirs []string
	for f := range w.files {
		dirs = append(dirs, filepath.Dir(f))
	}
	w.mu.Unlock()

	for _, dir := range dirs {
		if err := w.watchDir(dir); err != nil {
			_ = w.Stop()
			return err
		}
	}

	go w.processEvents(ctx, watcher, stopCh, changes)

	logging.Info("FileWatcher", "Watching %d file(s) for changes", len(dirs))
	return nil
}

func (w *FileWatcher) watchDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dirs[dir] || w.watcher == nil {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	logging.Debug("FileWatcher", "Watching directory: %s", dir)
	return nil
}

func (w *FileWatcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher, stopCh <-chan struct{}, changes chan<- ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			w.cleanupPendingEvents()
			return

		case <-stopCh:
			w.cleanupPendingEvents()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event, changes)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("FileWatcher", err, "Filesystem watcher error")
		}
	}
}

func (w *FileWatcher) handleFsEvent(event fsnotify.Event, changes chan<- ChangeEvent) {
	path := filepath.Clean(event.Name)

	w.mu.RLock()
	watching := w.files[path]
	w.mu.RUnlock()
	if !watching {
		return
	}

	var operation ChangeOperation
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		operation = OperationCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		operation = OperationUpdate
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		operation = OperationDelete
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// the replacement shows up as a Create
		operation = OperationDelete
	default:
		return
	}

	w.debounceEvent(ChangeEvent{
		Path:      path,
		Operation: operation,
		Timestamp: time.Now(),
	}, changes)
}

// debounceEvent collapses rapid successive changes of one file into a
// single event.
func (w *FileWatcher) debounceEvent(event ChangeEvent, changes chan<- ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := event.Path
	if entry, ok := w.pendingEvents[key]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	timer := time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		entry, ok := w.pendingEvents[key]
		if ok {
			delete(w.pendingEvents, key)
		}
		w.mu.Unlock()

		if ok {
			select {
			case changes <- entry.event:
				logging.Debug("FileWatcher", "Emitted change event: %s %s", entry.event.Operation, entry.event.Path)
			default:
				logging.Warn("FileWatcher", "Change event channel full, dropping event for %s", entry.event.Path)
			}
		}
	})

	w.pendingEvents[key] = &debounceEntry{event: event, timer: timer}
}

// mergeOperations merges two operations into a single logical operation.
func mergeOperations(old, new ChangeOperation) ChangeOperation {
	if old == OperationCreate {
		if new == OperationDelete {
			return OperationDelete
		}
		return OperationCreate
	}
	if old == OperationUpdate && new == OperationDelete {
		return OperationDelete
	}
	return new
}

func (w *FileWatcher) cleanupPendingEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, entry := range w.pendingEvents {
		entry.timer.Stop()
	}
	w.pendingEvents = make(map[string]*debounceEntry)
}

// Stop stops watching. It is safe to call more than once.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("FileWatcher", err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}
	w.dirs = make(map[string]bool)

	logging.Info("FileWatcher", "Stopped file watcher")
	return nil
}
