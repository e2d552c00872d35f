package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
)

const DefaultDebounce = 2 * time.Second

// Watcher monitors the library tree recursively and emits one event per
// burst of changes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	watchPath  string
	extensions map[string]bool
	debounce   time.Duration

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	pendingDirs   map[string]bool
	pendingTypes  map[FileEventType]bool

	running   bool
	stopChan  chan struct{}
	eventChan chan<- FileEvent
}

// NewWatcher creates a new file system watcher for files with the given
// extensions.
func NewWatcher(eventChan chan<- FileEvent, extensions []string, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:      watcher,
		extensions:   lo.SliceToMap(extensions, func(e string) (string, bool) { return strings.ToLower(e), true }),
		debounce:     debounce,
		pendingDirs:  map[string]bool{},
		pendingTypes: map[FileEventType]bool{},
		eventChan:    eventChan,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start begins watching watchPath and every directory below it.
func (w *Watcher) Start(ctx context.Context, watchPath string) error {
	w.watchPath = filepath.Clean(watchPath)
	slog.Info("Starting library watcher", "path", w.watchPath)

	if err := w.addTree(w.watchPath); err != nil {
		return err
	}

	w.running = true
	go w.watchLoop(ctx)

	slog.Info("Library watcher started", "watched", len(w.watcher.WatchList()))
	return nil
}

// addTree registers dir and its subdirectories. Unreadable subdirectories
// are skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			slog.Warn("Skipping unreadable directory", "path", path, "error", err)
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop stops the file watcher
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping library watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
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
			slog.Error("Library watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent records the parent directory of a relevant change and
// restarts the debounce timer.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	var eventType FileEventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = FileCreated
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eventType = FileRemoved
	case event.Has(fsnotify.Write):
		eventType = FileModified
	default:
		return
	}

	isDir := false
	if eventType == FileCreated {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			isDir = true
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}
	if !isDir && !w.isSupportedFile(event.Name) && eventType != FileRemoved {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	slog.Debug("Library change detected", "file", event.Name, "type", eventType)

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	w.pendingDirs[filepath.Dir(event.Name)] = true
	w.pendingTypes[eventType] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.emitDebounceEvent)
}

// isSupportedFile checks if the file is a supported audio format
func (w *Watcher) isSupportedFile(filePath string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(filePath))]
}

// emitDebounceEvent emits the collected directories after the debounce
// period.
func (w *Watcher) emitDebounceEvent() {
	w.debounceMutex.Lock()
	event := FileEvent{
		Dirs:      collapse(lo.Keys(w.pendingDirs)),
		Types:     lo.Keys(w.pendingTypes),
		Timestamp: time.Now(),
	}
	w.pendingDirs = map[string]bool{}
	w.pendingTypes = map[FileEventType]bool{}
	w.debounceMutex.Unlock()

	select {
	case w.eventChan <- event:
		slog.Info("Emitted library change after debounce", "dirs", event.Dirs)
	default:
		slog.Warn("Event channel full, dropping library change", "dirs", event.Dirs)
	}
}

// collapse drops directories that lie below another directory of dirs.
func collapse(dirs []string) []string {
	sort.Strings(dirs)
	var out []string
	for _, d := range dirs {
		if len(out) > 0 {
			last := out[len(out)-1]
			if d == last || strings.HasPrefix(d, last+string(filepath.Separator)) {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}
