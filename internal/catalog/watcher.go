package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"switchboard/pkg/logging"
)

// ChangeOperation is what happened to a manifest file.
type ChangeOperation string

const (
	OperationUpsert ChangeOperation = "upsert"
	OperationDelete ChangeOperation = "delete"
)

// Change reports a reload of one manifest.
type Change struct {
	Name      string
	Path      string
	Operation ChangeOperation
	Err       error
}

// Watcher reloads manifests when files in the catalog directory change.
//
// Rapid successive events on one file are debounced into a single reload.
type Watcher struct {
	mu sync.Mutex

	catalog          *Catalog
	watcher          *fsnotify.Watcher
	debounceInterval time.Duration

	// pending tracks debounce timers per path
	pending map[string]*time.Timer

	subscribers []chan Change

	stopCh  chan struct{}
	running bool
}

// NewWatcher creates a watcher for c's directory.
func NewWatcher(c *Catalog, debounceInterval time.Duration) *Watcher {
	if debounceInterval == 0 {
		debounceInterval = 250 * time.Millisecond
	}
	return &Watcher{
		catalog:          c,
		debounceInterval: debounceInterval,
		pending:          make(map[string]*time.Timer),
	}
}

// Subscribe returns a channel of reload notifications. Slow subscribers
// miss notifications rather than blocking reloads.
func (w *Watcher) Subscribe() <-chan Change {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan Change, 16)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Start begins watching. It returns once the watch is installed.
func (w *Watcher) Start(ctx context.Context) error {
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
	if err := watcher.Add(w.catalog.Dir()); err != nil {
		watcher.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx)

	logging.Info("Catalog", "Watching %s for manifest changes", w.catalog.Dir())
	return nil
}

// Stop ends watching and cancels pending reloads.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	w.mu.Lock()
	watcher := w.watcher
	stopCh := w.stopCh
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Catalog", err, "Manifest watcher error")
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !isManifestFile(event.Name) {
		return
	}

	var op ChangeOperation
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		op = OperationUpsert
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OperationDelete
	default:
		return
	}

	w.debounce(event.Name, op)
}

func (w *Watcher) debounce(path string, op ChangeOperation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.apply(path, op)
	})
}

// apply reloads or forgets one file and notifies subscribers.
func (w *Watcher) apply(path string, op ChangeOperation) {
	change := Change{Path: path, Operation: op}

	switch op {
	case OperationUpsert:
		entry, err := w.catalog.loadFile(path)
		if err != nil {
			change.Err = err
			logging.Warn("Catalog", "Reloading %s failed: %v", path, err)
		} else {
			change.Name = entry.Name
			logging.Info("Catalog", "Reloaded manifest %s", entry.Name)
		}
	case OperationDelete:
		name, ok := w.catalog.forgetFile(path)
		if !ok {
			return
		}
		change.Name = name
		logging.Info("Catalog", "Removed manifest %s", name)
	}

	w.mu.Lock()
	subs := append([]chan Change(nil), w.subscribers...)
	w.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			logging.Warn("Catalog", "Change channel full, dropping notification for %s", path)
		}
	}
}
