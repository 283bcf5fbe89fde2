package loader

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period a file must see before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the outcome of a hot reload. Exactly one of m and err is non-nil.
type ReloadFunc func(path string, m model.Model, err error)

// Watcher hot-reloads model files through a Loader when they change on disk.
// Bursts of events for the same file are collapsed into one reload after the debounce
// period. Removed files are evicted from the loader's cache.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   Loader
	onReload ReloadFunc
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewWatcher starts watching dirs (or individual files) for model changes.
//
// Parameters:
//   - l: the loader whose cache is refreshed
//   - debounce: the quiet period before reloading, DefaultDebounce when <= 0
//   - onReload: callback invoked after each reload attempt, may be nil
//   - dirs: directories or files to watch
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an error if the underlying watcher cannot be created or a path cannot be added
func NewWatcher(l Loader, debounce time.Duration, onReload ReloadFunc, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fw,
		loader:   l,
		onReload: onReload,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and cancels reloads that have not fired yet.
//
// Returns:
//   - error: an error from closing the underlying watcher
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done

		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isModelFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.cancel(event.Name)
				w.loader.Evict(event.Name)
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.schedule(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onReload != nil {
				w.onReload("", nil, err)
			}
		case <-w.closeCh:
			return
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case <-w.closeCh:
		return
	default:
	}

	m, err := w.loader.Reload(path)
	if w.onReload != nil {
		w.onReload(path, m, err)
	}
}
