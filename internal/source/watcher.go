package source

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the directory holding a wallpaper (or pointer) file
// and emits a debounced hint whenever the file changes. The hint only
// advances the engine's next poll; the poll interval remains the source
// of truth for when cycles run.
type Watcher struct {
	Path  string          // file whose changes matter
	Hints <-chan struct{} // read-only external channel

	hints   chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// debounce coalesces bursts of write events from image editors and
// atomic-save renames into a single hint.
const debounce = 120 * time.Millisecond

// NewWatcher creates a watcher for changes to the file at path.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	w := &Watcher{
		Path:    path,
		Hints:   ch,
		hints:   ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching the file's directory. Watching the directory
// rather than the file survives atomic replace-by-rename saves.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.hints)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.Path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; polling still covers changes.
		}
	}
}

// emit delivers a hint without blocking; a full channel already carries
// the information.
func (w *Watcher) emit() {
	select {
	case w.hints <- struct{}{}:
	default:
	}
}
