package editor

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/livetemplate/tinkerpen/internal/debounce"
)

// WatchSettle is how long the watcher waits after the last file event before
// reloading. Editors often write a file in several steps.
const WatchSettle = 100 * time.Millisecond

// Watcher watches the buffer files of a pen directory and triggers reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	names    map[string]bool
	onReload func() error
	settle   *debounce.Debouncer
	done     chan bool
	debug    bool
}

// NewWatcher watches dir for changes to the named files. onReload runs once
// per burst of events, after WatchSettle of quiet.
func NewWatcher(dir string, names []string, onReload func() error, debug bool) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the files so atomic saves (write to a
	// temp file, rename over the original) are still seen.
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		names:    make(map[string]bool, len(names)),
		onReload: onReload,
		settle:   debounce.New(WatchSettle),
		done:     make(chan bool),
		debug:    debug,
	}
	for _, n := range names {
		w.names[n] = true
	}

	if debug {
		log.Printf("[Watch] Watching %s for %v", dir, names)
	}
	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				name := filepath.Base(event.Name)
				if !w.names[name] {
					continue
				}

				if w.debug {
					log.Printf("[Watch] File changed: %s (%s)", name, event.Op)
				}
				w.settle.Schedule(w.reload)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[Watch] Error: %v", err)

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) reload() {
	if err := w.onReload(); err != nil {
		log.Printf("[Watch] Reload failed for %s: %v", w.dir, err)
	}
}

// Stop stops the watcher. Pending reloads are dropped.
func (w *Watcher) Stop() error {
	close(w.done)
	w.settle.Stop()
	return w.watcher.Close()
}
