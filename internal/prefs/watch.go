package prefs

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/patchdeck/patchdeck/internal/debounce"
)

const reloadDebounceDelay = 350 * time.Millisecond

// Watcher reloads the preferences file when it changes on disk and hands the
// result to a callback. Editors write config files in bursts (truncate,
// write, rename), so reloads are debounced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	done     chan struct{}
}

// Watch starts watching the preferences file at path. onChange runs off the
// watcher goroutine after each settled burst of file events.
func Watch(path string, onChange func(Prefs)) (*Watcher, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve prefs path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	// Watch the directory: the file itself may not exist yet, and editors
	// replace it via rename which drops a file-level watch.
	if err := fw.Add(filepath.Dir(resolved)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(resolved), err)
	}

	w := &Watcher{
		watcher: fw,
		done:    make(chan struct{}),
	}
	w.debounce = debounce.New(reloadDebounceDelay, func() {
		onChange(Load(path))
	})

	go w.loop(resolved)
	return w, nil
}

func (w *Watcher) loop(resolved string) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Name != resolved {
				continue
			}
			w.debounce.Trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("prefs watch error: %v", err)
		}
	}
}

// Close stops the watcher and cancels any pending reload.
func (w *Watcher) Close() error {
	w.debounce.Stop()
	err := w.watcher.Close()
	<-w.done
	return err
}
