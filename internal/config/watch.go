package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jairodriguez/autonomica/pkg/models"
)

// WorkerWatcher observes a workers.yaml file and delivers freshly parsed
// worker lists on every change. When the underlying watcher cannot start,
// the registry simply gets no live reloads.
type WorkerWatcher struct {
	path  string
	apply func([]*models.Worker)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchWorkers starts watching path and calls apply with the re-parsed
// worker list after each write or create of the file.
func WatchWorkers(path string, apply func([]*models.Worker)) *WorkerWatcher {
	ww := &WorkerWatcher{
		path:  path,
		apply: apply,
		done:  make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - workers load once at startup
		log.Printf("[config] warning: worker file watch unavailable: %v", err)
		return ww
	}

	// Watch the directory: editors often replace the file on save.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Printf("[config] warning: cannot watch %s: %v", dir, err)
		watcher.Close()
		return ww
	}
	ww.watcher = watcher

	go ww.loop()

	return ww
}

func (ww *WorkerWatcher) loop() {
	for {
		select {
		case <-ww.done:
			return
		case event, ok := <-ww.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(ww.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			workers, err := LoadWorkers(ww.path)
			if err != nil {
				log.Printf("[config] warning: reload of %s failed: %v", ww.path, err)
				continue
			}
			ww.apply(workers)
		case <-ww.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Close stops the watcher.
func (ww *WorkerWatcher) Close() {
	close(ww.done)
	if ww.watcher != nil {
		ww.watcher.Close()
	}
}
