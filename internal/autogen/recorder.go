package autogen

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change is one observed file system event on a guarded registry file.
type Change struct {
	Path string
	Op   string
}

func (c Change) String() string {
	return c.Op + " " + c.Path
}

// recorder collects fsnotify events for a fixed set of files.
type recorder struct {
	watcher *fsnotify.Watcher
	targets map[string]bool

	mu      sync.Mutex
	changes []Change

	done     chan struct{}
	stopOnce sync.Once
}

func newRecorder(root string, files []string) (*recorder, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &recorder{
		watcher: watcher,
		targets: make(map[string]bool),
		done:    make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, rel := range files {
		path := filepath.Clean(filepath.Join(root, rel))
		r.targets[path] = true
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		// Watch directories rather than files so that replace-by-rename
		// is still observed.
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go r.loop()
	return r, nil
}

func (r *recorder) loop() {
	defer close(r.done)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				r.mu.Lock()
				r.changes = append(r.changes, Change{Path: event.Name, Op: event.Op.String()})
				r.mu.Unlock()
			}
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (r *recorder) snapshot() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

// stop closes the watcher and returns everything recorded.
func (r *recorder) stop() []Change {
	r.stopOnce.Do(func() {
		r.watcher.Close()
		<-r.done
	})
	return r.snapshot()
}
