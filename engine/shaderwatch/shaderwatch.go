package shaderwatch

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports which named shader groups had a source file change. Events arrive on a background
// goroutine and are collected until the frame loop calls Changed, so materials are always rebuilt
// on the goroutine that owns the GPU device.
type Watcher interface {
	// Watch registers a group of files under a name. A change to any of them marks the name.
	//
	// Parameters:
	//   - name: the group name reported by Changed
	//   - paths: the files of the group
	//
	// Returns:
	//   - error: error if a file's directory cannot be watched
	Watch(name string, paths ...string) error

	// Changed returns the sorted names marked since the last call and clears them.
	//
	// Returns:
	//   - []string: the changed group names, nil if none
	Changed() []string

	// Close stops watching. Safe to call multiple times.
	//
	// Returns:
	//   - error: error from the underlying watcher
	Close() error
}

type watcher struct {
	mu *sync.Mutex

	fs     *fsnotify.Watcher
	dirs   map[string]bool
	groups map[string][]string // cleaned file path -> group names
	dirty  map[string]bool
	done   chan struct{}
	closed bool
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher and starts its event goroutine.
//
// Returns:
//   - Watcher: the watcher
//   - error: error if the platform watcher cannot be created
func NewWatcher() (Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shaderwatch: %w", err)
	}
	w := &watcher{
		mu:     &sync.Mutex{},
		fs:     fw,
		dirs:   make(map[string]bool),
		groups: make(map[string][]string),
		dirty:  make(map[string]bool),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *watcher) Watch(name string, paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("shaderwatch: %w", err)
		}
		// Editors replace files on save, so the directory is watched instead of the file.
		dir := filepath.Dir(abs)
		if !w.dirs[dir] {
			if err := w.fs.Add(dir); err != nil {
				return fmt.Errorf("shaderwatch: watch %s: %w", dir, err)
			}
			w.dirs[dir] = true
		}
		if !slices.Contains(w.groups[abs], name) {
			w.groups[abs] = append(w.groups[abs], name)
		}
	}
	return nil
}

func (w *watcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.dirty) == 0 {
		return nil
	}
	names := make([]string, 0, len(w.dirty))
	for name := range w.dirty {
		names = append(names, name)
	}
	clear(w.dirty)
	slices.Sort(names)
	return names
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.mark(event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("shader watch error", "error", err)
		}
	}
}

func (w *watcher) mark(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, name := range w.groups[abs] {
		if !w.dirty[name] {
			common.Logger().Debug("shader source changed", "group", name, "path", abs)
		}
		w.dirty[name] = true
	}
}
