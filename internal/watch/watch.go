// Package watch signals when a directory tree of test case files changes.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDelay        = 200 * time.Millisecond
	defaultErrorsBuffer = 10
)

// Watcher monitors a directory tree and emits one signal per burst of
// changes, after the tree has been quiet for the debounce delay.
type Watcher struct {
	root  string
	delay time.Duration

	fsWatcher *fsnotify.Watcher
	events    chan struct{}
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	watched map[string]struct{}

	wg sync.WaitGroup
}

// New watches root with the default debounce delay. If root is a file,
// its directory is watched.
func New(root string) (*Watcher, error) {
	return NewWithDelay(root, defaultDelay)
}

// NewWithDelay watches root with a configurable debounce delay.
func NewWithDelay(root string, delay time.Duration) (*Watcher, error) {
	if root == "" {
		return nil, errors.New("watch: root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: abs %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:      abs,
		delay:     delay,
		fsWatcher: fsw,
		events:    make(chan struct{}, 1),
		errors:    make(chan error, defaultErrorsBuffer),
		done:      make(chan struct{}),
		watched:   make(map[string]struct{}),
	}

	if err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()

	return w, nil
}

// Root returns the watched directory.
func (w *Watcher) Root() string { return w.root }

// Events returns a channel that receives one value per settled burst of
// changes. Pending signals coalesce; the channel is closed by Close.
func (w *Watcher) Events() <-chan struct{} { return w.events }

// Errors returns a channel of watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher and releases OS resources. Safe to call twice.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.events)
	defer close(w.errors)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 && isDirNoSymlink(evt.Name) {
				if err := w.addRecursive(evt.Name); err != nil {
					w.emitError(err)
				}
			}
			if !w.relevant(evt) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.emit()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) emit() {
	select {
	case w.events <- struct{}{}:
	default:
		// A signal is already pending.
	}
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Paths may race with deletes.
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type()&os.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if path != root && ignoredName(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDir(path)
	})
}

func (w *Watcher) addDir(path string) error {
	clean := filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[clean]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(clean); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("watch %s: %w", clean, err)
	}
	w.watched[clean] = struct{}{}
	return nil
}

// relevant reports whether evt can change what a source would load.
// Only path components below the root are inspected.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Name == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.root, filepath.Clean(evt.Name))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if ignoredName(part) {
			return false
		}
	}
	return true
}

func ignoredName(name string) bool {
	switch name {
	case ".git", ".caseview", ".DS_Store", "Thumbs.db", "desktop.ini":
		return true
	}
	return strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".swx") ||
		strings.HasPrefix(name, ".#")
}

func isDirNoSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink == 0 && info.IsDir()
}
