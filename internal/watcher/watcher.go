// Package watcher reports changes to structured result files. Directories
// are watched rather than files so that atomic replace-on-write by the test
// runner is seen.
package watcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/newhook/testnorm/internal/logging"
)

// DefaultDebounce coalesces bursts of writes to one file.
const DefaultDebounce = 100 * time.Millisecond

// Event reports that a watched file changed.
type Event struct {
	Path string
}

// Config configures a Watcher.
type Config struct {
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig watches paths with the default debounce.
func DefaultConfig(paths ...string) Config {
	return Config{Paths: paths, DebounceDur: DefaultDebounce}
}

// Watcher emits one Event per watched file after its writes settle.
type Watcher struct {
	cfg     Config
	fs      *fsnotify.Watcher
	targets map[string]bool
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer

	stopOnce sync.Once
}

// New creates a watcher. Parent directories of every path must exist.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("watcher: no paths")
	}
	if cfg.DebounceDur <= 0 {
		cfg.DebounceDur = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		fs:      fsw,
		targets: make(map[string]bool),
		events:  make(chan Event, 16),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}

	dirs := make(map[string]bool)
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Events returns the change notifications. The channel is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins delivering events.
func (w *Watcher) Start() error {
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop stops the watcher and closes the events channel.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()

		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.timers = nil
		w.mu.Unlock()

		w.wg.Wait()
		close(w.events)
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if !w.targets[path] {
				continue
			}
			w.schedule(path)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn("file watcher error", "error", err)
		}
	}
}

// schedule restarts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timers == nil {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.cfg.DebounceDur)
		return
	}
	w.timers[path] = time.AfterFunc(w.cfg.DebounceDur, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.timers == nil {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	logging.Debug("result file changed", "path", path)
	select {
	case w.events <- Event{Path: path}:
	case <-w.done:
	}
}
