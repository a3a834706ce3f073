// Package watch signals when any of a fixed set of input files changes, so
// the CLI can re-scan and re-render them.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is used when New is given a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors a set of files using fsnotify with a polling fallback.
//
// fsnotify watches the parent directories rather than the files themselves,
// so editors that save by writing a temp file and renaming it over the
// original keep producing events.
type Watcher struct {
	// files is the set of absolute, cleaned paths being monitored.
	files map[string]bool
	// dirs are the parent directories of files, sorted.
	dirs []string
	// events delivers a signal each time a watched file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw across the fallback switch and Close.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat sweeps in polling mode.
	pollInterval time.Duration
}

// New creates a Watcher for paths. Paths need not exist yet; a file created
// later in an existing directory is picked up.
func New(paths []string, pollInterval time.Duration) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths given")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	w := &Watcher{
		files:        make(map[string]bool, len(paths)),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}
	dirSet := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = filepath.Clean(abs)
		w.files[abs] = true
		dirSet[filepath.Dir(abs)] = true
	}
	for d := range dirSet {
		w.dirs = append(w.dirs, d)
	}
	sort.Strings(w.dirs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	for _, d := range w.dirs {
		if err := fsw.Add(d); err != nil {
			slog.Info("cannot watch directory, falling back to polling", "path", d, "error", err)
			fsw.Close()
			w.startPolling()
			return w, nil
		}
	}

	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a watched file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// relevant reports whether event touches a watched file in a way that may
// have changed its content.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// watch loops over fsnotify events and forwards relevant ones to the events
// channel. If fsnotify reports an error, watch closes the native watcher and
// falls back to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				slog.Debug("watched file changed", "path", event.Name, "op", event.Op.String())
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			w.mu.Lock()
			if w.fsw != nil {
				w.fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

// ///////////////////////////////////////////////
// Polling
// ///////////////////////////////////////////////

// fileStamp is the part of a stat result that signals a content change.
type fileStamp struct {
	mod  time.Time
	size int64
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// snapshot stats every watched file. Missing files are absent from the map.
func (w *Watcher) snapshot() map[string]fileStamp {
	stamps := make(map[string]fileStamp, len(w.files))
	for p := range w.files {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		stamps[p] = fileStamp{mod: info.ModTime(), size: info.Size()}
	}
	return stamps
}

// poll periodically stats the watched files and sends a notification when
// any of them appears, grows, shrinks or has its modification time advance.
func (w *Watcher) poll() {
	last := w.snapshot()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.snapshot()
			if changed(last, cur) {
				w.notify()
			}
			last = cur
		}
	}
}

// changed reports whether any file present in cur is new or differs from
// its stamp in prev. Files that disappear do not count.
func changed(prev, cur map[string]fileStamp) bool {
	for p, s := range cur {
		old, ok := prev[p]
		if !ok || s.mod.After(old.mod) || s.size != old.size {
			return true
		}
	}
	return false
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
