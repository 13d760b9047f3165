// Package watcher monitors ciphertext files and emits their contents once
// a write has settled.
package watcher

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"
)

// MaxFileSize bounds how much of a file is read for one event.
const MaxFileSize = 16 << 20

// Event is a ciphertext file whose content settled.
type Event struct {
	Path      string
	Text      string
	Digest    string
	Size      int64
	Timestamp time.Time
}

// Watcher monitors files and directories for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	settle    time.Duration
	tick      time.Duration

	// path -> last modification seen
	state   map[string]time.Time
	digests map[string]string
	stateMu sync.Mutex

	events chan Event
	errors chan error

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for paths. A file is emitted once it has not been
// written for settle.
func New(paths []string, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		return nil, fmt.Errorf("watcher: settle interval must be positive")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	tick := settle / 2
	if tick > time.Second {
		tick = time.Second
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		paths:     paths,
		settle:    settle,
		tick:      tick,
		state:     make(map[string]time.Time),
		digests:   make(map[string]string),
		events:    make(chan Event, 16),
		errors:    make(chan error, 8),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of settled files.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching. Files that already exist are emitted once they
// are found stable, so an existing ciphertext is analysed immediately.
func (w *Watcher) Start() error {
	for _, path := range w.paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if err := w.fsWatcher.Add(absPath); err != nil {
				return err
			}
			entries, err := os.ReadDir(absPath)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					w.trackFile(filepath.Join(absPath, entry.Name()))
				}
			}
			continue
		}

		// Single files are watched through their directory so editors that
		// replace the file are still seen.
		if err := w.fsWatcher.Add(filepath.Dir(absPath)); err != nil {
			return err
		}
		w.trackFile(absPath)
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()

	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
		w.wg.Wait()
		close(w.events)
		close(w.errors)
	})
	return err
}

func (w *Watcher) trackFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.stateMu.Lock()
	w.state[path] = info.ModTime()
	w.stateMu.Unlock()
}

// watched reports whether path was named directly or lives in a watched
// directory.
func (w *Watcher) watched(path string) bool {
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if abs == path {
			return true
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() && filepath.Dir(path) == abs {
			return true
		}
	}
	return false
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.watched(name) {
				continue
			}
			info, err := os.Stat(name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) settleLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.emitSettled(now)
		}
	}
}

type pending struct {
	path    string
	lastMod time.Time
}

// emitSettled reads every file quiet for the settle interval. The lock is
// released while reading so eventLoop is never blocked on I/O.
func (w *Watcher) emitSettled(now time.Time) {
	threshold := now.Add(-w.settle)

	var settled []pending
	w.stateMu.Lock()
	for path, lastMod := range w.state {
		if lastMod.Before(threshold) {
			settled = append(settled, pending{path: path, lastMod: lastMod})
		}
	}
	w.stateMu.Unlock()

	for _, p := range settled {
		text, digest, size, err := ReadFile(p.path)

		w.stateMu.Lock()
		if cur, ok := w.state[p.path]; !ok || !cur.Equal(p.lastMod) {
			// Written again while reading; wait for it to settle.
			w.stateMu.Unlock()
			continue
		}
		if err != nil {
			delete(w.state, p.path)
			w.stateMu.Unlock()
			w.sendError(err)
			continue
		}
		if w.digests[p.path] == digest {
			delete(w.state, p.path)
			w.stateMu.Unlock()
			continue
		}
		w.stateMu.Unlock()

		event := Event{Path: p.path, Text: text, Digest: digest, Size: size, Timestamp: now}
		select {
		case w.events <- event:
			w.stateMu.Lock()
			delete(w.state, p.path)
			w.digests[p.path] = digest
			w.stateMu.Unlock()
		case <-w.done:
			return
		default:
			// Channel full, retry on the next tick.
		}
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// ReadFile reads up to MaxFileSize bytes of path and returns the text with
// its hex BLAKE2b-256 digest.
func ReadFile(path string) (string, string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return "", "", 0, err
	}
	if len(data) > MaxFileSize {
		return "", "", 0, fmt.Errorf("watcher: %s exceeds %d bytes", path, MaxFileSize)
	}

	sum := blake2b.Sum256(data)
	return string(data), hex.EncodeToString(sum[:]), int64(len(data)), nil
}

// WatchedPaths returns the list of paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return w.paths
}

// TrackedFiles returns the number of files waiting to settle.
func (w *Watcher) TrackedFiles() int {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return len(w.state)
}
