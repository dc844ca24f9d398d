package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports changes to a single file. It watches the parent
// directory so atomic replace-by-rename is seen as well as in-place writes.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan struct{}
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	target  string
}

// NewFileWatcher creates a FileWatcher. It must be started with Start.
func NewFileWatcher() (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		events:  make(chan struct{}, 1),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching path. The parent directory is created if needed.
func (fw *FileWatcher) Start(path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return fmt.Errorf("watcher already running")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	fw.target = abs
	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.done)

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	fw.wg.Wait()

	close(fw.events)
	close(fw.errors)

	return nil
}

// Events signals that the watched file was created, written, replaced or
// removed. Signals coalesce while unread. The channel is closed by Stop.
func (fw *FileWatcher) Events() <-chan struct{} {
	return fw.events
}

// Errors returns watcher errors. The channel is closed by Stop.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			select {
			case fw.events <- struct{}{}:
			default:
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	abs, err := filepath.Abs(event.Name)
	if err != nil || abs != fw.target {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// Follow keeps sess in step with the file behind store: whenever another
// process rewrites or removes the file, the new state is loaded and Set.
// Unchanged content is not republished. Follow blocks until ctx is done.
func Follow(ctx context.Context, store *Store, sess *Session, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}

	fw, err := NewFileWatcher()
	if err != nil {
		return err
	}
	if err := fw.Start(store.Path()); err != nil {
		fw.watcher.Close()
		return err
	}
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-fw.Events():
			if !ok {
				return nil
			}
			state, err := store.Load()
			if err != nil {
				// A writer may be mid-way; the rename that completes it
				// produces another event.
				logger.Printf("WARNING: failed to reload session: %v", err)
				continue
			}
			if state.Equal(sess.Current()) {
				continue
			}
			if state.UserID != sess.UserID() {
				logger.Printf("Session switched to user %q", state.UserID)
			}
			sess.Set(state)

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}
			logger.Printf("WARNING: session watcher error: %v", err)
		}
	}
}
