package cache

import (
	"context"
	"sync"
)

// notifier tracks a version per table and wakes subscribers after commits.
// Subscriber channels hold at most one pending signal, so bursts of commits
// coalesce into a single wake-up.
type notifier struct {
	mu       sync.Mutex
	versions map[Table]uint64
	subs     map[Table]map[chan struct{}]struct{}
}

func newNotifier() *notifier {
	return &notifier{
		versions: make(map[Table]uint64),
		subs:     make(map[Table]map[chan struct{}]struct{}),
	}
}

func (n *notifier) subscribe(tables ...Table) (chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	for _, t := range tables {
		if n.subs[t] == nil {
			n.subs[t] = make(map[chan struct{}]struct{})
		}
		n.subs[t][ch] = struct{}{}
	}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		for _, t := range tables {
			delete(n.subs[t], ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

func (n *notifier) publish(tables ...Table) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, t := range tables {
		n.versions[t]++
		for ch := range n.subs[t] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

func (n *notifier) version(t Table) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.versions[t]
}

// Version returns the number of committed writes that touched table since
// the DB was opened.
func (db *DB) Version(table Table) uint64 {
	return db.notify.version(table)
}

// Changes returns a channel that receives a signal after each commit
// touching any of tables. Signals coalesce while the reader is busy. The
// channel is closed when ctx is done.
func (db *DB) Changes(ctx context.Context, tables ...Table) <-chan struct{} {
	sig, cancel := db.notify.subscribe(tables...)
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}

// Observe streams snapshots produced by load. The first snapshot is sent
// immediately; another follows every commit that touches one of tables.
// A reader that falls behind receives the latest snapshot rather than every
// intermediate one. Snapshots whose load fails are logged and skipped. The
// channel is closed when ctx is done.
func Observe[T any](ctx context.Context, db *DB, load func(context.Context) ([]T, error), tables ...Table) <-chan []T {
	// Subscribe before the first load so no commit can slip between them.
	sig, cancel := db.notify.subscribe(tables...)
	out := make(chan []T)

	go func() {
		defer close(out)
		defer cancel()

		emit := func() bool {
			rows, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				db.logger.Printf("WARNING: snapshot of %v failed: %v", tables, err)
				return true
			}
			select {
			case out <- rows:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				if !emit() {
					return
				}
			}
		}
	}()

	return out
}
