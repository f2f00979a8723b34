// Package keylock provides mutual exclusion scoped to a string key.
//
// Entries are created on first use and dropped once nobody holds or waits
// for them, so the table only grows with the number of keys in flight.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// Table is a lazily populated set of per-key locks. The zero value is not
// usable; call New.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held or ctx is done. The returned
// unlock func is idempotent.
func (t *Table) Lock(ctx context.Context, key string) (func(), error) {
	e := t.acquireRef(key)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		t.releaseRef(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			t.releaseRef(key, e)
		})
	}, nil
}

// Len reports how many keys currently have holders or waiters.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) acquireRef(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *Table) releaseRef(key string, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
}
