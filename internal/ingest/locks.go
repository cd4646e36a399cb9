package ingest

import "sync"

// keyedLocks hands out one mutex per content hash so concurrent ingestions
// of the same bytes are mutually exclusive while distinct documents proceed
// in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*entry)}
}

// acquire blocks until the key's lock is held. The returned func releases
// it; the entry is dropped once nobody holds or waits on it.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
