package workflow

import "sync"

// keyedLocker serializes work per expense while letting different
// expenses proceed in parallel. Entries are dropped once unused.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu      sync.Mutex
	waiters int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: make(map[int64]*lockEntry)}
}

// Lock blocks until the key is free and returns the matching unlock func
func (l *keyedLocker) Lock(key int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.waiters++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.waiters--
		if entry.waiters == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// size returns the number of keys currently held or awaited
func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
