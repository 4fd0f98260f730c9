package repository

import "sync"

// CollectionLocks hands out one mutex per collection name.
type CollectionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCollectionLocks() *CollectionLocks {
	return &CollectionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the named collection is held and returns the unlock func.
func (l *CollectionLocks) Lock(name string) func() {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
