package service

import "sync"

// DocumentLocks serializes operations per document id. Operations on
// different documents proceed in parallel; concurrent mutations of the
// same document (a delete racing a version create, for instance) take
// turns. A single instance is shared by every service that mutates
// documents.
type DocumentLocks struct {
	mu    sync.Mutex
	locks map[string]*documentLock
}

type documentLock struct {
	mu   sync.Mutex
	refs int
}

func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{locks: make(map[string]*documentLock)}
}

// Lock acquires the mutex for the document id and returns its unlock
// function.
func (k *DocumentLocks) Lock(id string) func() {
	k.mu.Lock()
	lock, ok := k.locks[id]
	if !ok {
		lock = &documentLock{}
		k.locks[id] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
