package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLocksSerializeSameID(t *testing.T) {
	locks := NewDocumentLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("doc-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestDocumentLocksIndependentIDs(t *testing.T) {
	locks := NewDocumentLocks()

	unlockA := locks.Lock("doc-a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("doc-b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestDocumentLocksReleaseEntries(t *testing.T) {
	locks := NewDocumentLocks()
	unlock := locks.Lock("doc-1")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
