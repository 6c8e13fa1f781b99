package sync

import (
	"sort"
	base "sync"
)

const virtualNodesPerStripe = 200

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a StripedLock with a fixed number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(stripes, virtualNodesPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.index(key)]
}

// Acquire takes the stripes covering writeKeys exclusively and the stripes
// covering readKeys shared, returning a func that releases all of them. A
// stripe reached by both a write and a read key is taken exclusively.
//
// Stripes are always taken in ascending order, so concurrent callers with
// overlapping key sets cannot deadlock.
func (l *StripedLock) Acquire(writeKeys, readKeys [][]byte) (release func()) {
	exclusive := make(map[int]bool)
	for _, key := range readKeys {
		exclusive[l.index(key)] = false
	}
	for _, key := range writeKeys {
		exclusive[l.index(key)] = true
	}

	stripes := make([]int, 0, len(exclusive))
	for stripe := range exclusive {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if exclusive[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			if exclusive[stripes[i]] {
				l.locks[stripes[i]].Unlock()
			} else {
				l.locks[stripes[i]].RUnlock()
			}
		}
	}
}

func (l *StripedLock) index(key []byte) int {
	return l.hashRing.stripe(key)
}
