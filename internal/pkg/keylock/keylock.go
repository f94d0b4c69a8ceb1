// Package keylock serializes work per key with a fixed set of mutexes.
package keylock

import (
	"hash/fnv"
	"sync"
)

const stripes = 64

// Striped maps every key onto one of a fixed number of mutexes. Two keys may
// share a stripe; one key always maps to the same stripe. The zero value is
// ready to use.
type Striped struct {
	mu [stripes]sync.Mutex
}

// Lock acquires the stripe for key and returns the matching unlock.
func (s *Striped) Lock(key string) (unlock func()) {
	m := &s.mu[stripe(key)]
	m.Lock()
	return m.Unlock
}

func stripe(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % stripes
}
