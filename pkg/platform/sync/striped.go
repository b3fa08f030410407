// Package sync holds locking helpers the standard sync package lacks.
package sync

import (
	"hash/maphash"
	"sync"
)

// Striped serializes work per string key without a lock per key. Keys hash
// onto a fixed set of mutexes, so two keys may share a stripe but one key
// always maps to the same stripe.
type Striped struct {
	seed    maphash.Seed
	stripes []sync.Mutex
	mask    uint64
}

// NewStriped rounds n up to a power of two, with a floor of one stripe.
func NewStriped(n int) *Striped {
	size := 1
	for size < n {
		size <<= 1
	}
	return &Striped{
		seed:    maphash.MakeSeed(),
		stripes: make([]sync.Mutex, size),
		mask:    uint64(size - 1),
	}
}

// Do runs fn while holding key's stripe.
func (s *Striped) Do(key string, fn func()) {
	mu := &s.stripes[s.index(key)]
	mu.Lock()
	defer mu.Unlock()
	fn()
}

func (s *Striped) index(key string) uint64 {
	return maphash.String(s.seed, key) & s.mask
}
