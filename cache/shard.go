// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

import (
	"sync"
	"sync/atomic"
)

// entry is a cached value. refs holds one reference for the shard while the
// entry is resident, plus one per outstanding Handle. The value bytes are
// immutable once the entry is constructed.
type entry struct {
	key  Key
	val  []byte
	refs atomic.Int32

	// LRU links, most recently used first. Only touched under the shard
	// mutex. nil once the entry has been unlinked from the shard.
	next *entry
	prev *entry
}

type shard struct {
	hits   atomic.Int64
	misses atomic.Int64

	maxSize int64

	mu struct {
		sync.Mutex
		entries map[Key]*entry
		// root of the circular LRU list. root.next is the most recently used
		// entry, root.prev the eviction candidate.
		root     entry
		sizeUsed int64
	}
}

func (s *shard) init(maxSize int64) {
	s.maxSize = maxSize
	s.mu.entries = make(map[Key]*entry)
	s.mu.root.next = &s.mu.root
	s.mu.root.prev = &s.mu.root
}

func (s *shard) lookup(k Key) Handle {
	s.mu.Lock()
	e := s.mu.entries[k]
	if e == nil {
		s.mu.Unlock()
		s.misses.Add(1)
		return Handle{}
	}
	e.refs.Add(1)
	s.moveToFront(e)
	s.mu.Unlock()
	s.hits.Add(1)
	return Handle{e: e}
}

func (s *shard) insert(k Key, value []byte) bool {
	charge := int64(len(value))
	if charge > s.maxSize {
		return false
	}
	e := &entry{key: k, val: value}
	e.refs.Store(1) // the shard's reference

	s.mu.Lock()
	if old := s.mu.entries[k]; old != nil {
		s.unlinkLocked(old)
		defer unrefEntry(old)
	}
	s.mu.entries[k] = e
	s.pushFrontLocked(e)
	s.mu.sizeUsed += charge

	// Evict from the cold end until the charge fits. The new entry itself is
	// never evicted here since charge <= maxSize implies it fits alone.
	var evicted []*entry
	for s.mu.sizeUsed > s.maxSize && s.mu.root.prev != e {
		victim := s.mu.root.prev
		s.unlinkLocked(victim)
		evicted = append(evicted, victim)
	}
	s.mu.Unlock()

	for _, victim := range evicted {
		unrefEntry(victim)
	}
	return true
}

func (s *shard) erase(k Key) {
	s.mu.Lock()
	e := s.mu.entries[k]
	if e != nil {
		s.unlinkLocked(e)
	}
	s.mu.Unlock()
	if e != nil {
		unrefEntry(e)
	}
}

func (s *shard) eraseUnrefEntries() {
	s.mu.Lock()
	var evicted []*entry
	for e := s.mu.root.next; e != &s.mu.root; {
		next := e.next
		if e.refs.Load() == 1 {
			s.unlinkLocked(e)
			evicted = append(evicted, e)
		}
		e = next
	}
	s.mu.Unlock()
	for _, e := range evicted {
		unrefEntry(e)
	}
}

// unlinkLocked removes e from the shard's map and LRU list and reduces the
// accounted size. The shard's reference is not dropped; the caller must call
// unrefEntry without holding the mutex.
func (s *shard) unlinkLocked(e *entry) {
	delete(s.mu.entries, e.key)
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev = nil, nil
	s.mu.sizeUsed -= int64(len(e.val))
}

func (s *shard) pushFrontLocked(e *entry) {
	e.next = s.mu.root.next
	e.prev = &s.mu.root
	e.next.prev = e
	s.mu.root.next = e
}

func (s *shard) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	s.pushFrontLocked(e)
}

func unrefEntry(e *entry) {
	if v := e.refs.Add(-1); v < 0 {
		panic("blobstore: cache entry ref count below zero")
	}
	// The entry's bytes are reclaimed by the garbage collector once the last
	// Handle drops its pointer.
}
