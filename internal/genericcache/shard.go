// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package genericcache

import (
	"context"
	"sync"
	"sync/atomic"
)

type shard[K Key, V any] struct {
	hits   atomic.Int64
	misses atomic.Int64

	capacity int

	mu struct {
		sync.Mutex
		values map[K]*node[K, V]
		// lru is a doubly-linked circular list of all nodes, most recently
		// used first. lru.next is the head, lru.prev the eviction candidate.
		lru node[K, V]
	}

	initValueFn    InitValueFn[K, V]
	releaseValueFn ReleaseValueFn[V]
}

// node is an entry in a shard's LRU list.
type node[K Key, V any] struct {
	key   K
	value *value[V]
	next  *node[K, V]
	prev  *node[K, V]
}

// value holds a V and its reference count. v and err can only be used after
// initialized is closed.
type value[V any] struct {
	v   V
	err error

	initialized chan struct{}
	refCount    atomic.Int32
}

func (s *shard[K, V]) Init(
	capacity int, initValueFn InitValueFn[K, V], releaseValueFn ReleaseValueFn[V],
) {
	*s = shard[K, V]{
		capacity:       capacity,
		initValueFn:    initValueFn,
		releaseValueFn: releaseValueFn,
	}
	s.mu.values = make(map[K]*node[K, V])
	s.mu.lru.next = &s.mu.lru
	s.mu.lru.prev = &s.mu.lru
}

// UnrefValue drops a reference, releasing the value when the last reference is
// dropped. A value's release waits for its initialization to complete.
func (s *shard[K, V]) UnrefValue(v *value[V]) {
	if v.refCount.Add(-1) == 0 {
		<-v.initialized
		if v.err == nil {
			s.releaseValueFn(&v.v)
		}
	}
}

// findOrCreateValue returns an initialized value for the key, taking a
// reference count on it. If the key is not already present, a new value is
// created and initialized, evicting the least recently used entry as
// necessary. The caller is responsible for unrefing the value.
func (s *shard[K, V]) findOrCreateValue(ctx context.Context, key K) *value[V] {
	s.mu.Lock()
	if n := s.mu.values[key]; n != nil {
		v := n.value
		v.refCount.Add(1)
		s.moveToFront(n)
		s.mu.Unlock()
		s.hits.Add(1)
		<-v.initialized
		return v
	}

	v := &value[V]{initialized: make(chan struct{})}
	// One reference for the shard, one for the caller.
	v.refCount.Store(2)
	n := &node[K, V]{key: key, value: v}
	s.mu.values[key] = n
	s.pushFront(n)
	var evicted *value[V]
	if len(s.mu.values) > s.capacity {
		evicted = s.evictLocked(s.mu.lru.prev)
	}
	s.mu.Unlock()
	s.misses.Add(1)

	if evicted != nil {
		s.UnrefValue(evicted)
	}

	v.err = s.initValueFn(ctx, key, &v.v)
	if v.err != nil {
		s.mu.Lock()
		// The node may have already been evicted or replaced.
		if n := s.mu.values[key]; n != nil && n.value == v {
			s.evictLocked(n)
			// Drop the shard's reference. The caller still holds theirs, so
			// the value cannot be released out from under us here.
			v.refCount.Add(-1)
		}
		s.mu.Unlock()
	}
	close(v.initialized)
	return v
}

// Evict removes the entry associated with the given key, if any, releasing
// its value once all outstanding references are dropped.
func (s *shard[K, V]) Evict(key K) {
	s.mu.Lock()
	var evicted *value[V]
	if n := s.mu.values[key]; n != nil {
		evicted = s.evictLocked(n)
	}
	s.mu.Unlock()
	if evicted != nil {
		s.UnrefValue(evicted)
	}
}

// evictLocked unlinks n from the shard. It returns n's value, whose shard
// reference the caller must drop via UnrefValue without holding the mutex (a
// release can block on an in-flight initialization).
func (s *shard[K, V]) evictLocked(n *node[K, V]) *value[V] {
	delete(s.mu.values, n.key)
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next, n.prev = nil, nil
	return n.value
}

func (s *shard[K, V]) pushFront(n *node[K, V]) {
	n.next = s.mu.lru.next
	n.prev = &s.mu.lru
	n.next.prev = n
	s.mu.lru.next = n
}

func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	s.pushFront(n)
}

// Close releases all live values. There must not be any outstanding references
// on any of the values.
func (s *shard[K, V]) Close() {
	s.mu.Lock()
	var values []*value[V]
	for s.mu.lru.next != &s.mu.lru {
		values = append(values, s.evictLocked(s.mu.lru.next))
	}
	s.mu.values = nil
	s.mu.Unlock()
	for _, v := range values {
		s.UnrefValue(v)
	}
}
