// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package genericcache implements a capacity-bounded cache that associates
// keys with values which are expensive to initialize (such as open file
// readers). Values are initialized on demand, at most once per key, and are
// released when they are evicted and no outstanding references remain.
package genericcache

import (
	"context"
	"fmt"
	"os"

	"github.com/lsmkit/blobstore/internal/invariants"
)

// Cache associates keys with ref-counted values, initializing values on
// demand. It uses multiple shards to reduce contention and evicts the least
// recently used value when a shard is at capacity.
type Cache[K Key, V any] struct {
	shards []shard[K, V]
}

// Key must be implemented by the key type used with a Cache.
type Key interface {
	comparable

	// Shard maps the key to a shard index between 0 and numShards-1.
	Shard(numShards int) int
}

// InitValueFn is called to initialize a new value that is being added to the
// cache. It is guaranteed that there will be no concurrent calls to
// InitValueFn with the same key.
type InitValueFn[K Key, V any] func(ctx context.Context, key K, v *V) error

// ReleaseValueFn is called to release a value that is no longer used: it was
// evicted from the cache and there are no outstanding ValueRefs on it.
type ReleaseValueFn[V any] func(v *V)

// New creates a Cache with the given capacity and number of shards.
func New[K Key, V any](
	capacity int, numShards int, initValueFn InitValueFn[K, V], releaseValueFn ReleaseValueFn[V],
) *Cache[K, V] {
	c := &Cache[K, V]{}
	c.shards = make([]shard[K, V], numShards)
	shardCapacity := (capacity + numShards - 1) / numShards
	for i := range c.shards {
		c.shards[i].Init(shardCapacity, initValueFn, releaseValueFn)
	}
	if invariants.Enabled {
		invariants.SetFinalizer(c, func(obj interface{}) {
			if c := obj.(*Cache[K, V]); c.shards != nil {
				fmt.Fprintf(os.Stderr, "cache was not closed\n")
				os.Exit(1)
			}
		})
	}
	return c
}

// FindOrCreate retrieves an existing value or creates a new value for the
// given key. The result is accessed via ValueRef.Value(); the caller must call
// ValueRef.Unref() when it no longer needs the value.
func (c *Cache[K, V]) FindOrCreate(ctx context.Context, key K) (ValueRef[K, V], error) {
	shard := c.getShard(key)
	value := shard.findOrCreateValue(ctx, key)
	if err := value.err; err != nil {
		shard.UnrefValue(value)
		return ValueRef[K, V]{}, err
	}
	return ValueRef[K, V]{shard: shard, value: value}, nil
}

// ValueRef is returned by FindOrCreate. It holds a reference on a value; the
// value is kept alive even if the cache evicts it to make room for another.
type ValueRef[K Key, V any] struct {
	shard *shard[K, V]
	value *value[V]
}

// Value returns the value. It can only be used until Unref is called.
func (ref ValueRef[K, V]) Value() *V {
	return &ref.value.v
}

// Unref releases the reference. It must be called or the underlying value will
// never be cleaned up.
func (ref ValueRef[K, V]) Unref() {
	ref.shard.UnrefValue(ref.value)
}

// Evict removes any entry associated with the given key, releasing its value
// once all outstanding references are dropped.
func (c *Cache[K, V]) Evict(key K) {
	c.getShard(key).Evict(key)
}

// Close the cache, releasing all live values. There must not be any
// outstanding references on any of the values.
func (c *Cache[K, V]) Close() {
	for i := range c.shards {
		c.shards[i].Close()
	}
	c.shards = nil
}

// Metrics holds metrics for the cache.
type Metrics struct {
	// Count of values resident in the cache.
	Count int64
	// Hits is the number of lookups that found an existing value.
	Hits int64
	// Misses is the number of lookups that initialized a new value.
	Misses int64
}

// Metrics retrieves metrics for the cache.
func (c *Cache[K, V]) Metrics() Metrics {
	var m Metrics
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		m.Count += int64(len(s.mu.values))
		s.mu.Unlock()
		m.Hits += s.hits.Load()
		m.Misses += s.misses.Load()
	}
	return m
}

func (c *Cache[K, V]) getShard(key K) *shard[K, V] {
	return &c.shards[key.Shard(len(c.shards))]
}
