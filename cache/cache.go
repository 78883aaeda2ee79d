// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package cache implements the shared blob value cache: a sharded,
// capacity-bounded map from fixed-width keys to immutable byte values.
// Entries are reference-counted; a Handle returned by Lookup pins the bytes
// until it is released, even across eviction.
//
// A single Cache may back many database instances. Each instance registers
// its identity with NewID and incorporates the resulting namespace into every
// key, so entries from different instances never alias even when file numbers
// collide.
package cache

import (
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/lsmkit/blobstore/internal/base"
)

// ID is a namespace for cache keys. The cache allocates a distinct ID per
// (database identity, database session identity) pair.
type ID uint64

// KeySize is the width of a cache Key in bytes.
const KeySize = 24

// Key identifies a single cached value: the big-endian concatenation of the
// namespace ID, the blob file number and the byte offset of the record within
// the file. The encoding is fixed-width and injective; no hashing is involved,
// so two distinct (ID, file number, offset) tuples can never collide.
type Key [KeySize]byte

// MakeKey constructs the Key for a blob value.
func MakeKey(id ID, fileNum base.DiskFileNum, offset uint64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[0:8], uint64(id))
	binary.BigEndian.PutUint64(k[8:16], uint64(fileNum))
	binary.BigEndian.PutUint64(k[16:24], offset)
	return k
}

func (k Key) shardIdx(numShards int) int {
	// Mix the three words so that values from one file spread across shards.
	h := binary.BigEndian.Uint64(k[0:8]) * 0x9e3779b97f4a7c15
	h ^= binary.BigEndian.Uint64(k[8:16]) * 0xc2b2ae3d27d4eb4f
	h ^= binary.BigEndian.Uint64(k[16:24]) * 0x165667b19e3779f9
	return int(h % uint64(numShards))
}

// Cache is a sharded LRU cache of blob values.
type Cache struct {
	maxSize int64
	shards  []shard

	idMu struct {
		sync.Mutex
		next ID
		ids  map[identity]ID
	}
}

type identity struct {
	dbID        string
	dbSessionID string
}

// New creates a new Cache with the given capacity in bytes.
func New(size int64) *Cache {
	return NewWithShards(size, 4*runtime.GOMAXPROCS(0))
}

// NewWithShards creates a new Cache with the specified capacity and number of
// shards.
func NewWithShards(size int64, numShards int) *Cache {
	c := &Cache{
		maxSize: size,
		shards:  make([]shard, numShards),
	}
	for i := range c.shards {
		c.shards[i].init(size / int64(numShards))
	}
	c.idMu.ids = make(map[identity]ID)
	return c
}

// NewID returns the key namespace for the given database identity and session
// identity. The same pair always maps to the same ID for the lifetime of the
// Cache; distinct pairs map to distinct IDs.
func (c *Cache) NewID(dbID, dbSessionID string) ID {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	ident := identity{dbID: dbID, dbSessionID: dbSessionID}
	if id, ok := c.idMu.ids[ident]; ok {
		return id
	}
	c.idMu.next++
	c.idMu.ids[ident] = c.idMu.next
	return c.idMu.next
}

// Lookup returns a Handle pinning the value cached under k, or an invalid
// Handle if no value is present. The caller must Release a valid Handle.
func (c *Cache) Lookup(k Key) Handle {
	return c.getShard(k).lookup(k)
}

// Insert adds a value to the cache under k, with a charge equal to
// len(value). Insertion is best-effort: a value larger than a shard's capacity
// is rejected and false is returned. An existing entry under k is replaced;
// outstanding Handles on the replaced entry remain valid.
//
// The cache assumes ownership of value; the caller must not modify it after
// Insert returns.
func (c *Cache) Insert(k Key, value []byte) bool {
	return c.getShard(k).insert(k, value)
}

// Erase removes the entry under k, if any. Outstanding Handles remain valid.
func (c *Cache) Erase(k Key) {
	c.getShard(k).erase(k)
}

// EraseUnrefEntries removes every entry that no Handle currently pins.
func (c *Cache) EraseUnrefEntries() {
	for i := range c.shards {
		c.shards[i].eraseUnrefEntries()
	}
}

// MaxSize returns the capacity of the cache in bytes.
func (c *Cache) MaxSize() int64 { return c.maxSize }

// Metrics holds metrics for the cache.
type Metrics struct {
	// Size is the sum of the charges of resident entries.
	Size int64
	// Count of resident entries.
	Count int64
	// Hits is the number of lookups that found a value.
	Hits int64
	// Misses is the number of lookups that found nothing.
	Misses int64
}

// Metrics returns the metrics for the cache.
func (c *Cache) Metrics() Metrics {
	var m Metrics
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		m.Count += int64(len(s.mu.entries))
		m.Size += s.mu.sizeUsed
		s.mu.Unlock()
		m.Hits += s.hits.Load()
		m.Misses += s.misses.Load()
	}
	return m
}

func (c *Cache) getShard(k Key) *shard {
	return &c.shards[k.shardIdx(len(c.shards))]
}
