// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lsmkit/blobstore/internal/base"
	"github.com/stretchr/testify/require"
)

func TestMakeKeyInjective(t *testing.T) {
	keys := make(map[Key]struct{})
	for _, id := range []ID{1, 2, 3} {
		for _, fn := range []base.DiskFileNum{1, 2, 1 << 40} {
			for _, off := range []uint64{0, 30, 1 << 33} {
				keys[MakeKey(id, fn, off)] = struct{}{}
			}
		}
	}
	require.Len(t, keys, 27)
}

func TestNewID(t *testing.T) {
	c := NewWithShards(1<<20, 2)
	a := c.NewID("db1", "session1")
	require.Equal(t, a, c.NewID("db1", "session1"))
	require.NotEqual(t, a, c.NewID("db1", "session2"))
	require.NotEqual(t, a, c.NewID("db2", "session1"))
}

func TestLookupInsertErase(t *testing.T) {
	c := NewWithShards(1<<20, 2)
	k := MakeKey(1, 7, 42)

	require.False(t, c.Lookup(k).Valid())
	require.True(t, c.Insert(k, []byte("hello")))

	h := c.Lookup(k)
	require.True(t, h.Valid())
	require.Equal(t, []byte("hello"), h.Bytes())
	h.Release()

	c.Erase(k)
	require.False(t, c.Lookup(k).Valid())

	m := c.Metrics()
	require.Equal(t, int64(1), m.Hits)
	require.Equal(t, int64(2), m.Misses)
	require.Equal(t, int64(0), m.Count)
}

func TestMetrics(t *testing.T) {
	c := NewWithShards(1<<20, 1)
	k1 := MakeKey(1, 1, 0)
	k2 := MakeKey(1, 1, 100)

	require.False(t, c.Lookup(k1).Valid())
	require.True(t, c.Insert(k1, []byte("v1")))
	require.True(t, c.Insert(k2, []byte("v2")))

	h := c.Lookup(k1)
	require.True(t, h.Valid())
	h.Release()

	m := c.Metrics()
	require.Equal(t, int64(1), m.Hits)
	require.Equal(t, int64(1), m.Misses)
	require.Equal(t, int64(2), m.Count)
	require.Equal(t, int64(4), m.Size)
}

func TestOversizedValueRejected(t *testing.T) {
	c := NewWithShards(16, 1)
	require.False(t, c.Insert(MakeKey(1, 1, 0), make([]byte, 64)))
	require.False(t, c.Lookup(MakeKey(1, 1, 0)).Valid())
}

func TestLRUCapacityEviction(t *testing.T) {
	c := NewWithShards(10, 1)
	k1 := MakeKey(1, 1, 0)
	k2 := MakeKey(1, 1, 10)
	k3 := MakeKey(1, 1, 20)

	require.True(t, c.Insert(k1, []byte("aaaa")))
	require.True(t, c.Insert(k2, []byte("bbbb")))
	// k1 is now the least recently used entry; inserting k3 pushes usage to
	// 12 > 10 and must evict it.
	require.True(t, c.Insert(k3, []byte("cccc")))

	require.False(t, c.Lookup(k1).Valid())
	for _, k := range []Key{k2, k3} {
		h := c.Lookup(k)
		require.True(t, h.Valid())
		h.Release()
	}
}

func TestPinnedEntrySurvivesEviction(t *testing.T) {
	c := NewWithShards(1<<20, 1)
	k := MakeKey(1, 1, 0)
	require.True(t, c.Insert(k, []byte("pinned")))

	h := c.Lookup(k)
	require.True(t, h.Valid())

	c.Erase(k)
	require.False(t, c.Lookup(k).Valid())

	// The pinned bytes must remain readable after the entry is gone from the
	// cache.
	require.Equal(t, []byte("pinned"), h.Bytes())
	h.Release()
}

func TestEraseUnrefEntries(t *testing.T) {
	c := NewWithShards(1<<20, 2)
	kPinned := MakeKey(1, 1, 0)
	kUnpinned := MakeKey(1, 1, 10)

	require.True(t, c.Insert(kPinned, []byte("pinned")))
	require.True(t, c.Insert(kUnpinned, []byte("unpinned")))

	h := c.Lookup(kPinned)
	require.True(t, h.Valid())

	c.EraseUnrefEntries()

	// Only the unpinned entry is dropped.
	h2 := c.Lookup(kPinned)
	require.True(t, h2.Valid())
	h2.Release()
	require.False(t, c.Lookup(kUnpinned).Valid())

	h.Release()
	c.EraseUnrefEntries()
	require.False(t, c.Lookup(kPinned).Valid())
}

func TestReplaceKeepsOutstandingHandleValid(t *testing.T) {
	c := NewWithShards(1<<20, 1)
	k := MakeKey(1, 1, 0)
	require.True(t, c.Insert(k, []byte("old")))

	h := c.Lookup(k)
	require.True(t, h.Valid())

	require.True(t, c.Insert(k, []byte("new")))
	require.Equal(t, []byte("old"), h.Bytes())
	h.Release()

	h = c.Lookup(k)
	require.Equal(t, []byte("new"), h.Bytes())
	h.Release()
}

func TestConcurrentAccess(t *testing.T) {
	c := New(1 << 20)
	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ID(w%2 + 1)
			for i := range perWorker {
				k := MakeKey(id, base.DiskFileNum(i%10), uint64(i%50))
				val := fmt.Appendf(nil, "%d/%d/%d", id, i%10, i%50)
				if h := c.Lookup(k); h.Valid() {
					require.Equal(t, val, h.Bytes())
					h.Release()
				} else {
					c.Insert(k, val)
				}
			}
		}()
	}
	wg.Wait()
}
