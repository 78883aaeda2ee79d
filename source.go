// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blobstore implements the read path of a disk-resident blob store:
// retrieval of large values stored in append-only blob files beneath a
// key-value engine, with a two-tier cache between callers and storage.
//
// A Source serves single (GetBlob) and batched (MultiGetBlob) retrievals. On
// each request it consults the shared value cache first; on miss it acquires
// a pooled file reader, reads the raw record, verifies its checksum,
// decompresses it, and optionally repopulates the cache. Values handed to
// callers are pinned: they remain valid until released regardless of
// concurrent cache eviction.
package blobstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/lsmkit/blobstore/cache"
	"github.com/lsmkit/blobstore/internal/base"
)

// A Source reads blob values identified by BlobLocations, minimizing storage
// I/O through the shared value cache and the shared file reader pool. It is
// safe for concurrent use.
//
// A Source references its cache and pool; it never owns their lifecycle. Many
// Sources, each with its own database identity, may share both.
type Source struct {
	opts    Options
	cacheID cache.ID
	stats   *Stats
}

// NewSource creates a Source. opts.Cache and opts.FileCache are required.
func NewSource(opts Options) (*Source, error) {
	opts.EnsureDefaults()
	if opts.Cache == nil {
		return nil, errors.AssertionFailedf("blobstore: Options.Cache is required")
	}
	if opts.FileCache == nil {
		return nil, errors.AssertionFailedf("blobstore: Options.FileCache is required")
	}
	return &Source{
		opts:    opts,
		cacheID: opts.Cache.NewID(opts.DBID, opts.DBSessionID),
		stats:   opts.Stats,
	}, nil
}

// Stats returns the Source's observability sink.
func (s *Source) Stats() *Stats { return s.stats }

// cacheKey builds the value cache key for a blob. The key is the fixed-width
// concatenation of the Source's cache namespace, the file number and the
// offset; it is injective, so entries of Sources with different database or
// session identities can never alias even within one shared cache.
func (s *Source) cacheKey(fileNum base.DiskFileNum, offset uint64) cache.Key {
	return cache.MakeKey(s.cacheID, fileNum, offset)
}

// lookupValue probes the value cache. Every probe counts toward the hit or
// miss counter, whatever the outcome.
func (s *Source) lookupValue(k cache.Key) cache.Handle {
	h := s.opts.Cache.Lookup(k)
	if h.Valid() {
		s.stats.CacheHitCount.Add(1)
		s.stats.CacheBytesRead.Add(int64(len(h.Bytes())))
	} else {
		s.stats.CacheMissCount.Add(1)
	}
	return h
}

// fillValue inserts a decompressed value into the value cache. Insertion is
// best-effort; a rejection is not an error.
func (s *Source) fillValue(k cache.Key, value []byte) {
	if s.opts.Cache.Insert(k, value) {
		s.stats.CacheAddCount.Add(1)
		s.stats.CacheBytesWrite.Add(int64(len(value)))
	}
}

// BlobInCache reports whether the blob at the given location is resident in
// the value cache. The probe counts toward the hit/miss counters like any
// lookup.
func (s *Source) BlobInCache(fileNum base.DiskFileNum, offset uint64) bool {
	h := s.lookupValue(s.cacheKey(fileNum, offset))
	if !h.Valid() {
		return false
	}
	h.Release()
	return true
}

// GetBlob retrieves the blob stored at loc for the given user key. On success
// it returns a pinned value that the caller must Release, plus the number of
// bytes read from storage for this call (zero when the value was served from
// the cache).
//
// With opts.ReadTier == CacheOnlyTier a cache miss returns
// base.ErrBlobNotInCache and no storage I/O is ever attempted. A failure to
// open the blob file is returned unchanged; a checksum or decompression
// failure is a corruption error, with bytesRead still reflecting the read
// that preceded it. No failure path mutates the cache.
func (s *Source) GetBlob(
	ctx context.Context, opts ReadOptions, key []byte, loc BlobLocation,
) (value PinnedBlob, bytesRead uint64, err error) {
	k := s.cacheKey(loc.FileNum, loc.Offset)

	if h := s.lookupValue(k); h.Valid() {
		// Cache hit: the value was verified and decompressed when inserted.
		return PinnedBlob{handle: h}, 0, nil
	}
	if opts.ReadTier == CacheOnlyTier {
		return PinnedBlob{}, 0, base.ErrBlobNotInCache
	}

	rh, err := s.opts.FileCache.Acquire(ctx, loc.FileNum)
	if err != nil {
		return PinnedBlob{}, 0, err
	}
	defer rh.Release()
	reader := rh.Reader()

	if fileSize := reader.FileSize(); loc.FileSize != fileSize {
		return PinnedBlob{}, 0, base.CorruptionErrorf(
			"blobstore: blob file %s size mismatch: expected %d, actual %d",
			loc.FileNum, loc.FileSize, fileSize)
	}
	if ct := reader.CompressionType(); loc.Compression != ct {
		return PinnedBlob{}, 0, base.CorruptionErrorf(
			"blobstore: blob file %s compression mismatch: expected %s, actual %s",
			loc.FileNum, loc.Compression, ct)
	}

	readWatch := base.MakeStopwatch()
	raw, blobCRC, recordSize, err := reader.ReadRecord(loc.Offset, key, loc.OnDiskSize)
	s.stats.addReadTime(readWatch.Stop())
	if err != nil {
		return PinnedBlob{}, 0, err
	}
	s.stats.BlobReadCount.Add(1)
	s.stats.BlobBytesRead.Add(int64(recordSize))

	decoded, err := decodeBlob(raw, key, blobCRC, loc.Compression, opts.VerifyChecksums, s.stats)
	if err != nil {
		// The read itself succeeded; only interpretation failed.
		return PinnedBlob{}, recordSize, err
	}

	if opts.FillCache {
		s.fillValue(k, decoded)
	}
	return PinnedBlob{buf: decoded}, recordSize, nil
}

// MultiGetBlob retrieves a batch of blobs stored in a single blob file, one
// per parallel (keys[i], offsets[i], sizes[i]) triple. Each item gets an
// independent outcome: errs[i] == nil means values[i] holds the item's pinned
// value. A failure on one item never aborts its siblings, and one item's
// bytes are never attributed to another index.
//
// Cache misses share a single pooled reader and a single batched read. If the
// file cannot be opened, every miss item receives that error. The returned
// total counts only bytes actually fetched from storage; cache hits
// contribute zero.
func (s *Source) MultiGetBlob(
	ctx context.Context,
	opts ReadOptions,
	keys [][]byte,
	fileNum base.DiskFileNum,
	fileSize uint64,
	offsets []uint64,
	sizes []uint64,
) (values []PinnedBlob, errs []error, totalBytesRead uint64) {
	if len(offsets) != len(keys) || len(sizes) != len(keys) {
		panic(errors.AssertionFailedf(
			"blobstore: mismatched MultiGetBlob lengths: %d keys, %d offsets, %d sizes",
			len(keys), len(offsets), len(sizes)))
	}
	values = make([]PinnedBlob, len(keys))
	errs = make([]error, len(keys))

	// Phase 1: probe the cache for every item.
	var missIdx []int
	cacheKeys := make([]cache.Key, len(keys))
	for i := range keys {
		cacheKeys[i] = s.cacheKey(fileNum, offsets[i])
		if h := s.lookupValue(cacheKeys[i]); h.Valid() {
			values[i] = PinnedBlob{handle: h}
		} else {
			missIdx = append(missIdx, i)
		}
	}
	if len(missIdx) == 0 {
		return values, errs, 0
	}
	if opts.ReadTier == CacheOnlyTier {
		for _, i := range missIdx {
			errs[i] = base.ErrBlobNotInCache
		}
		return values, errs, 0
	}

	// Phase 2: one shared reader, one batched read for all misses.
	rh, err := s.opts.FileCache.Acquire(ctx, fileNum)
	if err != nil {
		for _, i := range missIdx {
			errs[i] = err
		}
		return values, errs, 0
	}
	defer rh.Release()
	reader := rh.Reader()

	if actual := reader.FileSize(); fileSize != actual {
		err := base.CorruptionErrorf(
			"blobstore: blob file %s size mismatch: expected %d, actual %d",
			fileNum, fileSize, actual)
		for _, i := range missIdx {
			errs[i] = err
		}
		return values, errs, 0
	}

	missKeys := make([][]byte, len(missIdx))
	missOffsets := make([]uint64, len(missIdx))
	missSizes := make([]uint64, len(missIdx))
	for j, i := range missIdx {
		missKeys[j] = keys[i]
		missOffsets[j] = offsets[i]
		missSizes[j] = sizes[i]
	}

	readWatch := base.MakeStopwatch()
	results := reader.ReadRecords(missKeys, missOffsets, missSizes)
	s.stats.addReadTime(readWatch.Stop())

	compression := reader.CompressionType()
	for j, i := range missIdx {
		r := results[j]
		if r.Err != nil {
			errs[i] = r.Err
			continue
		}
		s.stats.BlobReadCount.Add(1)
		s.stats.BlobBytesRead.Add(int64(r.RecordSize))
		totalBytesRead += r.RecordSize

		decoded, err := decodeBlob(r.Raw, keys[i], r.BlobCRC, compression, opts.VerifyChecksums, s.stats)
		if err != nil {
			errs[i] = err
			continue
		}
		if opts.FillCache {
			s.fillValue(cacheKeys[i], decoded)
		}
		values[i] = PinnedBlob{buf: decoded}
	}
	return values, errs, totalBytesRead
}

// PinnedBlob is a retrieved blob value. It either pins an entry of the value
// cache or owns a private buffer; in both cases the bytes returned by Value
// are immutable and remain valid until Release.
type PinnedBlob struct {
	handle cache.Handle
	buf    []byte
}

// Valid reports whether the PinnedBlob holds a value.
func (b PinnedBlob) Valid() bool {
	return b.handle.Valid() || b.buf != nil
}

// Value returns the decompressed, verified value bytes. The caller must not
// modify them and must not use them after Release.
func (b PinnedBlob) Value() []byte {
	if b.handle.Valid() {
		return b.handle.Bytes()
	}
	return b.buf
}

// Release drops the pin. It must be called exactly once on a valid
// PinnedBlob; it is a no-op on the zero value.
func (b PinnedBlob) Release() {
	b.handle.Release()
}
