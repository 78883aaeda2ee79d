// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobstore

import (
	"github.com/lsmkit/blobstore/cache"
	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/vfs"
)

// ReadTier selects which tiers of the read path a call may touch.
type ReadTier int

const (
	// ReadAllTier reads from the value cache and, on miss, from storage.
	ReadAllTier ReadTier = iota
	// CacheOnlyTier reads from the value cache only. A miss returns
	// base.ErrBlobNotInCache and never performs storage I/O.
	CacheOnlyTier
)

// ReadOptions configures a single GetBlob or MultiGetBlob call.
type ReadOptions struct {
	// VerifyChecksums causes the per-record checksum to be verified against
	// the key and raw value bytes read from storage. Values served from the
	// cache were verified when inserted and are not re-verified.
	VerifyChecksums bool
	// FillCache causes values read from storage to be inserted into the value
	// cache. When false the cache is never mutated, so diagnostic passes can
	// probe cache state without perturbing it.
	FillCache bool
	// ReadTier restricts which tiers may be consulted.
	ReadTier ReadTier
}

// BlobLocation identifies one stored blob record.
type BlobLocation struct {
	// FileNum is the blob file's number.
	FileNum base.DiskFileNum
	// Offset of the value bytes within the file.
	Offset uint64
	// FileSize is the total size of the containing file, used for
	// validation only.
	FileSize uint64
	// OnDiskSize is the stored (possibly compressed) length of the value
	// bytes, excluding the record header and key.
	OnDiskSize uint64
	// Compression is the algorithm the value was stored with.
	Compression compression.Algorithm
}

// Options configures a Source.
type Options struct {
	// DirName is the directory containing the blob files.
	DirName string
	// FS is the filesystem to read blob files from. Defaults to vfs.Default.
	FS vfs.FS
	// Cache is the shared value cache. Required; the Source only references
	// it and never manages its lifecycle.
	Cache *cache.Cache
	// FileCache is the shared pool of open blob file readers. Required; may
	// be shared between Sources.
	FileCache *FileCache
	// DBID and DBSessionID identify the logical database instance. They
	// namespace this Source's cache keys within the shared Cache.
	DBID        string
	DBSessionID string
	// Stats receives the observability counters. Defaults to a private sink.
	Stats *Stats
	// Logger defaults to base.DefaultLogger.
	Logger base.Logger
}

// EnsureDefaults fills in unset fields that have defaults.
func (o *Options) EnsureDefaults() {
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.Stats == nil {
		o.Stats = &Stats{}
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger
	}
}
