// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobstore

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/lsmkit/blobstore/blobfile"
	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/genericcache"
	"github.com/lsmkit/blobstore/vfs"
)

// FileCacheOptions configures a FileCache.
type FileCacheOptions struct {
	// FS is the filesystem blob files are opened from. Defaults to
	// vfs.Default.
	FS vfs.FS
	// DirName is the directory containing the blob files.
	DirName string
	// Capacity bounds the number of concurrently open readers. Defaults to
	// 128.
	Capacity int
	// NumShards defaults to 2 x GOMAXPROCS.
	NumShards int
	// Logger defaults to base.DefaultLogger.
	Logger base.Logger
}

// EnsureDefaults fills in unset fields that have defaults.
func (o *FileCacheOptions) EnsureDefaults() {
	if o.FS == nil {
		o.FS = vfs.Default
	}
	if o.Capacity <= 0 {
		o.Capacity = 128
	}
	if o.NumShards <= 0 {
		o.NumShards = 2 * runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger
	}
}

// fileNumKey makes base.DiskFileNum usable as a genericcache key.
type fileNumKey base.DiskFileNum

// Shard implements genericcache.Key.
func (k fileNumKey) Shard(numShards int) int {
	return int(uint64(k) % uint64(numShards))
}

// A FileCache is a bounded pool of open blob file readers. Readers are opened
// on demand, at most once per file number regardless of concurrent demand,
// and are closed when evicted from the pool and no longer referenced. A
// reader acquired by one caller remains usable even if the pool evicts its
// file number concurrently.
type FileCache struct {
	opts  FileCacheOptions
	cache *genericcache.Cache[fileNumKey, *blobfile.Reader]
}

// NewFileCache creates a FileCache.
func NewFileCache(opts FileCacheOptions) *FileCache {
	opts.EnsureDefaults()
	c := &FileCache{opts: opts}
	c.cache = genericcache.New(
		opts.Capacity, opts.NumShards,
		func(ctx context.Context, key fileNumKey, r **blobfile.Reader) error {
			reader, err := c.openReader(base.DiskFileNum(key))
			if err != nil {
				return err
			}
			*r = reader
			return nil
		},
		func(r **blobfile.Reader) {
			if err := (*r).Close(); err != nil {
				c.opts.Logger.Errorf("blobstore: closing blob file %s: %v", (*r).FileNum(), err)
			}
		},
	)
	return c
}

func (c *FileCache) openReader(fileNum base.DiskFileNum) (*blobfile.Reader, error) {
	name := base.BlobFileName(c.opts.DirName, fileNum)
	fi, err := c.opts.FS.Stat(name)
	if err != nil {
		return nil, errors.Wrapf(err, "blobstore: opening blob file %s", fileNum)
	}
	f, err := c.opts.FS.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "blobstore: opening blob file %s", fileNum)
	}
	r, err := blobfile.NewReader(f, fileNum, uint64(fi.Size()), blobfile.ReaderOptions{
		Logger: c.opts.Logger,
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Acquire returns a pinned reader for the given file number, opening the file
// if no pooled reader exists. The caller must call Release on the returned
// handle. Failure to open the file is returned unchanged and nothing is
// pooled for the file number.
func (c *FileCache) Acquire(ctx context.Context, fileNum base.DiskFileNum) (ReaderHandle, error) {
	ref, err := c.cache.FindOrCreate(ctx, fileNumKey(fileNum))
	if err != nil {
		return ReaderHandle{}, err
	}
	return ReaderHandle{ref: ref}, nil
}

// Evict removes the pooled reader for the given file number, if any. It is
// used when a blob file is deleted. Outstanding handles remain valid.
func (c *FileCache) Evict(fileNum base.DiskFileNum) {
	c.cache.Evict(fileNumKey(fileNum))
}

// Metrics returns hit/miss metrics for the pool.
func (c *FileCache) Metrics() genericcache.Metrics {
	return c.cache.Metrics()
}

// Close the pool, closing all pooled readers. There must be no outstanding
// handles.
func (c *FileCache) Close() {
	c.cache.Close()
}

// ReaderHandle is a pinned reference to a pooled blob file reader. The reader
// remains valid until Release is called.
type ReaderHandle struct {
	ref genericcache.ValueRef[fileNumKey, *blobfile.Reader]
}

// Reader returns the pinned reader. It must not be used after Release.
func (h ReaderHandle) Reader() *blobfile.Reader {
	return *h.ref.Value()
}

// Release unpins the reader, allowing the pool to close it once evicted.
func (h ReaderHandle) Release() {
	h.ref.Unref()
}
