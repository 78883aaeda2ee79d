// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobstore

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the observability sink updated by the read path. Counters are
// plain atomics so the hot path stays cheap; the struct also implements
// prometheus.Collector for export.
//
// Every value cache probe, including diagnostic-only probes, increments
// exactly one of CacheHitCount/CacheMissCount. Only reads that reached
// storage move BlobReadCount/BlobBytesRead.
type Stats struct {
	// CacheHitCount is the number of value cache probes that found an entry.
	CacheHitCount atomic.Int64
	// CacheMissCount is the number of value cache probes that found nothing.
	CacheMissCount atomic.Int64
	// CacheAddCount is the number of values inserted into the value cache.
	CacheAddCount atomic.Int64
	// CacheBytesRead is the total decompressed bytes served from the cache.
	CacheBytesRead atomic.Int64
	// CacheBytesWrite is the total decompressed bytes inserted into the cache.
	CacheBytesWrite atomic.Int64
	// BlobReadCount is the number of storage read operations.
	BlobReadCount atomic.Int64
	// BlobBytesRead is the total on-disk record bytes fetched from storage.
	BlobBytesRead atomic.Int64
	// ChecksumNanos is the time spent verifying record checksums.
	ChecksumNanos atomic.Int64
	// DecompressNanos is the time spent decompressing values.
	DecompressNanos atomic.Int64
	// ReadNanos is the time spent in storage reads.
	ReadNanos atomic.Int64
}

func (s *Stats) addChecksumTime(d time.Duration)   { s.ChecksumNanos.Add(int64(d)) }
func (s *Stats) addDecompressTime(d time.Duration) { s.DecompressNanos.Add(int64(d)) }
func (s *Stats) addReadTime(d time.Duration)       { s.ReadNanos.Add(int64(d)) }

var (
	descCacheHit        = prometheus.NewDesc("blobstore_cache_hit_total", "Value cache hits.", nil, nil)
	descCacheMiss       = prometheus.NewDesc("blobstore_cache_miss_total", "Value cache misses.", nil, nil)
	descCacheAdd        = prometheus.NewDesc("blobstore_cache_add_total", "Value cache insertions.", nil, nil)
	descCacheBytesRead  = prometheus.NewDesc("blobstore_cache_read_bytes_total", "Bytes served from the value cache.", nil, nil)
	descCacheBytesWrite = prometheus.NewDesc("blobstore_cache_write_bytes_total", "Bytes inserted into the value cache.", nil, nil)
	descBlobReadCount   = prometheus.NewDesc("blobstore_storage_read_total", "Storage read operations.", nil, nil)
	descBlobBytesRead   = prometheus.NewDesc("blobstore_storage_read_bytes_total", "Bytes read from storage.", nil, nil)
	descChecksumNanos   = prometheus.NewDesc("blobstore_checksum_seconds_total", "Time spent verifying checksums.", nil, nil)
	descDecompressNanos = prometheus.NewDesc("blobstore_decompress_seconds_total", "Time spent decompressing values.", nil, nil)
	descReadNanos       = prometheus.NewDesc("blobstore_storage_read_seconds_total", "Time spent in storage reads.", nil, nil)
)

var _ prometheus.Collector = (*Stats)(nil)

// Describe implements prometheus.Collector.
func (s *Stats) Describe(ch chan<- *prometheus.Desc) {
	ch <- descCacheHit
	ch <- descCacheMiss
	ch <- descCacheAdd
	ch <- descCacheBytesRead
	ch <- descCacheBytesWrite
	ch <- descBlobReadCount
	ch <- descBlobBytesRead
	ch <- descChecksumNanos
	ch <- descDecompressNanos
	ch <- descReadNanos
}

// Collect implements prometheus.Collector.
func (s *Stats) Collect(ch chan<- prometheus.Metric) {
	counter := func(desc *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	seconds := func(desc *prometheus.Desc, nanos int64) {
		ch <- prometheus.MustNewConstMetric(
			desc, prometheus.CounterValue, time.Duration(nanos).Seconds())
	}
	counter(descCacheHit, s.CacheHitCount.Load())
	counter(descCacheMiss, s.CacheMissCount.Load())
	counter(descCacheAdd, s.CacheAddCount.Load())
	counter(descCacheBytesRead, s.CacheBytesRead.Load())
	counter(descCacheBytesWrite, s.CacheBytesWrite.Load())
	counter(descBlobReadCount, s.BlobReadCount.Load())
	counter(descBlobBytesRead, s.BlobBytesRead.Load())
	seconds(descChecksumNanos, s.ChecksumNanos.Load())
	seconds(descDecompressNanos, s.DecompressNanos.Load())
	seconds(descReadNanos, s.ReadNanos.Load())
}
