// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobfile

import (
	"bytes"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
)

// ReaderOptions configures a blob file Reader.
type ReaderOptions struct {
	Logger base.Logger
}

func (o ReaderOptions) ensureDefaults() ReaderOptions {
	if o.Logger == nil {
		o.Logger = base.DefaultLogger
	}
	return o
}

// A Reader reads blob records from a file. It validates the file header and
// footer when opened and serves raw (still compressed) record bytes; checksum
// verification of values and decompression are the caller's concern. A Reader
// is safe for concurrent use.
type Reader struct {
	f        readAtCloser
	fileNum  base.DiskFileNum
	fileSize uint64
	header   fileHeader
	footer   fileFooter
}

// readAtCloser is the subset of vfs.File a Reader needs.
type readAtCloser interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// NewReader opens a blob file for reading. fileSize must be the file's total
// size in bytes. On error, f is still open and remains the caller's
// responsibility.
func NewReader(
	f readAtCloser, fileNum base.DiskFileNum, fileSize uint64, ro ReaderOptions,
) (*Reader, error) {
	ro = ro.ensureDefaults()
	if fileSize < HeaderSize+FooterSize {
		return nil, base.CorruptionErrorf(
			"blobstore: invalid blob file %s (size %d is too small)", fileNum, fileSize)
	}

	r := &Reader{f: f, fileNum: fileNum, fileSize: fileSize}

	var headerBuf [HeaderSize]byte
	if _, err := f.ReadAt(headerBuf[:], 0); err != nil {
		return nil, errors.Wrapf(err, "blobstore: reading header of blob file %s", fileNum)
	}
	if err := r.header.decode(headerBuf[:]); err != nil {
		return nil, err
	}

	var footerBuf [FooterSize]byte
	if _, err := f.ReadAt(footerBuf[:], int64(fileSize)-FooterSize); err != nil {
		return nil, errors.Wrapf(err, "blobstore: reading footer of blob file %s", fileNum)
	}
	if err := r.footer.decode(footerBuf[:]); err != nil {
		return nil, err
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// FileNum returns the file number the Reader was opened with.
func (r *Reader) FileNum() base.DiskFileNum { return r.fileNum }

// FileSize returns the total size of the file in bytes.
func (r *Reader) FileSize() uint64 { return r.fileSize }

// CompressionType returns the compression algorithm applied to the file's
// values, read from the file header.
func (r *Reader) CompressionType() compression.Algorithm { return r.header.compression }

// BlobCount returns the number of records recorded in the file footer.
func (r *Reader) BlobCount() uint64 { return r.footer.blobCount }

// ExpirationRange returns the expiration range recorded in the file footer.
func (r *Reader) ExpirationRange() ExpirationRange { return r.footer.expirationRange }

// ReadRecord reads the record whose value bytes start at offset and have
// on-disk length valueSize, for the given user key. It returns the raw
// (possibly compressed) value bytes, the record's stored blob checksum, and
// the total on-disk size consumed by the record (header, key and value
// bytes).
func (r *Reader) ReadRecord(
	offset uint64, key []byte, valueSize uint64,
) (raw []byte, blobCRC uint32, recordSize uint64, err error) {
	keyLen := uint64(len(key))
	recordSize = RecordHeaderSize + keyLen + valueSize

	if offset < HeaderSize+RecordHeaderSize+keyLen {
		return nil, 0, 0, base.CorruptionErrorf(
			"blobstore: invalid blob offset %d in file %s", offset, r.fileNum)
	}
	recordOffset := offset - RecordHeaderSize - keyLen
	// valueSize is untrusted and may be near the top of the uint64 range, in
	// which case recordSize has wrapped; compare against the data region with
	// subtractions only so no term can overflow. dataEnd >= HeaderSize since
	// NewReader validated the file size.
	dataEnd := r.fileSize - FooterSize
	if valueSize > dataEnd || recordSize > dataEnd || recordOffset > dataEnd-recordSize {
		return nil, 0, 0, base.CorruptionErrorf(
			"blobstore: blob record at %d length %d is out of range in file %s (size %d)",
			recordOffset, recordSize, r.fileNum, r.fileSize)
	}

	buf := make([]byte, recordSize)
	if _, err := r.f.ReadAt(buf, int64(recordOffset)); err != nil {
		return nil, 0, 0, errors.Wrapf(err, "blobstore: reading blob record in file %s", r.fileNum)
	}

	var h recordHeader
	if err := h.decode(buf[:RecordHeaderSize]); err != nil {
		return nil, 0, 0, err
	}
	if h.keyLen != keyLen || h.valueLen != valueSize {
		return nil, 0, 0, base.CorruptionErrorf(
			"blobstore: blob record length mismatch in file %s: got key/value %d/%d, expected %d/%d",
			r.fileNum, h.keyLen, h.valueLen, keyLen, valueSize)
	}
	if storedKey := buf[RecordHeaderSize : RecordHeaderSize+keyLen]; !bytes.Equal(storedKey, key) {
		return nil, 0, 0, base.CorruptionErrorf(
			"blobstore: blob record key mismatch in file %s at offset %d", r.fileNum, recordOffset)
	}
	return buf[RecordHeaderSize+keyLen:], h.blobCRC, recordSize, nil
}

// RecordResult is the outcome of one item of a ReadRecords batch.
type RecordResult struct {
	// Raw is the record's raw (possibly compressed) value bytes. Nil if Err
	// is set.
	Raw []byte
	// BlobCRC is the record's stored blob checksum.
	BlobCRC uint32
	// RecordSize is the total on-disk size consumed by the record.
	RecordSize uint64
	// Err is set if this item failed; other items are unaffected.
	Err error
}

// ReadRecords reads a batch of records from the file, one per parallel
// (keys[i], offsets[i], sizes[i]) triple. Items are fetched in ascending
// offset order but each result is attributed to its original index, and a
// failed item never affects its siblings.
func (r *Reader) ReadRecords(keys [][]byte, offsets []uint64, sizes []uint64) []RecordResult {
	results := make([]RecordResult, len(keys))
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return offsets[order[a]] < offsets[order[b]] })

	for _, i := range order {
		raw, blobCRC, recordSize, err := r.ReadRecord(offsets[i], keys[i], sizes[i])
		if err != nil {
			results[i] = RecordResult{Err: err}
			continue
		}
		results[i] = RecordResult{Raw: raw, BlobCRC: blobCRC, RecordSize: recordSize}
	}
	return results
}
