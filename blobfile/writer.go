// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobfile

import (
	"github.com/cockroachdb/errors"
	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/internal/crc"
	"github.com/lsmkit/blobstore/vfs"
)

var errWriterClosed = errors.New("blobstore: blob file writer closed")

// WriterOptions configures a blob file Writer.
type WriterOptions struct {
	// Compression is the algorithm applied to value bytes. Defaults to no
	// compression.
	Compression compression.Algorithm
	// ColumnFamilyID is recorded in the file header.
	ColumnFamilyID uint32
	// HasTTL marks the file's records as carrying expiration times.
	HasTTL bool
	// ExpirationRange is recorded in the file header and footer.
	ExpirationRange ExpirationRange
}

// A Writer appends blob records to a file. It is not safe for concurrent use.
type Writer struct {
	f          vfs.File
	fileNum    base.DiskFileNum
	opts       WriterOptions
	compressor compression.Compressor
	offset     uint64
	blobCount  uint64
	err        error

	compressBuf []byte
	headerBuf   [RecordHeaderSize]byte
}

// NewWriter creates a Writer that appends records to f, writing the file
// header immediately.
func NewWriter(f vfs.File, fileNum base.DiskFileNum, opts WriterOptions) (*Writer, error) {
	w := &Writer{
		f:          f,
		fileNum:    fileNum,
		opts:       opts,
		compressor: compression.GetCompressor(opts.Compression),
	}
	header := fileHeader{
		columnFamilyID:  opts.ColumnFamilyID,
		compression:     opts.Compression,
		hasTTL:          opts.HasTTL,
		expirationRange: opts.ExpirationRange,
	}
	var buf [HeaderSize]byte
	header.encode(buf[:])
	if _, err := f.Write(buf[:]); err != nil {
		w.compressor.Close()
		return nil, err
	}
	w.offset = HeaderSize
	return w, nil
}

// AddRecord appends a record for (key, value), compressing the value per the
// writer's options. It returns the offset of the value bytes within the file
// and the value's on-disk (compressed) size; together with the key these
// identify the record's location to a Reader.
func (w *Writer) AddRecord(key, value []byte) (valueOffset, onDiskSize uint64, err error) {
	return w.AddRecordWithExpiration(key, value, 0)
}

// AddRecordWithExpiration appends a record like AddRecord, additionally
// recording the value's expiration time in the record header. Expirations are
// only meaningful in files written with WriterOptions.HasTTL.
func (w *Writer) AddRecordWithExpiration(
	key, value []byte, expiration uint64,
) (valueOffset, onDiskSize uint64, err error) {
	if w.err != nil {
		return 0, 0, w.err
	}
	stored := value
	if w.opts.Compression != compression.None {
		w.compressBuf = w.compressor.Compress(w.compressBuf[:0], value)
		stored = w.compressBuf
	}

	h := recordHeader{
		keyLen:     uint64(len(key)),
		valueLen:   uint64(len(stored)),
		expiration: expiration,
		blobCRC:    crc.New(key).Update(stored).Value(),
	}
	h.encode(w.headerBuf[:])

	for _, part := range [][]byte{w.headerBuf[:], key, stored} {
		if _, err := w.f.Write(part); err != nil {
			w.err = err
			return 0, 0, err
		}
	}
	valueOffset = w.offset + RecordHeaderSize + uint64(len(key))
	onDiskSize = uint64(len(stored))
	w.offset += RecordHeaderSize + uint64(len(key)) + uint64(len(stored))
	w.blobCount++
	return valueOffset, onDiskSize, nil
}

// Close writes the file footer, syncs and closes the file. The total file
// size is returned.
func (w *Writer) Close() (fileSize uint64, err error) {
	if w.err != nil {
		return 0, w.err
	}
	defer func() {
		w.compressor.Close()
		w.err = errWriterClosed
	}()

	footer := fileFooter{
		blobCount:       w.blobCount,
		expirationRange: w.opts.ExpirationRange,
	}
	var buf [FooterSize]byte
	footer.encode(buf[:])
	if _, err := w.f.Write(buf[:]); err != nil {
		return 0, err
	}
	w.offset += FooterSize
	if err := w.f.Sync(); err != nil {
		return 0, err
	}
	if err := w.f.Close(); err != nil {
		return 0, err
	}
	return w.offset, nil
}
