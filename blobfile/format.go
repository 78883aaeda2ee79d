// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blobfile implements the append-only blob log container format and
// its writer and reader.
//
// A blob file is a file header, a sequence of records, and a file footer:
//
//	header (30 bytes):
//	  magic (4) | version (4) | column family ID (4) | flags (1) |
//	  compression (1) | expiration range start (8) | end (8)
//	record (32-byte header, then key and value bytes):
//	  key length (8) | value length (8) | expiration (8) |
//	  header CRC (4) | blob CRC (4)
//	footer (32 bytes):
//	  magic (4) | blob count (8) | expiration range start (8) | end (8) |
//	  footer CRC (4)
//
// All integers are little-endian. The blob CRC is the masked
// CRC-32/Castagnoli of the key bytes followed by the (possibly compressed)
// value bytes; the header CRC covers the first 24 bytes of the record header,
// and the footer CRC the first 28 bytes of the footer. The value length is
// the on-disk length, after compression.
//
// A record's location is identified by the offset of its value bytes within
// the file, the convention used by blob handles: the record header and key
// precede that offset.
package blobfile

import (
	"encoding/binary"

	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/internal/crc"
)

const (
	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 30
	// RecordHeaderSize is the size of the per-record header in bytes. A
	// record occupies RecordHeaderSize + len(key) + value length bytes.
	RecordHeaderSize = 32
	// FooterSize is the size of the file footer in bytes.
	FooterSize = 32

	headerMagic = "BLG0"
	footerMagic = "BLG1"

	// FormatVersion1 is the only version of the blob file format.
	FormatVersion1 = 1
)

const (
	flagHasTTL = 1 << 0
)

// ExpirationRange is the range of expiration times covered by a file's
// records. It is carried through the format but not enforced by the read
// path.
type ExpirationRange struct {
	Start uint64
	End   uint64
}

// fileHeader is the decoded form of a blob file header.
type fileHeader struct {
	columnFamilyID  uint32
	compression     compression.Algorithm
	hasTTL          bool
	expirationRange ExpirationRange
}

func (h *fileHeader) encode(b []byte) {
	copy(b[0:4], headerMagic)
	binary.LittleEndian.PutUint32(b[4:8], FormatVersion1)
	binary.LittleEndian.PutUint32(b[8:12], h.columnFamilyID)
	var flags byte
	if h.hasTTL {
		flags |= flagHasTTL
	}
	b[12] = flags
	b[13] = byte(h.compression)
	binary.LittleEndian.PutUint64(b[14:22], h.expirationRange.Start)
	binary.LittleEndian.PutUint64(b[22:30], h.expirationRange.End)
}

func (h *fileHeader) decode(b []byte) error {
	if len(b) != HeaderSize {
		return base.CorruptionErrorf("blobstore: invalid blob file header length %d", len(b))
	}
	if string(b[0:4]) != headerMagic {
		return base.CorruptionErrorf("blobstore: invalid blob file header magic %x", b[0:4])
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != FormatVersion1 {
		return base.CorruptionErrorf("blobstore: unsupported blob file format version %d", v)
	}
	h.columnFamilyID = binary.LittleEndian.Uint32(b[8:12])
	h.hasTTL = b[12]&flagHasTTL != 0
	h.compression = compression.Algorithm(b[13])
	if !h.compression.IsValid() {
		return base.CorruptionErrorf("blobstore: invalid compression type %d", b[13])
	}
	h.expirationRange.Start = binary.LittleEndian.Uint64(b[14:22])
	h.expirationRange.End = binary.LittleEndian.Uint64(b[22:30])
	return nil
}

// recordHeader is the decoded form of a per-record header.
type recordHeader struct {
	keyLen     uint64
	valueLen   uint64
	expiration uint64
	blobCRC    uint32
}

func (h *recordHeader) encode(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], h.keyLen)
	binary.LittleEndian.PutUint64(b[8:16], h.valueLen)
	binary.LittleEndian.PutUint64(b[16:24], h.expiration)
	binary.LittleEndian.PutUint32(b[24:28], crc.New(b[0:24]).Value())
	binary.LittleEndian.PutUint32(b[28:32], h.blobCRC)
}

func (h *recordHeader) decode(b []byte) error {
	if len(b) != RecordHeaderSize {
		return base.CorruptionErrorf("blobstore: invalid blob record header length %d", len(b))
	}
	encodedCRC := binary.LittleEndian.Uint32(b[24:28])
	if computedCRC := crc.New(b[0:24]).Value(); encodedCRC != computedCRC {
		return base.CorruptionErrorf(
			"blobstore: blob record header checksum mismatch 0x%04x, expected 0x%04x",
			encodedCRC, computedCRC)
	}
	h.keyLen = binary.LittleEndian.Uint64(b[0:8])
	h.valueLen = binary.LittleEndian.Uint64(b[8:16])
	h.expiration = binary.LittleEndian.Uint64(b[16:24])
	h.blobCRC = binary.LittleEndian.Uint32(b[28:32])
	return nil
}

// fileFooter is the decoded form of a blob file footer.
type fileFooter struct {
	blobCount       uint64
	expirationRange ExpirationRange
}

func (f *fileFooter) encode(b []byte) {
	copy(b[0:4], footerMagic)
	binary.LittleEndian.PutUint64(b[4:12], f.blobCount)
	binary.LittleEndian.PutUint64(b[12:20], f.expirationRange.Start)
	binary.LittleEndian.PutUint64(b[20:28], f.expirationRange.End)
	binary.LittleEndian.PutUint32(b[28:32], crc.New(b[0:28]).Value())
}

func (f *fileFooter) decode(b []byte) error {
	if len(b) != FooterSize {
		return base.CorruptionErrorf("blobstore: invalid blob file footer length %d", len(b))
	}
	if string(b[0:4]) != footerMagic {
		return base.CorruptionErrorf("blobstore: invalid blob file footer magic %x", b[0:4])
	}
	encodedCRC := binary.LittleEndian.Uint32(b[28:32])
	if computedCRC := crc.New(b[0:28]).Value(); encodedCRC != computedCRC {
		return base.CorruptionErrorf(
			"blobstore: blob file footer checksum mismatch 0x%04x, expected 0x%04x",
			encodedCRC, computedCRC)
	}
	f.blobCount = binary.LittleEndian.Uint64(b[4:12])
	f.expirationRange.Start = binary.LittleEndian.Uint64(b[12:20])
	f.expirationRange.End = binary.LittleEndian.Uint64(b[20:28])
	return nil
}
