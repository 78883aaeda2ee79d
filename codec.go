// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobstore

import (
	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/internal/crc"
)

// maxDecompressedValueLen bounds the decompressed length a stored payload may
// announce. Stored values are far smaller in practice; the bound exists so a
// corrupted length prefix reads as corruption rather than an absurd
// allocation.
const maxDecompressedValueLen = 4 << 30

// decodeBlob turns raw record bytes read from storage into the value returned
// to callers: an optional checksum verification stage followed by an optional
// decompression stage. Either stage is a no-op depending on configuration,
// but both always record their elapsed time so a zero-cost verification is
// distinguishable from one that was not attempted.
//
// When compression is None the raw bytes are returned unchanged. Any failure
// is a corruption error and no partial output is produced.
func decodeBlob(
	raw []byte,
	key []byte,
	storedCRC uint32,
	algo compression.Algorithm,
	verifyChecksums bool,
	stats *Stats,
) ([]byte, error) {
	checksumWatch := base.MakeStopwatch()
	if verifyChecksums {
		if computed := crc.New(key).Update(raw).Value(); computed != storedCRC {
			stats.addChecksumTime(checksumWatch.Stop())
			return nil, base.CorruptionErrorf(
				"blobstore: blob checksum mismatch: stored 0x%04x, computed 0x%04x",
				storedCRC, computed)
		}
	}
	stats.addChecksumTime(checksumWatch.Stop())

	decompressWatch := base.MakeStopwatch()
	if algo == compression.None {
		stats.addDecompressTime(decompressWatch.Stop())
		return raw, nil
	}
	decompressor := compression.GetDecompressor(algo)
	defer decompressor.Close()
	n, err := decompressor.DecompressedLen(raw)
	if err != nil {
		stats.addDecompressTime(decompressWatch.Stop())
		return nil, base.MarkCorruptionError(err)
	}
	// The announced length is part of the stored payload. It is covered by the
	// record checksum, but checksum verification is optional, so a corrupted
	// length must not drive the allocation below.
	if n < 0 || uint64(n) > maxDecompressedValueLen {
		stats.addDecompressTime(decompressWatch.Stop())
		return nil, base.CorruptionErrorf(
			"blobstore: invalid decompressed blob length %d (compressed length %d)", n, len(raw))
	}
	value := make([]byte, n)
	if err := decompressor.DecompressInto(value, raw); err != nil {
		stats.addDecompressTime(decompressWatch.Stop())
		return nil, base.MarkCorruptionError(err)
	}
	stats.addDecompressTime(decompressWatch.Stop())
	return value, nil
}
