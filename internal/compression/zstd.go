// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"
	"github.com/lsmkit/blobstore/internal/base"
)

type zstdCompressor zstd.Encoder

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor() *zstdCompressor {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	return (*zstdCompressor)(encoder)
}

// Compress prefixes the payload with a varint encoding of the decompressed
// length, so DecompressedLen does not need to parse zstd frame headers.
func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	if cap(dst) < binary.MaxVarintLen64 {
		dst = make([]byte, 0, binary.MaxVarintLen64+len(src))
	}
	varIntLen := binary.PutUvarint(dst[:binary.MaxVarintLen64], uint64(len(src)))
	return (*zstd.Encoder)(z).EncodeAll(src, dst[:varIntLen])
}

func (z *zstdCompressor) Close() {
	if err := (*zstd.Encoder)(z).Close(); err != nil {
		panic(err)
	}
}

type zstdDecompressor struct{}

var _ Decompressor = zstdDecompressor{}

func (zstdDecompressor) DecompressInto(dst, src []byte) error {
	// The payload is prefixed with a varint encoding the length of the
	// decompressed value.
	_, prefixLen := binary.Uvarint(src)
	if prefixLen <= 0 {
		return base.CorruptionErrorf("blobstore: compressed payload has invalid length prefix")
	}
	src = src[prefixLen:]
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer decoder.Close()
	result, err := decoder.DecodeAll(src, dst[:0])
	if err != nil {
		return base.MarkCorruptionError(err)
	}
	if len(result) != len(dst) || (len(result) > 0 && &result[0] != &dst[0]) {
		return base.CorruptionErrorf("blobstore: zstd decompressed into unexpected buffer")
	}
	return nil
}

func (zstdDecompressor) DecompressedLen(b []byte) (decompressedLen int, err error) {
	decodedLenU64, varIntLen := binary.Uvarint(b)
	if varIntLen <= 0 {
		return 0, base.CorruptionErrorf("blobstore: compressed payload has invalid length prefix")
	}
	return int(decodedLenU64), nil
}

func (zstdDecompressor) Close() {}
