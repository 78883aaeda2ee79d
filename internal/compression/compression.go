// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compression provides the compression algorithms supported by the
// blob file format.
package compression

import "github.com/cockroachdb/errors"

// Algorithm identifies a compression algorithm. The values are stored in blob
// file headers and must not be changed.
type Algorithm uint8

const (
	// None indicates values are stored uncompressed.
	None Algorithm = 0
	// Snappy compression.
	Snappy Algorithm = 1
	// Zstd compression. The compressed payload is prefixed with a varint
	// encoding of the decompressed length.
	Zstd Algorithm = 2
	// MinLZ compression.
	MinLZ Algorithm = 3

	numAlgorithms = 4
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "NoCompression"
	case Snappy:
		return "Snappy"
	case Zstd:
		return "ZSTD"
	case MinLZ:
		return "MinLZ"
	default:
		return "unknown"
	}
}

// IsValid reports whether a is a known algorithm.
func (a Algorithm) IsValid() bool {
	return a < numAlgorithms
}

// A Compressor compresses byte slices.
type Compressor interface {
	// Compress compresses src and appends the result to dst, returning the
	// extended slice.
	Compress(dst, src []byte) []byte
	// Close must be called when the Compressor is no longer needed.
	Close()
}

// A Decompressor decompresses byte slices.
type Decompressor interface {
	// DecompressInto decompresses src into dst. dst must have the exact length
	// reported by DecompressedLen.
	DecompressInto(dst, src []byte) error
	// DecompressedLen returns the decompressed length of b.
	DecompressedLen(b []byte) (int, error)
	// Close must be called when the Decompressor is no longer needed.
	Close()
}

// GetCompressor returns a Compressor for the given algorithm. The caller must
// call Close on the result.
func GetCompressor(a Algorithm) Compressor {
	switch a {
	case None:
		return noopCompressor{}
	case Snappy:
		return snappyCompressor{}
	case Zstd:
		return getZstdCompressor()
	case MinLZ:
		return minlzCompressor{}
	default:
		panic(errors.AssertionFailedf("unknown compression algorithm %d", a))
	}
}

// GetDecompressor returns a Decompressor for the given algorithm. The caller
// must call Close on the result.
func GetDecompressor(a Algorithm) Decompressor {
	switch a {
	case None:
		return noopDecompressor{}
	case Snappy:
		return snappyDecompressor{}
	case Zstd:
		return zstdDecompressor{}
	case MinLZ:
		return minlzDecompressor{}
	default:
		panic(errors.AssertionFailedf("unknown compression algorithm %d", a))
	}
}
