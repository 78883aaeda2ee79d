// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobstore

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/internal/crc"
	"github.com/stretchr/testify/require"
)

func TestDecodeBlobRoundtrip(t *testing.T) {
	key := []byte("key")
	value := []byte("some value bytes that repeat, repeat, repeat, repeat")
	for _, algo := range []compression.Algorithm{
		compression.None, compression.Snappy, compression.Zstd, compression.MinLZ,
	} {
		t.Run(algo.String(), func(t *testing.T) {
			c := compression.GetCompressor(algo)
			raw := c.Compress(nil, value)
			c.Close()
			storedCRC := crc.New(key).Update(raw).Value()

			var stats Stats
			decoded, err := decodeBlob(raw, key, storedCRC, algo, true, &stats)
			require.NoError(t, err)
			require.Equal(t, value, decoded)

			_, err = decodeBlob(raw, key, storedCRC+1, algo, true, &stats)
			require.True(t, base.IsCorruption(err))
		})
	}
}

func TestDecodeBlobHostileLengthPrefix(t *testing.T) {
	// A payload whose length prefix announces an absurd decompressed size.
	// With checksum verification disabled nothing vouches for the prefix, so
	// it must be bounded before it drives an allocation.
	key := []byte("key")
	for _, announced := range []uint64{math.MaxUint64, 1 << 40, maxDecompressedValueLen + 1} {
		raw := binary.AppendUvarint(nil, announced)
		raw = append(raw, []byte("garbage")...)

		var stats Stats
		v, err := decodeBlob(raw, key, 0, compression.Zstd, false, &stats)
		require.True(t, base.IsCorruption(err))
		require.Nil(t, v)

		// With verification enabled the checksum rejects it first.
		_, err = decodeBlob(raw, key, 0, compression.Zstd, true, &stats)
		require.True(t, base.IsCorruption(err))
	}
}
