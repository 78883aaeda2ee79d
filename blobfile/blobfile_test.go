// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blobfile

import (
	"fmt"
	"math"
	"testing"

	"github.com/lsmkit/blobstore/internal/base"
	"github.com/lsmkit/blobstore/internal/compression"
	"github.com/lsmkit/blobstore/internal/crc"
	"github.com/lsmkit/blobstore/vfs"
	"github.com/stretchr/testify/require"
)

// writeTestFile writes a blob file with the given records and returns the
// value offsets, on-disk sizes and total file size.
func writeTestFile(
	t *testing.T, fs vfs.FS, name string, algo compression.Algorithm, keys, values [][]byte,
) (offsets, sizes []uint64, fileSize uint64) {
	f, err := fs.Create(name)
	require.NoError(t, err)
	w, err := NewWriter(f, base.DiskFileNum(1), WriterOptions{Compression: algo})
	require.NoError(t, err)
	for i := range keys {
		off, sz, err := w.AddRecord(keys[i], values[i])
		require.NoError(t, err)
		offsets = append(offsets, off)
		sizes = append(sizes, sz)
	}
	fileSize, err = w.Close()
	require.NoError(t, err)
	return offsets, sizes, fileSize
}

func openTestFile(t *testing.T, fs vfs.FS, name string, fileSize uint64) *Reader {
	f, err := fs.Open(name)
	require.NoError(t, err)
	r, err := NewReader(f, base.DiskFileNum(1), fileSize, ReaderOptions{})
	require.NoError(t, err)
	return r
}

func TestWriteReadRoundtrip(t *testing.T) {
	fs := vfs.NewMem()
	var keys, values [][]byte
	for i := range 10 {
		keys = append(keys, fmt.Appendf(nil, "key%02d", i))
		values = append(values, fmt.Appendf(nil, "value-%02d-%s", i, "0123456789"))
	}
	offsets, sizes, fileSize := writeTestFile(t, fs, "000001.blob", compression.None, keys, values)

	// With no compression the file layout is exactly arithmetic.
	var want uint64 = HeaderSize
	for i := range keys {
		require.Equal(t, want+RecordHeaderSize+uint64(len(keys[i])), offsets[i])
		require.Equal(t, uint64(len(values[i])), sizes[i])
		want += RecordHeaderSize + uint64(len(keys[i])) + uint64(len(values[i]))
	}
	require.Equal(t, want+FooterSize, fileSize)

	r := openTestFile(t, fs, "000001.blob", fileSize)
	defer r.Close()
	require.Equal(t, compression.None, r.CompressionType())
	require.Equal(t, uint64(len(keys)), r.BlobCount())
	require.Equal(t, fileSize, r.FileSize())

	for i := range keys {
		raw, blobCRC, recordSize, err := r.ReadRecord(offsets[i], keys[i], sizes[i])
		require.NoError(t, err)
		require.Equal(t, values[i], raw)
		require.Equal(t, crc.New(keys[i]).Update(values[i]).Value(), blobCRC)
		require.Equal(t, RecordHeaderSize+uint64(len(keys[i]))+sizes[i], recordSize)
	}
}

func TestCompressedRecordsReadRaw(t *testing.T) {
	for _, algo := range []compression.Algorithm{
		compression.Snappy, compression.Zstd, compression.MinLZ,
	} {
		t.Run(algo.String(), func(t *testing.T) {
			fs := vfs.NewMem()
			key := []byte("key")
			value := make([]byte, 4096)
			for i := range value {
				value[i] = byte(i % 16)
			}
			offsets, sizes, fileSize := writeTestFile(
				t, fs, "000001.blob", algo, [][]byte{key}, [][]byte{value})

			// Repetitive data must compress.
			require.Less(t, sizes[0], uint64(len(value)))

			r := openTestFile(t, fs, "000001.blob", fileSize)
			defer r.Close()
			require.Equal(t, algo, r.CompressionType())

			// The reader hands back the stored bytes without decompressing.
			raw, _, _, err := r.ReadRecord(offsets[0], key, sizes[0])
			require.NoError(t, err)
			require.Equal(t, sizes[0], uint64(len(raw)))

			dec := compression.GetDecompressor(algo)
			defer dec.Close()
			n, err := dec.DecompressedLen(raw)
			require.NoError(t, err)
			require.Equal(t, len(value), n)
			out := make([]byte, n)
			require.NoError(t, dec.DecompressInto(out, raw))
			require.Equal(t, value, out)
		})
	}
}

func TestReadRecordCorruption(t *testing.T) {
	fs := vfs.NewMem()
	keys := [][]byte{[]byte("alpha"), []byte("beta")}
	values := [][]byte{[]byte("one"), []byte("two")}
	offsets, sizes, fileSize := writeTestFile(t, fs, "000001.blob", compression.None, keys, values)

	r := openTestFile(t, fs, "000001.blob", fileSize)
	defer r.Close()

	// Offset before the first possible record.
	_, _, _, err := r.ReadRecord(HeaderSize, keys[0], sizes[0])
	require.True(t, base.IsCorruption(err))

	// Record extends past the footer.
	_, _, _, err = r.ReadRecord(offsets[1], keys[1], fileSize)
	require.True(t, base.IsCorruption(err))

	// Wrong key for the record at the offset.
	_, _, _, err = r.ReadRecord(offsets[0], []byte("gamma"), sizes[0])
	require.True(t, base.IsCorruption(err))

	// Wrong value size for the record at the offset.
	_, _, _, err = r.ReadRecord(offsets[0], keys[0], sizes[0]+1)
	require.True(t, base.IsCorruption(err))

	// Hostile value sizes near the top of the uint64 range, chosen so the
	// record size wraps around; the bounds check must not overflow into an
	// attempted allocation.
	for _, size := range []uint64{
		math.MaxUint64,
		math.MaxUint64 - offsets[0] + 1,
		math.MaxUint64 - RecordHeaderSize - uint64(len(keys[0])) + 1,
	} {
		_, _, _, err = r.ReadRecord(offsets[0], keys[0], size)
		require.True(t, base.IsCorruption(err))
	}
}

func TestNewReaderRejectsBadFiles(t *testing.T) {
	fs := vfs.NewMem()

	// Too small to hold a header and footer.
	f, err := fs.Create("tiny.blob")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 8))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = fs.Open("tiny.blob")
	require.NoError(t, err)
	_, err = NewReader(f, base.DiskFileNum(1), 8, ReaderOptions{})
	require.True(t, base.IsCorruption(err))
	require.NoError(t, f.Close())

	// A header with a bogus magic number.
	f, err = fs.Create("badmagic.blob")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, HeaderSize+FooterSize))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	f, err = fs.Open("badmagic.blob")
	require.NoError(t, err)
	_, err = NewReader(f, base.DiskFileNum(1), HeaderSize+FooterSize, ReaderOptions{})
	require.True(t, base.IsCorruption(err))
	require.NoError(t, f.Close())
}

func TestReadRecordsBatch(t *testing.T) {
	fs := vfs.NewMem()
	var keys, values [][]byte
	for i := range 6 {
		keys = append(keys, fmt.Appendf(nil, "key%d", i))
		values = append(values, fmt.Appendf(nil, "value%d", i))
	}
	offsets, sizes, fileSize := writeTestFile(t, fs, "000001.blob", compression.None, keys, values)

	r := openTestFile(t, fs, "000001.blob", fileSize)
	defer r.Close()

	// Present the batch in reverse order; results must line up with the
	// caller's indexes regardless of fetch order.
	n := len(keys)
	rkeys := make([][]byte, n)
	roffsets := make([]uint64, n)
	rsizes := make([]uint64, n)
	for i := range n {
		rkeys[i] = keys[n-1-i]
		roffsets[i] = offsets[n-1-i]
		rsizes[i] = sizes[n-1-i]
	}
	// Poison one item with a mismatched key.
	rkeys[2] = []byte("nope")

	results := r.ReadRecords(rkeys, roffsets, rsizes)
	require.Len(t, results, n)
	for i, res := range results {
		if i == 2 {
			require.True(t, base.IsCorruption(res.Err))
			require.Nil(t, res.Raw)
			continue
		}
		require.NoError(t, res.Err)
		require.Equal(t, values[n-1-i], res.Raw)
		require.Equal(t, RecordHeaderSize+uint64(len(rkeys[i]))+rsizes[i], res.RecordSize)
	}
}

func TestExpirationRangeRoundtrip(t *testing.T) {
	fs := vfs.NewMem()
	f, err := fs.Create("ttl.blob")
	require.NoError(t, err)
	opts := WriterOptions{
		HasTTL:          true,
		ExpirationRange: ExpirationRange{Start: 100, End: 200},
	}
	w, err := NewWriter(f, base.DiskFileNum(7), opts)
	require.NoError(t, err)
	offset, size, err := w.AddRecordWithExpiration([]byte("k"), []byte("v"), 150)
	require.NoError(t, err)
	fileSize, err := w.Close()
	require.NoError(t, err)

	f, err = fs.Open("ttl.blob")
	require.NoError(t, err)
	r, err := NewReader(f, base.DiskFileNum(7), fileSize, ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, opts.ExpirationRange, r.ExpirationRange())
	require.Equal(t, uint64(1), r.BlobCount())
	raw, _, _, err := r.ReadRecord(offset, []byte("k"), size)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), raw)

	// The per-record expiration is stored in the record header.
	f, err = fs.Open("ttl.blob")
	require.NoError(t, err)
	headerBuf := make([]byte, RecordHeaderSize)
	_, err = f.ReadAt(headerBuf, HeaderSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	var rh recordHeader
	require.NoError(t, rh.decode(headerBuf))
	require.Equal(t, uint64(150), rh.expiration)
}
