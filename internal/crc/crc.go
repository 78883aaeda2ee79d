// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package crc implements the checksum algorithm used throughout the blob file
// format: CRC-32 with Castagnoli's polynomial, with a final masking step. The
// masking guards against the pathological case of storing a CRC of data that
// itself contains embedded CRCs.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// CRC is a small convenience wrapper for computing the checksum of a sequence
// of byte slices.
type CRC uint32

// New returns the CRC of b.
func New(b []byte) CRC {
	return CRC(0).Update(b)
}

// Update extends the CRC with b.
func (c CRC) Update(b []byte) CRC {
	return CRC(crc32.Update(uint32(c), table, b))
}

// Value returns the masked CRC.
func (c CRC) Value() uint32 {
	return uint32(c>>15|c<<17) + 0xa282ead8
}
