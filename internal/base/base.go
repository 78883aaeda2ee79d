// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base defines fundamental types and helpers shared by the blobstore
// packages.
package base

import "fmt"

// DiskFileNum identifies a blob file on disk. File numbers are allocated by
// the surrounding engine and are never reused within a database session, which
// is what makes (file number, offset) a stable identity for a stored value.
type DiskFileNum uint64

// String implements fmt.Stringer.
func (fn DiskFileNum) String() string { return fmt.Sprintf("%06d", uint64(fn)) }

// BlobFileName returns the name of a blob file within dirname.
func BlobFileName(dirname string, fn DiskFileNum) string {
	if dirname == "" {
		return fmt.Sprintf("%s.blob", fn)
	}
	return fmt.Sprintf("%s/%s.blob", dirname, fn)
}
