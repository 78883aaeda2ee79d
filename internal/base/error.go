// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// ErrCorruption is a marker error for on-disk corruption: a checksum mismatch,
// a malformed record, or a failed decompression. Callers test for it with
// IsCorruption rather than comparing directly.
var ErrCorruption = errors.New("blobstore: corruption")

// ErrBlobNotInCache is returned by cache-only reads when the requested value
// is not resident in the value cache. It is a policy outcome, not a failure:
// the caller explicitly opted out of storage I/O.
var ErrBlobNotInCache = errors.New("blobstore: blob not in cache")

// CorruptionErrorf formats an error and marks it as a corruption error.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// MarkCorruptionError marks the given error as a corruption error.
func MarkCorruptionError(err error) error {
	if errors.Is(err, ErrCorruption) {
		return err
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruption reports whether the error indicates on-disk corruption.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorruption)
}

// IsBlobNotInCache reports whether the error is a cache-only miss.
func IsBlobNotInCache(err error) bool {
	return errors.Is(err, ErrBlobNotInCache)
}
