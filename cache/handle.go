// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package cache

// Handle pins a cached value. The bytes returned by Bytes remain valid until
// Release is called, even if the entry is concurrently evicted or replaced.
type Handle struct {
	e *entry
}

// Valid reports whether the Handle pins a value.
func (h Handle) Valid() bool { return h.e != nil }

// Bytes returns the pinned value bytes. The caller must not modify them and
// must not use them after Release.
func (h Handle) Bytes() []byte {
	if h.e == nil {
		return nil
	}
	return h.e.val
}

// Release drops the pin. It is a no-op on an invalid Handle.
func (h Handle) Release() {
	if h.e != nil {
		unrefEntry(h.e)
	}
}
