// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build invariants || race

package invariants

import "runtime"

// Enabled is true if we were built with the "invariants" or "race" build tags.
const Enabled = true

// SetFinalizer is a wrapper around runtime.SetFinalizer used for leak
// detection of pinned handles in invariant builds.
func SetFinalizer(obj, finalizer interface{}) {
	runtime.SetFinalizer(obj, finalizer)
}
