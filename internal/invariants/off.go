// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !invariants && !race

package invariants

// Enabled is false in regular builds.
const Enabled = false

// SetFinalizer is a no-op unless the invariants or race build tags are set.
func SetFinalizer(obj, finalizer interface{}) {}
