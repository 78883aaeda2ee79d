// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"time"

	"github.com/cockroachdb/crlib/crtime"
)

// Stopwatch measures elapsed time on the monotonic clock. It is used to
// attribute checksum, decompression and read time to the statistics sink.
type Stopwatch struct {
	start crtime.Mono
}

// MakeStopwatch returns a running Stopwatch.
func MakeStopwatch() Stopwatch {
	return Stopwatch{start: crtime.NowMono()}
}

// Stop returns the elapsed duration.
func (w Stopwatch) Stop() time.Duration {
	return w.start.Elapsed()
}
