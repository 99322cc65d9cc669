// Copyright 2023-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package backoff computes growing retry delays for operations that are retried forever.
package backoff

import (
	"math"
	"time"
)

// Infinite never gives up.  The zero value always returns 0.
type Infinite struct {
	// Initial is the first duration returned after construction or Reset.
	Initial time.Duration

	// Factor is used to scale up the duration until it reaches Max.
	// Values below 1.0 are treated as 1.0.
	Factor float64

	// A limit on step size. Once reached, this value will be used as the interval.
	Max time.Duration

	current    time.Duration
	hasStepped bool
}

// Step returns the next duration in the backoff sequence.
// It modifies the receiver and is not thread-safe.
func (b *Infinite) Step() time.Duration {
	if !b.hasStepped {
		b.hasStepped = true
		b.current = b.capped(b.Initial)
		return b.current
	}

	// Grow by the factor (which could be 1).
	b.current = b.capped(time.Duration(float64(b.current) * math.Max(1, b.Factor)))
	return b.current
}

// Reset makes the next Step return Initial again, e.g. after the retried operation succeeds.
func (b *Infinite) Reset() {
	b.hasStepped = false
	b.current = 0
}

func (b *Infinite) capped(d time.Duration) time.Duration {
	// Stop growing the intervals once we exceed the max duration.
	// A negative product means the float conversion overflowed.
	if b.Max > 0 && (d > b.Max || d < 0) {
		return b.Max
	}
	return d
}
