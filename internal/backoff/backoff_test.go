// Copyright 2023-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInfinite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backoff *Infinite
		want    []time.Duration
	}{
		{
			name:    "zero value results in 0ns steps",
			backoff: &Infinite{},
			want:    []time.Duration{0, 0, 0, 0},
		},
		{
			name:    "credential retry doubles until the poll interval",
			backoff: &Infinite{Initial: time.Minute, Factor: 2, Max: 5 * time.Minute},
			want:    []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute, 5 * time.Minute},
		},
		{
			name:    "factor less than 1.0 is replaced with 1.0",
			backoff: &Infinite{Initial: 20 * time.Second, Factor: 0.5},
			want:    []time.Duration{20 * time.Second, 20 * time.Second, 20 * time.Second},
		},
		{
			name:    "initial above max is capped",
			backoff: &Infinite{Initial: time.Hour, Factor: 2, Max: time.Minute},
			want:    []time.Duration{time.Minute, time.Minute},
		},
		{
			name:    "huge growth does not overflow past max",
			backoff: &Infinite{Initial: time.Duration(1 << 61), Factor: 16, Max: time.Duration(1 << 62)},
			want:    []time.Duration{time.Duration(1 << 61), time.Duration(1 << 62), time.Duration(1 << 62)},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := make([]time.Duration, 0, len(tt.want))
			for range tt.want {
				got = append(got, tt.backoff.Step())
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInfinite_Reset(t *testing.T) {
	t.Parallel()

	b := &Infinite{Initial: 10 * time.Second, Factor: 3, Max: time.Minute}
	require.Equal(t, 10*time.Second, b.Step())
	require.Equal(t, 30*time.Second, b.Step())

	b.Reset()
	require.Equal(t, 10*time.Second, b.Step())
	require.Equal(t, 30*time.Second, b.Step())
	require.Equal(t, time.Minute, b.Step())
}
