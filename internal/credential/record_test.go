// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name       string
		data       string
		want       Record
		wantIs     []error
		wantNotIs  []error
		wantErrMsg string
	}{
		{
			name: "valid",
			data: "1700000000:1700003600:abcDEF0123._~+/=-",
			want: Record{CreatedAt: time.Unix(1_700_000_000, 0), ExpiresAt: time.Unix(1_700_003_600, 0), Secret: "abcDEF0123._~+/=-"},
		},
		{
			name: "trailing newline is tolerated",
			data: "1699999000:1700003600:abcdefghijkl\n",
			want: Record{CreatedAt: time.Unix(1_699_999_000, 0), ExpiresAt: time.Unix(1_700_003_600, 0), Secret: "abcdefghijkl"},
		},
		{
			name:       "too few fields",
			data:       "1700000000:abcdefghijkl",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: expected 3 fields, found 2",
		},
		{
			name:       "too many fields",
			data:       "1:2:abcdefghijkl:extra",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: expected 3 fields, found 4",
		},
		{
			name:       "empty",
			data:       "",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: expected 3 fields, found 1",
		},
		{
			name:       "non integer creation",
			data:       "soon:1700003600:abcdefghijkl",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: creation time is not an integer",
		},
		{
			name:       "non integer expiry",
			data:       "1700000000:later:abcdefghijkl",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: expiry time is not an integer",
		},
		{
			name:       "created after expiry is distinct from expired",
			data:       "1000:500:abc",
			wantIs:     []error{ErrCorrupt, ErrCreatedAfterExpiry},
			wantNotIs:  []error{ErrExpired},
			wantErrMsg: "credential is corrupt: created after expiry: created 1000, expires 500",
		},
		{
			name:       "short secret",
			data:       "1700000000:1700003600:abc",
			wantIs:     []error{ErrCorrupt},
			wantNotIs:  []error{ErrCreatedAfterExpiry},
			wantErrMsg: "credential is corrupt: secret is shorter than 10 characters",
		},
		{
			name:       "unsafe characters in secret",
			data:       "1700000000:1700003600:abcdefghij klm",
			wantIs:     []error{ErrCorrupt},
			wantErrMsg: "credential is corrupt: secret contains unexpected characters",
		},
		{
			name:       "expired",
			data:       "1600000000:1600003600:abcdefghijkl",
			wantIs:     []error{ErrExpired},
			wantNotIs:  []error{ErrCorrupt},
			wantErrMsg: "credential has expired: expired at 2020-09-13T13:26:40Z",
		},
		{
			name:       "expiring exactly now is expired",
			data:       "1600000000:1700000000:abcdefghijkl",
			wantIs:     []error{ErrExpired},
			wantErrMsg: "credential has expired: expired at 2023-11-14T22:13:20Z",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse([]byte(tt.data), now)
			if tt.wantErrMsg != "" {
				require.EqualError(t, err, tt.wantErrMsg)
				for _, target := range tt.wantIs {
					require.ErrorIs(t, err, target)
				}
				for _, target := range tt.wantNotIs {
					require.NotErrorIs(t, err, target)
				}
				require.Equal(t, Record{}, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	r := Record{CreatedAt: time.Unix(100, 0), ExpiresAt: time.Unix(3700, 0), Secret: "0123456789abcdef"}
	require.Equal(t, "100:3700:0123456789abcdef", string(r.Marshal()))

	parsed, err := Parse(r.Marshal(), time.Unix(200, 0))
	require.NoError(t, err)
	require.Equal(t, r, parsed)
}

func TestRecord_ExpiresWithin(t *testing.T) {
	t.Parallel()

	r := Record{ExpiresAt: time.Unix(1000, 0)}
	require.False(t, r.ExpiresWithin(time.Unix(699, 0), 300*time.Second))
	require.True(t, r.ExpiresWithin(time.Unix(700, 0), 300*time.Second))
	require.True(t, r.ExpiresWithin(time.Unix(2000, 0), 0))
}

func TestRecord_NeverPrintsSecret(t *testing.T) {
	t.Parallel()

	r := Record{CreatedAt: time.Unix(0, 0), ExpiresAt: time.Unix(60, 0), Secret: "top-secret-token"}
	for _, s := range []string{r.String(), fmt.Sprintf("%v", r), fmt.Sprintf("%+v", r), fmt.Sprintf("%#v", r)} {
		require.NotContains(t, s, "top-secret-token")
		require.Contains(t, s, "<redacted>")
	}
}
