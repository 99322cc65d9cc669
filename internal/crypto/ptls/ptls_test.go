// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ptls

import (
	"crypto/tls"
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	pool := x509.NewCertPool()
	c := Default(pool)
	require.Equal(t, uint16(tls.VersionTLS12), c.MinVersion)
	require.Same(t, pool, c.RootCAs)
	require.False(t, c.InsecureSkipVerify)
	require.Len(t, c.CipherSuites, 6)
	for _, suite := range tls.InsecureCipherSuites() {
		require.NotContains(t, c.CipherSuites, suite.ID)
	}
}

func TestUnverified(t *testing.T) {
	t.Parallel()

	c := Unverified(nil)
	require.True(t, c.InsecureSkipVerify)
	require.Equal(t, uint16(tls.VersionTLS12), c.MinVersion, "only verification is relaxed")
	require.False(t, Default(nil).InsecureSkipVerify, "Default must not be mutated")
}
