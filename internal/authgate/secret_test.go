// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.voipnowmcp.dev/internal/testutil"
)

func TestFileSecretSource(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	testutil.WriteConfig(t, path, map[string]any{"appId": "a", "authTokenMCP": "first-secret"})
	source := NewFileSecretSource(path)

	secret, err := source.Secret()
	require.NoError(t, err)
	require.Equal(t, "first-secret", secret)

	// same size and modification time: the cached value is returned
	info, err := os.Stat(path)
	require.NoError(t, err)
	testutil.WriteConfig(t, path, map[string]any{"appId": "a", "authTokenMCP": "other-secret"})
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	secret, err = source.Secret()
	require.NoError(t, err)
	require.Equal(t, "first-secret", secret)

	// a newer modification time is picked up
	later := info.ModTime().Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	secret, err = source.Secret()
	require.NoError(t, err)
	require.Equal(t, "other-secret", secret)

	// a changed size is picked up even when the modification time is unchanged
	testutil.WriteConfig(t, path, map[string]any{"appId": "a", "authTokenMCP": "a-much-longer-secret"})
	require.NoError(t, os.Chtimes(path, later, later))
	secret, err = source.Secret()
	require.NoError(t, err)
	require.Equal(t, "a-much-longer-secret", secret)

	// a configuration without a secret yields an empty secret
	testutil.WriteConfig(t, path, map[string]any{"appId": "a"})
	secret, err = source.Secret()
	require.NoError(t, err)
	require.Empty(t, secret)
}

func TestFileSecretSource_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := NewFileSecretSource(filepath.Join(dir, "missing.json")).Secret()
	require.ErrorContains(t, err, "could not stat configuration file")

	garbage := filepath.Join(dir, "garbage.json")
	testutil.WriteFile(t, garbage, "{not json")
	_, err = NewFileSecretSource(garbage).Secret()
	require.ErrorContains(t, err, "could not decode configuration file")
}
