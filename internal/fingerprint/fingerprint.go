// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint detects changes to the identity a credential was issued for.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.voipnowmcp.dev/internal/config"
	"go.voipnowmcp.dev/internal/securefile"
)

// Detector compares the fingerprint of an identity to the one stored in FingerprintFile and
// invalidates CredentialFile whenever they differ.  It never talks to the network.
type Detector struct {
	FingerprintFile string
	CredentialFile  string
}

func NewDetector(c *config.Config) *Detector {
	return &Detector{FingerprintFile: c.FingerprintFile(), CredentialFile: c.CredentialFile}
}

// HasIdentityChanged reports whether identity differs from the stored fingerprint.  A missing
// fingerprint counts as a change.  On change the credential file is deleted and then the new
// fingerprint is stored, so calling it again with the same identity returns false and
// touches nothing.
func (d *Detector) HasIdentityChanged(identity config.Identity) (bool, error) {
	current := Of(identity)

	stored, err := os.ReadFile(d.FingerprintFile)
	switch {
	case err == nil:
		if string(bytes.TrimSpace(stored)) == current {
			return false, nil
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return false, fmt.Errorf("could not read identity fingerprint: %w", err)
	}

	// the credential goes first: if writing the fingerprint fails, the next call deletes again
	if err := os.Remove(d.CredentialFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, fmt.Errorf("could not invalidate credential: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(d.FingerprintFile), 0o700); err != nil {
		return true, fmt.Errorf("could not create fingerprint directory: %w", err)
	}
	if err := securefile.WriteAtomic(d.FingerprintFile, []byte(current)); err != nil {
		return true, fmt.Errorf("could not store identity fingerprint: %w", err)
	}

	return true, nil
}

// Of returns the hex encoded SHA-256 of the JSON form of identity.
func Of(identity config.Identity) string {
	hash := sha256.New()
	if err := json.NewEncoder(hash).Encode(identity); err != nil {
		panic(err) // a struct of strings always encodes
	}
	return hex.EncodeToString(hash.Sum(nil))
}
