// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package phttp builds the http.Clients used to talk to the platform.
package phttp

import (
	"crypto/x509"
	"net/http"
	"sync"
	"time"

	"go.voipnowmcp.dev/internal/crypto/ptls"
	"go.voipnowmcp.dev/internal/httputil/roundtripper"
)

// UserAgent is sent with every outbound request.
const UserAgent = "VoipNow MCP Version/2025.2"

// DefaultTimeout bounds every outbound request so that none can hang indefinitely.
const DefaultTimeout = 30 * time.Second

func Default(rootCAs *x509.CertPool) *http.Client {
	return buildClient(ptls.Default, rootCAs)
}

// Unverified skips certificate verification.  Only use it when the operator asked for it.
func Unverified(rootCAs *x509.CertPool) *http.Client {
	return buildClient(ptls.Unverified, rootCAs)
}

//nolint:gochecknoglobals // one pooled client per TLS mode for the life of the process.
var (
	sharedDefault    = sync.OnceValue(func() *http.Client { return Default(nil) })
	sharedUnverified = sync.OnceValue(func() *http.Client { return Unverified(nil) })
)

// ForConfig returns the shared Unverified client when allowUnverifiedTLS is set and the shared
// Default client otherwise.  Callers get the same client on every call so idle connections are reused.
func ForConfig(allowUnverifiedTLS bool) *http.Client {
	if allowUnverifiedTLS {
		return sharedUnverified()
	}
	return sharedDefault()
}

func buildClient(tlsConfigFunc ptls.ConfigFunc, rootCAs *x509.CertPool) *http.Client {
	baseRT := defaultTransport()
	baseRT.TLSClientConfig = tlsConfigFunc(rootCAs)

	return &http.Client{
		Transport: roundtripper.WithUserAgent(UserAgent, baseRT),
		Timeout:   DefaultTimeout,
	}
}

func defaultTransport() *http.Transport {
	baseRT := http.DefaultTransport.(*http.Transport).Clone()
	baseRT.MaxIdleConnsPerHost = 25
	baseRT.ForceAttemptHTTP2 = true
	return baseRT
}
