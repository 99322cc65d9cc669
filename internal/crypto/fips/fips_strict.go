// Copyright 2023-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build fips_strict

package fips

import (
	_ "crypto/tls/fipsonly" // every tls.Config built by ptls is clamped to FIPS-approved settings.

	"go.voipnowmcp.dev/internal/plog"
)

func init() {
	plog.Always("platform TLS is restricted to FIPS-approved settings")
}
