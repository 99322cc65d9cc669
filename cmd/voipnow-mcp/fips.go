// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	_ "go.voipnowmcp.dev/internal/crypto/fips" // no-op unless built with the fips_strict tag.
)
