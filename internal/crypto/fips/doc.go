// Copyright 2023-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package fips restricts outbound platform TLS to FIPS-approved settings when
// the binary is built with boringcrypto and the fips_strict tag.
package fips
