// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package securefile

func tightenUmask() func() {
	return func() {}
}
