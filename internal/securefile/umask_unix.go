// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package securefile

import "golang.org/x/sys/unix"

// tightenUmask sets the process umask to 077 and returns a func that restores the previous one.
// The umask is process wide, so callers must keep the window short.
func tightenUmask() func() {
	previous := unix.Umask(0o077)
	return func() { unix.Umask(previous) }
}
