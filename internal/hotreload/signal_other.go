// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build windows || plan9

package hotreload

import "os"

// There is no reload signal on this platform; the nil channel never fires.
func reloadSignals() (<-chan os.Signal, func()) {
	return nil, func() {}
}
