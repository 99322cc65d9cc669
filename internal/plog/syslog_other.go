// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build windows || plan9

package plog

import (
	"io"

	"go.voipnowmcp.dev/internal/constable"
)

const errSyslogUnsupported = constable.Error("syslog is not supported on this platform")

func newSyslogWriter() (io.Writer, error) {
	return nil, errSyslogUnsupported
}
