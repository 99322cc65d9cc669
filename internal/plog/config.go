// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"context"
	"io"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/util/wait"

	"go.voipnowmcp.dev/internal/constable"
)

type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"

	errInvalidLogFormat    = constable.Error("invalid log format, valid choices are json and text")
	errInvalidLogTransport = constable.Error("invalid log transport, valid choices are console and syslog")
)

type LogTransport string

const (
	TransportConsole LogTransport = "console"
	TransportSyslog  LogTransport = "syslog"
)

type LogSpec struct {
	Level     LogLevel
	Format    LogFormat
	Transport LogTransport
}

// ValidateAndSetLogLevelAndFormatGlobally replaces the global logger.  It is meant to be called once
// after flag parsing; later level changes should go through SetGlobalLevel.
func ValidateAndSetLogLevelAndFormatGlobally(ctx context.Context, spec LogSpec) error {
	if err := SetGlobalLevel(spec.Level); err != nil {
		return err
	}

	switch spec.Format {
	case "", FormatJSON, FormatText:
	default:
		return errInvalidLogFormat
	}

	var w io.Writer = os.Stderr
	switch spec.Transport {
	case "", TransportConsole:
	case TransportSyslog:
		sw, err := newSyslogWriter()
		if err != nil {
			defer WarningErr("syslog is unavailable, logging to stderr instead", err)
			break
		}
		w = sw
	default:
		return errInvalidLogTransport
	}

	// allow tests to capture the output
	if override, ok := ctx.Value(outputOverrideKey).(io.Writer); ok {
		w = override
	}

	log, flush := newLogr(globalLevel, spec.Format, w)
	setGlobalLoggers(log, flush)

	go wait.UntilWithContext(ctx, func(_ context.Context) { flush() }, time.Minute)
	go func() {
		<-ctx.Done()
		flush() // best effort flush before shutdown as this is not coordinated with a wait group
	}()

	return nil
}

// SetGlobalLevel changes the verbosity of every Logger without rebuilding the global logger.
func SetGlobalLevel(level LogLevel) error {
	klogLevel := klogLevelForPlogLevel(level)
	if klogLevel < 0 {
		return errInvalidLogLevel
	}

	//nolint:gosec // the range for klogLevel is [0,108]
	globalLevel.SetLevel(zapcore.Level(-klogLevel)) // logr verbosity is inverted when zap handles it
	return nil
}

// GlobalLevel returns the currently configured verbosity.
func GlobalLevel() LogLevel {
	return zapLevelToPlogLevel(globalLevel.Level())
}
