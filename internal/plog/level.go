// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"go.voipnowmcp.dev/internal/constable"
)

// LogLevel is an enum that controls verbosity of logs.
// Valid values in order of increasing verbosity are leaving it unset, info, debug, trace and all.
type LogLevel string

const (
	// LevelWarning (i.e. leaving the log level unset) maps to logr verbosity 0.
	LevelWarning LogLevel = ""
	// LevelInfo maps to logr verbosity 2.
	LevelInfo LogLevel = "info"
	// LevelDebug maps to logr verbosity 4.
	LevelDebug LogLevel = "debug"
	// LevelTrace maps to logr verbosity 6.
	LevelTrace LogLevel = "trace"
	// LevelAll maps to logr verbosity 108 (conceptually it is verbosity 8).
	LevelAll LogLevel = "all"

	errInvalidLogLevel = constable.Error("invalid log level, valid choices are warning, info, debug, trace and all")
)

const (
	klogLevelWarning = iota * 2
	klogLevelInfo
	klogLevelDebug
	klogLevelTrace
	klogLevelAll
)

// ParseLogLevel maps a user supplied level name onto a LogLevel.  Matching is case-insensitive.
// error and critical are accepted for compatibility with older configuration files and behave
// like warning since errors are always emitted.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warning", "warn", "error", "critical":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	case "all":
		return LevelAll, nil
	default:
		return LevelWarning, errInvalidLogLevel
	}
}

func klogLevelForPlogLevel(level LogLevel) int {
	switch level {
	case LevelWarning:
		return klogLevelWarning // unset means minimal logs (Error and Warning)
	case LevelInfo:
		return klogLevelInfo
	case LevelDebug:
		return klogLevelDebug
	case LevelTrace:
		return klogLevelTrace
	case LevelAll:
		return klogLevelAll + 100 // make all really mean all
	default:
		return -1
	}
}

func zapLevelToPlogLevel(l zapcore.Level) LogLevel {
	if l > 0 {
		// best effort mapping, the zap levels do not really translate to logr verbosity
		// but this is correct for "error" level which is all we need for logr
		return LogLevel(l.String())
	}

	// logr verbosity is inverted when zap handles it
	switch {
	case -l >= klogLevelAll:
		return LevelAll
	case -l >= klogLevelTrace:
		return LevelTrace
	case -l >= klogLevelDebug:
		return LevelDebug
	case -l >= klogLevelInfo:
		return LevelInfo
	default:
		return LevelWarning // warning is handled via a custom key since verbosity 0 is ambiguous
	}
}
