// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"io"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rfc3339Micro is human-readable and machine parsable with microsecond precision.
const rfc3339Micro = "2006-01-02T15:04:05.000000Z07:00"

func newLogr(level zapcore.LevelEnabler, format LogFormat, w io.Writer, opts ...zap.Option) (logr.Logger, func()) {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "timestamp",
		NameKey:          "logger",
		CallerKey:        "caller",
		FunctionKey:      zapcore.OmitKey, // included in caller
		StacktraceKey:    "stacktrace",
		SkipLineEnding:   false,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(rfc3339Micro),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     callerEncoder,
		ConsoleSeparator: "  ",
	}

	var encoder zapcore.Encoder
	switch format {
	case FormatText:
		encoderConfig.LevelKey = zapcore.OmitKey
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoderConfig.EncodeTime = humanTimeEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sink := zapcore.Lock(zapcore.AddSync(w)) // make sure the writer is safe for concurrent use

	// when using the trace or all log levels, an error log will contain the full stack.
	// this check is performed dynamically on the global log level.
	opts = append([]zap.Option{zap.AddCaller(), zap.AddStacktrace(stackEnabler{level: level})}, opts...)

	log := zap.New(zapcore.NewCore(encoder, sink, level), opts...)

	return zapr.NewLogger(log), func() { _ = log.Sync() }
}

type stackEnabler struct {
	level zapcore.LevelEnabler
}

func (s stackEnabler) Enabled(l zapcore.Level) bool {
	return l >= zapcore.ErrorLevel && s.level.Enabled(zapcore.Level(-klogLevelTrace))
}

func levelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	plogLevel := zapLevelToPlogLevel(l)

	if len(plogLevel) == 0 {
		return // this tells zap that it should handle encoding the level itself because we do not know the mapping
	}

	enc.AppendString(string(plogLevel))
}

func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(caller.String() + funcEncoder(caller))
}

func funcEncoder(caller zapcore.EntryCaller) string {
	funcName := caller.Function
	if idx := strings.LastIndexByte(funcName, '/'); idx != -1 {
		funcName = funcName[idx+1:] // keep everything after the last /
	}
	return "$" + funcName
}

func humanTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format(time.RFC1123))
}
