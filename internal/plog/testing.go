// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"bytes"
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"
)

// contextKey type is unexported to prevent collisions.
type contextKey int

const outputOverrideKey contextKey = iota

// AddOutputOverrideToContext makes ValidateAndSetLogLevelAndFormatGlobally write to w.
// This is done so that production code can read this value for test overrides.
func AddOutputOverrideToContext(ctx context.Context, t *testing.T, w io.Writer) context.Context {
	t.Helper() // discourage use outside of tests

	return context.WithValue(ctx, outputOverrideKey, w)
}

// TestLogger returns a Logger that logs everything as JSON into the returned buffer with a static timestamp.
func TestLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()

	var log bytes.Buffer

	return New().withLogrMod(func(l logr.Logger) logr.Logger {
			return l.WithSink(testZapr(t, &log).GetSink())
		}),
		&log
}

func testZapr(t *testing.T, w io.Writer) logr.Logger {
	t.Helper()

	now, err := time.Parse(time.RFC3339Nano, "2099-08-08T13:57:36.123456789Z")
	require.NoError(t, err)

	zl, _ := newLogr(
		zap.NewAtomicLevelAt(math.MinInt8), // log everything during tests
		FormatJSON,
		w,
		zap.WithClock(ZapClock(clocktesting.NewFakeClock(now))), // have the clock be static during tests
		zap.WithCaller(false),                   // keep assertions independent of line numbers
		zap.AddStacktrace(zapcore.FatalLevel+1), // do not log stacktraces
	)

	return zl
}

var _ zapcore.Clock = &clockAdapter{}

type clockAdapter struct {
	clock clock.Clock
}

func (c *clockAdapter) Now() time.Time {
	return c.clock.Now()
}

func (c *clockAdapter) NewTicker(duration time.Duration) *time.Ticker {
	return &time.Ticker{C: c.clock.Tick(duration)}
}

func ZapClock(c clock.Clock) zapcore.Clock {
	return &clockAdapter{clock: c}
}
