// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package requestlog logs one line per served HTTP request.
package requestlog

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"go.voipnowmcp.dev/internal/plog"
)

// Wrap logs the outcome of every request handled by wrapped.  Headers are never logged since they
// carry bearer tokens.
func Wrap(logger plog.Logger, wrapped http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(wrapped, w, r)

		keysAndValues := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"remoteAddr", r.RemoteAddr,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration.String(),
		}
		if m.Code >= http.StatusInternalServerError {
			logger.Warning("request failed", keysAndValues...)
			return
		}
		logger.Debug("request served", keysAndValues...)
	})
}
