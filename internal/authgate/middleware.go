// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Middleware rejects requests that do not pass Authenticate.  Clients are told apart by remote address.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := g.Authenticate(r.Header.Get("Authorization"), clientID(r))
		if err == nil {
			next.ServeHTTP(w, r)
			return
		}

		status, body := http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()}
		switch {
		case errors.Is(err, ErrRateLimited):
			status, body = http.StatusTooManyRequests, errorBody{Error: "too_many_requests", Message: err.Error()}
			w.Header().Set("Retry-After", strconv.Itoa(int(g.window.Seconds())))
		case errors.Is(err, ErrSecretUnavailable):
			status, body = http.StatusServiceUnavailable, errorBody{Error: "service_unavailable", Message: err.Error()}
		default:
			w.Header().Set("WWW-Authenticate", `Bearer realm="voipnow-mcp"`)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
