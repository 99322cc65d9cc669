// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package roundtripper adapts functions into http.RoundTrippers.
package roundtripper

import "net/http"

var _ http.RoundTripper = Func(nil)

type Func func(*http.Request) (*http.Response, error)

func (f Func) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// WithUserAgent sets the User-Agent header on every request that does not already carry one.
func WithUserAgent(userAgent string, rt http.RoundTripper) http.RoundTripper {
	return Func(func(req *http.Request) (*http.Response, error) {
		if len(req.Header.Get("User-Agent")) != 0 {
			return rt.RoundTrip(req)
		}
		req = req.Clone(req.Context()) // round trippers must not mutate the caller's request
		req.Header.Set("User-Agent", userAgent)
		return rt.RoundTrip(req)
	})
}
