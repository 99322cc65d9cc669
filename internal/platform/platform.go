// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package platform calls the VoipNow REST API with the current platform credential.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.voipnowmcp.dev/internal/constable"
	"go.voipnowmcp.dev/internal/lifecycle"
	"go.voipnowmcp.dev/internal/net/phttp"
	"go.voipnowmcp.dev/internal/plog"
)

const (
	ErrNotReady        = constable.Error("no platform credential is loaded yet")
	ErrInvalidResponse = constable.Error("platform returned a response that is not JSON")

	maxResponseBytes = 10 << 20
	maxErrorBodyLen  = 512
)

// StateSource is satisfied by *lifecycle.Manager.
type StateSource interface {
	Current() *lifecycle.State
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, strings.TrimSpace(body))
}

type Client struct {
	states     StateSource
	httpClient func(allowUnverifiedTLS bool) *http.Client
	logger     plog.Logger
}

type Option func(*Client)

func WithHTTPClient(f func(allowUnverifiedTLS bool) *http.Client) Option {
	return func(c *Client) { c.httpClient = f }
}

func WithLogger(l plog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(states StateSource, opts ...Option) *Client {
	c := &Client{
		states:     states,
		httpClient: phttp.ForConfig,
		logger:     plog.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends a request to path on the configured host and returns the JSON response body.
// The snapshot is read once per call so that a concurrent reload never mixes host and credential.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	state := c.states.Current()
	if state == nil {
		return nil, ErrNotReady
	}

	u := state.Config.VoipnowHost + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build platform request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+state.Credential.Secret)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("calling platform", "method", method, "path", path)

	resp, err := c.httpClient(bool(state.Config.AllowUnverifiedTLS)).Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read platform response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, ErrInvalidResponse
	}
	return body, nil
}
