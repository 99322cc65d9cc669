// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package mcp serves the Model Context Protocol over line-delimited stdio and over HTTP.
// Only the tools capability is implemented.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/tools"
)

const (
	LatestProtocolVersion = "2025-03-26"

	ServerName = "voipnow-mcp"
)

var supportedProtocolVersions = sets.New("2024-11-05", LatestProtocolVersion) //nolint:gochecknoglobals

type Server struct {
	registry *tools.Registry
	version  string
	logger   plog.Logger
}

type Option func(*Server)

func WithLogger(l plog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func NewServer(registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		version:  "dev",
		logger:   plog.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage processes one JSON-RPC message and returns the encoded response, or nil when the
// message was a notification.
func (s *Server) HandleMessage(ctx context.Context, msg []byte) []byte {
	var req request
	if err := json.Unmarshal(msg, &req); err != nil {
		return encode(response{JSONRPC: jsonRPCVersion, ID: nullID, Error: newError(codeParseError, "parse error")})
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		id := req.ID
		if len(id) == 0 {
			id = nullID
		}
		return encode(response{JSONRPC: jsonRPCVersion, ID: id, Error: newError(codeInvalidRequest, "invalid request")})
	}

	result, err := s.dispatch(ctx, &req)
	if req.isNotification() {
		if err != nil {
			s.logger.DebugErr("ignoring failed notification", err, "method", req.Method)
		}
		return nil
	}

	resp := response{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result}
	if err != nil {
		var rpcErr *rpcError
		if !errors.As(err, &rpcErr) {
			s.logger.Error("unexpected error while handling request", err, "method", req.Method)
			rpcErr = newError(codeInternalError, "internal error")
		}
		resp.Result, resp.Error = nil, rpcErr
	}
	return encode(resp)
}

func (s *Server) dispatch(ctx context.Context, req *request) (any, error) {
	switch req.Method {
	case "initialize":
		return s.initialize(req.Params)
	case "notifications/initialized", "notifications/cancelled":
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return map[string]any{"tools": s.registry.List()}, nil
	case "tools/call":
		return s.callTool(ctx, req.Params)
	default:
		return nil, newError(codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

func (s *Server) initialize(raw json.RawMessage) (any, error) {
	var params initializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, newError(codeInvalidParams, "invalid params")
		}
	}

	version := LatestProtocolVersion
	if supportedProtocolVersions.Has(params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	s.logger.Info("client initialized session", "protocolVersion", version)
	return map[string]any{
		"protocolVersion": version,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": s.version,
		},
	}, nil
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, error) {
	var params callToolParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return nil, newError(codeInvalidParams, "invalid params: a tool name is required")
	}

	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if errors.Is(err, tools.ErrUnknownTool) {
		return nil, newError(codeInvalidParams, err.Error())
	}
	if err != nil {
		return nil, err
	}

	if result.IsError {
		s.logger.Info("tool call failed", "tool", params.Name)
	} else {
		s.logger.Debug("tool call succeeded", "tool", params.Name)
	}
	return result, nil
}

func encode(resp response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// only reachable when a tool produces an unencodable result
		data, _ = json.Marshal(response{JSONRPC: jsonRPCVersion, ID: resp.ID, Error: newError(codeInternalError, "internal error")})
	}
	return data
}
