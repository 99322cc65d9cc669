// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tools holds the tools exposed to MCP clients.  The set of tools is a fixed table built at
// compile time.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.voipnowmcp.dev/internal/constable"
)

const ErrUnknownTool = constable.Error("unknown tool")

// Handler runs a tool.  A returned error means the arguments were unusable or the platform call
// failed; it is reported to the client as a tool result with isError set.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Handler     Handler        `json:"-"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the envelope returned to MCP clients for every call.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

func textResult(text string, isError bool) Result {
	return Result{Content: []Content{{Type: "text", Text: text}}, IsError: isError}
}

type Registry struct {
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if tool.Name == "" || tool.Handler == nil {
			return nil, fmt.Errorf("tool %q must have a name and a handler", tool.Name)
		}
		if _, ok := r.byName[tool.Name]; ok {
			return nil, fmt.Errorf("tool %q is registered twice", tool.Name)
		}
		r.byName[tool.Name] = tool
	}
	return r, nil
}

// List returns the tools sorted by name.
func (r *Registry) List() []Tool {
	list := make([]Tool, 0, len(r.byName))
	for _, tool := range r.byName {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Call runs the named tool.  Only an unknown name is returned as an error; tool failures become
// error results.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	tool, ok := r.byName[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	out, err := tool.Handler(ctx, args)
	if err != nil {
		return textResult(err.Error(), true), nil
	}
	return textResult(string(out), false), nil
}
