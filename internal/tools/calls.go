// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Caller is satisfied by *platform.Client.
type Caller interface {
	Do(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error)
}

const defaultOwner = "@me"

// Calls returns the call management tools.
func Calls(caller Caller) []Tool {
	return []Tool{
		{
			Name:        "phone-calls-list",
			Description: "List the phone calls that are currently in progress for an extension.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"userId":    map[string]any{"type": "string", "description": `Owner of the extension, "@me" by default.`},
					"extension": map[string]any{"type": "string", "description": "Extension number, e.g. 0003*210."},
				},
				"required":             []string{"extension"},
				"additionalProperties": false,
			},
			Handler: phoneCallsList(caller),
		},
		{
			Name:        "cdr-list",
			Description: "List call detail records, optionally filtered by date range, source and disposition.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ownerId":     map[string]any{"type": "string", "description": `Owner of the records, "@me" by default.`},
					"startDate":   map[string]any{"type": "string", "description": "Start of the interval, ISO 8601."},
					"endDate":     map[string]any{"type": "string", "description": "End of the interval, ISO 8601."},
					"startIndex":  map[string]any{"type": []string{"string", "integer"}},
					"count":       map[string]any{"type": []string{"string", "integer"}},
					"fields":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"source":      map[string]any{"type": "string"},
					"disposition": map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
			Handler: cdrList(caller),
		},
	}
}

type phoneCallsListArgs struct {
	UserID    string `json:"userId"`
	Extension string `json:"extension"`
}

func phoneCallsList(caller Caller) Handler {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args phoneCallsListArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.Extension == "" {
			return nil, fmt.Errorf("invalid arguments: extension is required")
		}
		owner := orDefault(args.UserID, defaultOwner)

		return caller.Do(ctx, http.MethodGet,
			"/uapi/phoneCalls/"+url.PathEscape(owner)+"/"+url.PathEscape(args.Extension)+"/@self", nil)
	}
}

type cdrListArgs struct {
	OwnerID     string      `json:"ownerId"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	StartIndex  json.Number `json:"startIndex"`
	Count       json.Number `json:"count"`
	Fields      []string    `json:"fields"`
	Source      string      `json:"source"`
	Disposition string      `json:"disposition"`
}

func cdrList(caller Caller) Handler {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args cdrListArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		query := url.Values{}
		for key, value := range map[string]string{
			"startDate":   args.StartDate,
			"endDate":     args.EndDate,
			"source":      args.Source,
			"disposition": args.Disposition,
			"fields":      strings.Join(args.Fields, ","),
		} {
			if value != "" {
				query.Set(key, value)
			}
		}
		for key, value := range map[string]json.Number{"startIndex": args.StartIndex, "count": args.Count} {
			if value == "" {
				continue
			}
			n, err := strconv.ParseUint(value.String(), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid arguments: %s must be a non-negative integer", key)
			}
			query.Set(key, strconv.FormatUint(n, 10))
		}

		owner := orDefault(args.OwnerID, defaultOwner)
		return caller.Do(ctx, http.MethodGet, "/uapi/cdr/"+url.PathEscape(owner)+"/@self", query)
	}
}

// decodeArgs rejects unknown arguments.  Numbers may be sent as JSON numbers or strings.
func decodeArgs(raw json.RawMessage, into any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
