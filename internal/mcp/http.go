// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"go.voipnowmcp.dev/internal/httputil/httperr"
)

const EndpointPath = "/mcp"

// Handler serves stateless JSON-RPC over HTTP POST.  Every response is a single JSON document;
// server-initiated streams are not offered.
func (s *Server) Handler() http.Handler {
	return httperr.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		if r.Method != http.MethodPost {
			return httperr.MethodNotAllowed(http.MethodPost)
		}

		if ct := r.Header.Get("Content-Type"); ct != "" {
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				return httperr.New(http.StatusUnsupportedMediaType, "expected content type application/json")
			}
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return httperr.New(http.StatusRequestEntityTooLarge, "request body is too large")
			}
			return httperr.Wrap(http.StatusBadRequest, "could not read request body", err)
		}

		resp := s.HandleMessage(r.Context(), body)
		if resp == nil {
			w.WriteHeader(http.StatusAccepted)
			return nil
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(resp)
		return nil
	})
}
