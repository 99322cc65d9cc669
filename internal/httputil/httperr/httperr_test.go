// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPErrs(t *testing.T) {
	t.Parallel()

	t.Run("new", func(t *testing.T) {
		t.Parallel()
		err := New(http.StatusBadRequest, "bad request error")
		require.EqualError(t, err, "bad request error")
	})

	t.Run("newf", func(t *testing.T) {
		t.Parallel()
		err := Newf(http.StatusUnsupportedMediaType, "expected content type %s", "application/json")
		require.EqualError(t, err, "expected content type application/json")
	})

	t.Run("wrap", func(t *testing.T) {
		t.Parallel()
		wrappedErr := fmt.Errorf("some internal error")
		err := Wrap(http.StatusInternalServerError, "unexpected error", wrappedErr)
		require.EqualError(t, err, "unexpected error: some internal error")
		require.True(t, errors.Is(err, wrappedErr), "expected error to be wrapped")
	})

	t.Run("respond", func(t *testing.T) {
		t.Parallel()
		err := Wrap(http.StatusForbidden, "boring public bits", fmt.Errorf("some secret internal bits"))
		require.Implements(t, (*Responder)(nil), err)
		rec := httptest.NewRecorder()
		err.(Responder).Respond(rec)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "Forbidden: boring public bits\n", rec.Body.String())
		require.Equal(t, http.Header{
			"Content-Type":           []string{"text/plain; charset=utf-8"},
			"X-Content-Type-Options": []string{"nosniff"},
		}, rec.Header())
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()
		err := MethodNotAllowed(http.MethodPost)
		require.EqualError(t, err, "method not allowed, expected one of [POST]")
		rec := httptest.NewRecorder()
		err.(Responder).Respond(rec)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		require.Equal(t, "POST", rec.Header().Get("Allow"))
		require.Equal(t, "Method Not Allowed\n", rec.Body.String())
	})
}

func TestHandlerFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "success", wantCode: http.StatusOK, wantBody: "ok"},
		{
			name:     "responder",
			err:      New(http.StatusRequestEntityTooLarge, "request body is too large"),
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: "Request Entity Too Large: request body is too large\n",
		},
		{
			name:     "plain error hides details",
			err:      errors.New("disk on fire"),
			wantCode: http.StatusInternalServerError,
			wantBody: "Internal Server Error\n",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := HandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
				if tt.err != nil {
					return tt.err
				}
				_, _ = w.Write([]byte("ok"))
				return nil
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
			require.Equal(t, tt.wantCode, rec.Code)
			require.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
