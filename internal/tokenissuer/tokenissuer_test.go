// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tokenissuer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"go.voipnowmcp.dev/internal/config"
	"go.voipnowmcp.dev/internal/credential"
	"go.voipnowmcp.dev/internal/net/phttp"
	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/testutil"
)

var now = time.Unix(1_800_000_000, 0) //nolint:gochecknoglobals

type recordingWriter struct {
	records []credential.Record
	err     error
}

func (w *recordingWriter) Write(r credential.Record) error {
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, r)
	return nil
}

func testConfig(host string) *config.Config {
	return &config.Config{
		AppID:          "app-id",
		AppSecret:      "app-secret",
		VoipnowHost:    host,
		CredentialFile: "/unused",
	}
}

func TestIssue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		status      int
		body        string
		writerErr   error
		wantRecord  credential.Record
		wantIs      []error
		wantNotIs   []error
		wantErr     string
	}{
		{
			name:        "json success",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"abcdefghijklmnop.qrs","token_type":"Bearer","expires_in":3600}`,
			wantRecord:  credential.Record{CreatedAt: now, ExpiresAt: now.Add(time.Hour), Secret: "abcdefghijklmnop.qrs"},
		},
		{
			name:        "form encoded success",
			contentType: "application/x-www-form-urlencoded",
			status:      http.StatusOK,
			body:        "access_token=abcdefghijklmnop&expires_in=120",
			wantRecord:  credential.Record{CreatedAt: now, ExpiresAt: now.Add(2 * time.Minute), Secret: "abcdefghijklmnop"},
		},
		{
			name:        "json expires_in as string",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"abcdefghijklmnop","expires_in":"60"}`,
			wantRecord:  credential.Record{CreatedAt: now, ExpiresAt: now.Add(time.Minute), Secret: "abcdefghijklmnop"},
		},
		{
			name:        "invalid client",
			contentType: "application/json",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid_client","error_description":"Client authentication failed"}`,
			wantIs:      []error{ErrAuthRejected, ErrInvalidClient},
			wantErr:     "platform rejected the application credentials: invalid_client: check appId and appSecret",
		},
		{
			name:        "invalid client with a success status",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"error":"invalid_client"}`,
			wantIs:      []error{ErrAuthRejected, ErrInvalidClient},
			wantErr:     "platform rejected the application credentials: invalid_client: check appId and appSecret",
		},
		{
			name:        "other oauth error",
			contentType: "application/json",
			status:      http.StatusBadRequest,
			body:        `{"error":"unauthorized_client","error_description":"grant not allowed"}`,
			wantIs:      []error{ErrAuthRejected},
			wantNotIs:   []error{ErrInvalidClient, ErrTransport},
			wantErr:     "platform rejected the application credentials: unauthorized_client: grant not allowed",
		},
		{
			name:        "forbidden without details",
			contentType: "text/html",
			status:      http.StatusForbidden,
			body:        `<html>nope</html>`,
			wantIs:      []error{ErrAuthRejected},
			wantErr:     "platform rejected the application credentials: status 403",
		},
		{
			name:        "server error is an outage",
			contentType: "text/html",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantIs:      []error{ErrTransport},
			wantNotIs:   []error{ErrAuthRejected},
			wantErr:     "could not reach the platform token endpoint: status 502",
		},
		{
			name:        "missing access token",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"expires_in":3600}`,
			wantIs:      []error{ErrInvalidResponse},
			wantErr:     "platform token endpoint returned an unusable response: oauth2: server response missing access_token",
		},
		{
			name:        "missing expires_in",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"abcdefghijklmnop"}`,
			wantIs:      []error{ErrInvalidResponse},
			wantErr:     "platform token endpoint returned an unusable response: expires_in is missing",
		},
		{
			name:        "non positive expires_in",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"abcdefghijklmnop","expires_in":0}`,
			wantIs:      []error{ErrInvalidResponse},
			wantErr:     "platform token endpoint returned an unusable response: expires_in must be positive, got 0",
		},
		{
			name:        "token unsafe to store",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"short","expires_in":3600}`,
			wantIs:      []error{ErrInvalidResponse, credential.ErrCorrupt},
			wantErr:     "platform token endpoint returned an unusable response: credential is corrupt: secret is shorter than 10 characters",
		},
		{
			name:        "write failure",
			contentType: "application/json",
			status:      http.StatusOK,
			body:        `{"access_token":"abcdefghijklmnop","expires_in":3600}`,
			writerErr:   errors.New("disk full"),
			wantErr:     "could not store issued credential: disk full",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotForm url.Values
			var gotPath, gotUserAgent string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				gotForm = r.PostForm
				gotPath = r.URL.Path
				gotUserAgent = r.Header.Get("User-Agent")
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			t.Cleanup(server.Close)

			logger, log := plog.TestLogger(t)
			issuer := New(WithClock(clocktesting.NewFakePassiveClock(now)), WithLogger(logger))
			writer := &recordingWriter{err: tt.writerErr}

			record, err := issuer.Issue(context.Background(), testConfig(server.URL), writer)

			require.Equal(t, "/oauth/token.php", gotPath)
			require.Equal(t, phttp.UserAgent, gotUserAgent)
			require.Equal(t, url.Values{
				"client_id":     {"app-id"},
				"client_secret": {"app-secret"},
				"grant_type":    {"client_credentials"},
				"type":          {"unifiedapi"},
				"redirect_uri":  {server.URL + "/oauth/token.php"},
			}, gotForm)

			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				for _, target := range tt.wantIs {
					require.ErrorIs(t, err, target)
				}
				for _, target := range tt.wantNotIs {
					require.NotErrorIs(t, err, target)
				}
				require.Equal(t, credential.Record{}, record)
				require.Empty(t, writer.records)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantRecord, record)
			require.Equal(t, []credential.Record{tt.wantRecord}, writer.records)
			require.Equal(t, []string{"issued platform credential"}, testutil.LogMessages(t, log))
			require.NotContains(t, log.String(), tt.wantRecord.Secret)
		})
	}
}

func TestIssue_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)

	issuer := New(WithTimeout(50 * time.Millisecond))
	_, err := issuer.Issue(context.Background(), testConfig(server.URL), &recordingWriter{})
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorContains(t, err, "request timed out")
}

func TestIssue_ConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	host := server.URL
	server.Close()

	_, err := New().Issue(context.Background(), testConfig(host), &recordingWriter{})
	require.ErrorIs(t, err, ErrTransport)
	require.NotErrorIs(t, err, ErrCertificate)
}

func TestIssue_Certificates(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"abcdefghijklmnop","expires_in":3600}`)
	}))
	t.Cleanup(server.Close)

	t.Run("self-signed certificate is reported with its details", func(t *testing.T) {
		t.Parallel()

		logger, log := plog.TestLogger(t)
		_, err := New(WithLogger(logger)).Issue(context.Background(), testConfig(server.URL), &recordingWriter{})
		require.ErrorIs(t, err, ErrCertificate)

		var certErr *CertificateError
		require.ErrorAs(t, err, &certErr)
		require.Contains(t, certErr.Subject, "Acme Co")
		require.Contains(t, certErr.Issuer, "Acme Co")
		require.False(t, certErr.NotAfter.IsZero())
		require.ErrorContains(t, err, `verification may only be disabled with "insecure": true on non-production platforms`)
		require.Empty(t, log.String(), "verification must never be relaxed silently")
	})

	t.Run("insecure mode connects and warns", func(t *testing.T) {
		t.Parallel()

		logger, log := plog.TestLogger(t)
		cfg := testConfig(server.URL)
		cfg.AllowUnverifiedTLS = true

		record, err := New(WithLogger(logger), WithClock(clocktesting.NewFakePassiveClock(now))).
			Issue(context.Background(), cfg, &recordingWriter{})
		require.NoError(t, err)
		require.Equal(t, now.Add(time.Hour), record.ExpiresAt)

		entries := testutil.LogEntries(t, log)
		require.Len(t, entries, 2)
		require.Equal(t, "TLS certificate verification is disabled for the platform, do not use this in production", entries[0]["message"])
		require.Equal(t, true, entries[0]["warning"])
	})
}

func TestIssue_ThenReadFromStore(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"eyJhbGciOi.JIUzI1NiJ9-_~+/=","expires_in":7200}`)
	}))
	t.Cleanup(server.Close)

	fakeClock := clocktesting.NewFakePassiveClock(now)
	store := credential.NewStore(filepath.Join(t.TempDir(), "token"), credential.WithClock(fakeClock))

	issued, err := New(WithClock(fakeClock)).Issue(context.Background(), testConfig(server.URL), store)
	require.NoError(t, err)

	read, err := store.Read()
	require.NoError(t, err)
	require.Equal(t, issued, read)
	require.False(t, read.CreatedAt.After(read.ExpiresAt))
	require.Regexp(t, `^[A-Za-z0-9._~+/=-]{10,}$`, read.Secret)
}
