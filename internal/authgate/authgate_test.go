// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"go.voipnowmcp.dev/internal/plog"
)

const goodSecret = "s3cr3t-inbound-token"

type secretFunc func() (string, error)

func (f secretFunc) Secret() (string, error) { return f() }

func staticSecret(s string) SecretSource {
	return secretFunc(func() (string, error) { return s, nil })
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secrets SecretSource
		header  string
		wantErr error
	}{
		{name: "valid token", header: "Bearer " + goodSecret},
		{name: "scheme is case insensitive", header: "bEaReR " + goodSecret},
		{name: "surrounding whitespace is ignored", header: "  Bearer   " + goodSecret + " "},
		{name: "missing header", header: "", wantErr: ErrMissingHeader},
		{name: "blank header", header: "   ", wantErr: ErrMissingHeader},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: ErrMalformedHeader},
		{name: "token without scheme", header: goodSecret, wantErr: ErrMalformedHeader},
		{name: "scheme glued to token", header: "Bearer" + goodSecret, wantErr: ErrMalformedHeader},
		{name: "scheme only", header: "Bearer", wantErr: ErrEmptyToken},
		{name: "scheme and spaces", header: "Bearer    ", wantErr: ErrEmptyToken},
		{name: "wrong token", header: "Bearer not-the-secret", wantErr: ErrInvalidToken},
		{name: "prefix of the token", header: "Bearer s3cr3t", wantErr: ErrInvalidToken},
		{name: "token differs only in case", header: "Bearer S3CR3T-INBOUND-TOKEN", wantErr: ErrInvalidToken},
		{
			name:    "no secret configured",
			secrets: staticSecret(""),
			header:  "Bearer anything",
			wantErr: ErrSecretUnavailable,
		},
		{
			name:    "secret cannot be read",
			secrets: secretFunc(func() (string, error) { return "", errors.New("permission denied") }),
			header:  "Bearer " + goodSecret,
			wantErr: ErrSecretUnavailable,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			secrets := tt.secrets
			if secrets == nil {
				secrets = staticSecret(goodSecret)
			}
			logger, log := plog.TestLogger(t)
			gate := New(secrets, clocktesting.NewFakeClock(time.Now()), WithLogger(logger))

			err := gate.Authenticate(tt.header, "10.0.0.1")
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.NotContains(t, log.String(), goodSecret)
			require.NotContains(t, log.String(), "not-the-secret")
		})
	}
}

func TestAuthenticate_RateLimit(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Unix(1_800_000_000, 0))
	logger, log := plog.TestLogger(t)
	gate := New(staticSecret(goodSecret), fakeClock, WithLogger(logger))

	for i := 0; i < DefaultMaxFailures; i++ {
		require.ErrorIs(t, gate.Authenticate("Bearer wrong-guess", "10.0.0.1"), ErrInvalidToken)
	}

	// the correct token is not even looked at once the ceiling is reached
	require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.1"), ErrRateLimited)
	require.ErrorIs(t, gate.Authenticate("", "10.0.0.1"), ErrRateLimited)

	// other clients are unaffected
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.2"))

	fakeClock.Step(DefaultFailureWindow - time.Second)
	require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.1"), ErrRateLimited)

	fakeClock.Step(time.Second)
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.1"))

	require.NotContains(t, log.String(), goodSecret)
	require.NotContains(t, log.String(), "wrong-guess")
}

func TestAuthenticate_FailureRefreshesWindow(t *testing.T) {
	t.Parallel()

	fakeClock := clocktesting.NewFakeClock(time.Unix(1_800_000_000, 0))
	logger, _ := plog.TestLogger(t)
	gate := New(staticSecret(goodSecret), fakeClock, WithLogger(logger))

	for i := 0; i < DefaultMaxFailures-1; i++ {
		require.ErrorIs(t, gate.Authenticate("Basic x", "client"), ErrMalformedHeader)
	}
	fakeClock.Step(10 * time.Minute)
	require.ErrorIs(t, gate.Authenticate("Bearer ", "client"), ErrEmptyToken)

	fakeClock.Step(10 * time.Minute)
	require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "client"), ErrRateLimited)

	fakeClock.Step(5 * time.Minute)
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "client"))
}

func TestAuthenticate_SuccessClearsFailures(t *testing.T) {
	t.Parallel()

	logger, _ := plog.TestLogger(t)
	gate := New(staticSecret(goodSecret), clocktesting.NewFakeClock(time.Now()),
		WithLogger(logger), WithMaxFailures(2), WithFailureWindow(time.Minute))

	require.ErrorIs(t, gate.Authenticate("Bearer nope", "client"), ErrInvalidToken)
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "client"))
	require.ErrorIs(t, gate.Authenticate("Bearer nope", "client"), ErrInvalidToken)
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "client"))

	require.ErrorIs(t, gate.Authenticate("Bearer nope", "client"), ErrInvalidToken)
	require.ErrorIs(t, gate.Authenticate("Bearer nope", "client"), ErrInvalidToken)
	require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "client"), ErrRateLimited)
}

func TestAuthenticate_SecretOutageIsNotChargedToClients(t *testing.T) {
	t.Parallel()

	var readErr error = errors.New("unexpected end of JSON input")
	secrets := secretFunc(func() (string, error) {
		if readErr != nil {
			return "", readErr
		}
		return goodSecret, nil
	})
	logger, _ := plog.TestLogger(t)
	gate := New(secrets, clocktesting.NewFakeClock(time.Unix(1_800_000_000, 0)), WithLogger(logger))

	for i := 0; i < DefaultMaxFailures+2; i++ {
		require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.1"), ErrSecretUnavailable)
	}

	readErr = nil
	require.NoError(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.1"))

	// a real failure during the outage is still counted
	readErr = errors.New("permission denied")
	require.ErrorIs(t, gate.Authenticate("Basic x", "10.0.0.2"), ErrMalformedHeader)
	readErr = nil
	for i := 0; i < DefaultMaxFailures-1; i++ {
		require.ErrorIs(t, gate.Authenticate("Bearer wrong", "10.0.0.2"), ErrInvalidToken)
	}
	require.ErrorIs(t, gate.Authenticate("Bearer "+goodSecret, "10.0.0.2"), ErrRateLimited)
}
