// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package authgate checks the bearer token on inbound requests to the networked transports.
package authgate

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/cache"
	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/constable"
	"go.voipnowmcp.dev/internal/plog"
)

const (
	DefaultMaxFailures   = 5
	DefaultFailureWindow = 15 * time.Minute

	ErrRateLimited     = constable.Error("too many failed authentication attempts")
	ErrMissingHeader   = constable.Error("authorization header is missing")
	ErrMalformedHeader = constable.Error("authorization header is not a bearer token")
	ErrEmptyToken      = constable.Error("bearer token is empty")
	ErrInvalidToken    = constable.Error("bearer token is invalid")

	// ErrSecretUnavailable is a server side failure and is not counted against the client.
	ErrSecretUnavailable = constable.Error("inbound authentication secret is unavailable")

	bearerScheme = "bearer"
)

// SecretSource returns the currently configured inbound secret.
type SecretSource interface {
	Secret() (string, error)
}

type Gate struct {
	secrets     SecretSource
	logger      plog.Logger
	maxFailures int
	window      time.Duration

	// mu makes the check-then-update of a client's failure count atomic.
	mu       sync.Mutex
	failures *cache.Expiring
}

type Opt func(*Gate)

func WithLogger(l plog.Logger) Opt {
	return func(g *Gate) { g.logger = l }
}

func WithMaxFailures(n int) Opt {
	return func(g *Gate) { g.maxFailures = n }
}

func WithFailureWindow(d time.Duration) Opt {
	return func(g *Gate) { g.window = d }
}

func New(secrets SecretSource, c clock.Clock, opts ...Opt) *Gate {
	g := &Gate{
		secrets:     secrets,
		logger:      plog.New(),
		maxFailures: DefaultMaxFailures,
		window:      DefaultFailureWindow,
		failures:    cache.NewExpiringWithClock(c),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate returns nil when header carries the configured bearer token.  Clients that failed
// too often recently are rejected before the header is looked at.
func (g *Gate) Authenticate(header, clientID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failureCount(clientID) >= g.maxFailures {
		g.logger.Info("rejected request from rate limited client", "client", clientID)
		return ErrRateLimited
	}

	err := g.check(header)
	if errors.Is(err, ErrSecretUnavailable) {
		return err
	}
	if err != nil {
		count := g.failureCount(clientID) + 1
		g.failures.Set(clientID, count, g.window)
		g.logger.Info("rejected request", "client", clientID, "reason", err.Error(), "failures", count)
		return err
	}

	g.failures.Delete(clientID)
	g.logger.Trace("authenticated request", "client", clientID)
	return nil
}

func (g *Gate) failureCount(clientID string) int {
	v, ok := g.failures.Get(clientID)
	if !ok {
		return 0
	}
	count, _ := v.(int)
	return count
}

func (g *Gate) check(header string) error {
	token, err := bearerToken(header)
	if err != nil {
		return err
	}

	secret, err := g.secrets.Secret()
	if err != nil {
		g.logger.WarningErr("could not read the inbound authentication secret", err)
		return ErrSecretUnavailable
	}
	if secret == "" {
		g.logger.Warning("no inbound authentication secret is configured, rejecting all requests")
		return ErrSecretUnavailable
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingHeader
	}

	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrMalformedHeader
	}

	token := strings.TrimSpace(rest)
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}
