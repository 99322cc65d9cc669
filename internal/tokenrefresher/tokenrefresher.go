// Copyright 2023-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tokenrefresher keeps the stored platform credential fresh for as long as the server runs.
package tokenrefresher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/backoff"
	"go.voipnowmcp.dev/internal/lifecycle"
	"go.voipnowmcp.dev/internal/plog"
	"go.voipnowmcp.dev/internal/tokenissuer"
)

const (
	DefaultInitialDelay = 10 * time.Second
	DefaultPollInterval = 300 * time.Second

	maxFirstRetryDelay = 60 * time.Second
)

// State is what the refresher is doing right now.
type State int32

const (
	Idle State = iota
	Checking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Checking:
		return "Checking"
	default:
		return "Unknown"
	}
}

// CredentialSource is satisfied by *lifecycle.Manager.
type CredentialSource interface {
	EnsureFreshCredential(ctx context.Context) (*lifecycle.State, error)
}

// Tick describes one completed check.
type Tick struct {
	Started   time.Time
	NextCheck time.Duration
	Err       error
}

type Refresher struct {
	source       CredentialSource
	clock        clock.Clock
	logger       plog.Logger
	initialDelay time.Duration
	poll         time.Duration
	heartbeat    func(Tick)

	state atomic.Int32
	retry backoff.Infinite
}

type Opt func(*Refresher)

func WithClock(c clock.Clock) Opt {
	return func(r *Refresher) { r.clock = c }
}

func WithLogger(l plog.Logger) Opt {
	return func(r *Refresher) { r.logger = l }
}

func WithInitialDelay(d time.Duration) Opt {
	return func(r *Refresher) { r.initialDelay = d }
}

func WithPollInterval(d time.Duration) Opt {
	return func(r *Refresher) { r.poll = d }
}

// WithHeartbeat registers a function that is called after every check, from the refresher goroutine.
func WithHeartbeat(f func(Tick)) Opt {
	return func(r *Refresher) { r.heartbeat = f }
}

func New(source CredentialSource, opts ...Opt) *Refresher {
	r := &Refresher{
		source:       source,
		clock:        clock.RealClock{},
		logger:       plog.New(),
		initialDelay: DefaultInitialDelay,
		poll:         DefaultPollInterval,
		heartbeat:    func(Tick) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.retry = backoff.Infinite{
		Initial: min(maxFirstRetryDelay, r.poll/5),
		Factor:  2.0,
		Max:     r.poll,
	}
	return r
}

func (r *Refresher) State() State {
	return State(r.state.Load())
}

// Start runs checks until ctx is cancelled.  Each check runs to completion before the next one is
// armed, so there is never more than one refresh outstanding.
func (r *Refresher) Start(ctx context.Context) {
	timer := r.clock.NewTimer(r.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("credential refresher was cancelled and is stopping")
			return
		case <-timer.C():
			next := r.check(ctx)
			if ctx.Err() != nil {
				continue
			}
			timer.Reset(next)
		}
	}
}

func (r *Refresher) check(ctx context.Context) time.Duration {
	r.state.Store(int32(Checking))
	started := r.clock.Now()

	state, err := r.source.EnsureFreshCredential(ctx)

	var next time.Duration
	switch {
	case err == nil:
		r.retry.Reset()
		next = nextCheckDelay(r.clock.Now(), state.Credential.ExpiresAt, r.poll)
		r.logger.Debug("platform credential checked",
			"expiresAt", state.Credential.ExpiresAt.UTC().Format(time.RFC3339),
			"nextCheck", next.String())
	case errors.Is(err, tokenissuer.ErrAuthRejected):
		next = r.poll
		r.logger.Error("platform rejected the configured application, waiting for the next poll interval", err,
			"nextCheck", next.String())
	default:
		next = r.retry.Step()
		r.logger.Error("could not refresh platform credential", err, "nextCheck", next.String())
	}

	r.state.Store(int32(Idle))
	r.heartbeat(Tick{Started: started, NextCheck: next, Err: err})
	return next
}

// nextCheckDelay wakes up at expiry when that comes before the next poll.  Degenerate expiries fall
// back to the poll interval so that the loop never spins.
func nextCheckDelay(now, expiresAt time.Time, poll time.Duration) time.Duration {
	if expiresAt.IsZero() {
		return poll
	}
	untilExpiry := expiresAt.Sub(now)
	if untilExpiry <= 0 {
		return poll
	}
	return min(untilExpiry, poll)
}
