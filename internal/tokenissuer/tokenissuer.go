// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tokenissuer obtains platform credentials through the OAuth client credentials grant.
package tokenissuer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/config"
	"go.voipnowmcp.dev/internal/credential"
	"go.voipnowmcp.dev/internal/net/phttp"
	"go.voipnowmcp.dev/internal/plog"
)

// RecordWriter persists a freshly issued credential.  *credential.Store implements it.
type RecordWriter interface {
	Write(record credential.Record) error
}

type Issuer struct {
	clock   clock.PassiveClock
	timeout time.Duration
	client  func(allowUnverifiedTLS bool) *http.Client
	logger  plog.Logger
}

type Option func(*Issuer)

func WithClock(c clock.PassiveClock) Option {
	return func(i *Issuer) { i.clock = c }
}

// WithTimeout bounds each exchange.  The default is phttp.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Issuer) { i.timeout = d }
}

func WithHTTPClient(f func(allowUnverifiedTLS bool) *http.Client) Option {
	return func(i *Issuer) { i.client = f }
}

func WithLogger(l plog.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

func New(opts ...Option) *Issuer {
	i := &Issuer{
		clock:   clock.RealClock{},
		timeout: phttp.DefaultTimeout,
		client:  phttp.ForConfig,
		logger:  plog.New(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue exchanges the identity in cfg for a new credential and persists it with w.
// The returned error matches one of ErrAuthRejected, ErrTransport, ErrInvalidResponse or ErrCertificate.
func (i *Issuer) Issue(ctx context.Context, cfg *config.Config, w RecordWriter) (credential.Record, error) {
	if cfg.AllowUnverifiedTLS {
		i.logger.Warning("TLS certificate verification is disabled for the platform, do not use this in production",
			"host", cfg.VoipnowHost)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.client(bool(cfg.AllowUnverifiedTLS)))

	tokenURL := cfg.TokenURL()
	cc := clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppSecret,
		TokenURL:     tokenURL,
		EndpointParams: url.Values{
			"type":         []string{"unifiedapi"},
			"redirect_uri": []string{tokenURL},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}

	issuedAt := i.clock.Now()
	token, err := cc.Token(ctx)
	if err != nil {
		return credential.Record{}, errors.WithStack(classify(ctx, err))
	}

	expiresIn, err := expiresInSeconds(token)
	if err != nil {
		return credential.Record{}, errors.WithStack(err)
	}

	record := credential.Record{
		CreatedAt: time.Unix(issuedAt.Unix(), 0),
		ExpiresAt: time.Unix(issuedAt.Unix()+expiresIn, 0),
		Secret:    token.AccessToken,
	}
	if err := record.Validate(); err != nil {
		return credential.Record{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	if err := w.Write(record); err != nil {
		return credential.Record{}, errors.WithMessage(err, "could not store issued credential")
	}

	i.logger.Info("issued platform credential",
		"host", cfg.VoipnowHost,
		"expiresAt", record.ExpiresAt.UTC().Format(time.RFC3339),
		"lifetime", time.Duration(expiresIn)*time.Second)

	return record, nil
}

func classify(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		switch {
		case retrieveErr.ErrorCode == "invalid_client":
			return fmt.Errorf("%w: %w", ErrAuthRejected, ErrInvalidClient)
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("%w: status %d", ErrTransport, status)
		case retrieveErr.ErrorCode != "":
			return fmt.Errorf("%w: %s", ErrAuthRejected, describe(retrieveErr))
		default:
			return fmt.Errorf("%w: status %d", ErrAuthRejected, status)
		}
	}

	if certErr, ok := asCertificateError(err); ok {
		return certErr
	}

	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: request timed out: %w", ErrTransport, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
}

func describe(e *oauth2.RetrieveError) string {
	if e.ErrorDescription != "" {
		return e.ErrorCode + ": " + e.ErrorDescription
	}
	return e.ErrorCode
}

func expiresInSeconds(token *oauth2.Token) (int64, error) {
	var seconds int64
	switch v := token.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case int64:
		seconds = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: expires_in is not an integer", ErrInvalidResponse)
		}
		seconds = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: expires_in is not an integer", ErrInvalidResponse)
		}
		seconds = n
	case nil:
		return 0, fmt.Errorf("%w: expires_in is missing", ErrInvalidResponse)
	default:
		return 0, fmt.Errorf("%w: expires_in has unexpected type %T", ErrInvalidResponse, v)
	}

	if seconds <= 0 {
		return 0, fmt.Errorf("%w: expires_in must be positive, got %d", ErrInvalidResponse, seconds)
	}
	return seconds, nil
}
