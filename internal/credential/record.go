// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.voipnowmcp.dev/internal/constable"
)

const (
	ErrMissing            = constable.Error("credential file does not exist")
	ErrCorrupt            = constable.Error("credential is corrupt")
	ErrCreatedAfterExpiry = constable.Error("created after expiry")
	ErrExpired            = constable.Error("credential has expired")

	minSecretLength = 10
)

var secretPattern = regexp.MustCompile(`^[A-Za-z0-9._~+/=-]+$`)

// Record is a bearer credential for the platform API.
// Its String and GoString never include the secret.
type Record struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Secret    string
}

// Marshal returns the single line on-disk form "created:expires:secret" with Unix second timestamps.
func (r Record) Marshal() []byte {
	return []byte(fmt.Sprintf("%d:%d:%s", r.CreatedAt.Unix(), r.ExpiresAt.Unix(), r.Secret))
}

// Validate checks the shape of the record but not its freshness.
func (r Record) Validate() error {
	if r.CreatedAt.Unix() > r.ExpiresAt.Unix() {
		return fmt.Errorf("%w: %w: created %d, expires %d", ErrCorrupt, ErrCreatedAfterExpiry, r.CreatedAt.Unix(), r.ExpiresAt.Unix())
	}
	if len(r.Secret) < minSecretLength {
		return fmt.Errorf("%w: secret is shorter than %d characters", ErrCorrupt, minSecretLength)
	}
	if !secretPattern.MatchString(r.Secret) {
		return fmt.Errorf("%w: secret contains unexpected characters", ErrCorrupt)
	}
	return nil
}

// ExpiresWithin reports whether the record expires before now+buffer has passed.
func (r Record) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(r.ExpiresAt)
}

func (r Record) String() string {
	return fmt.Sprintf("Record{CreatedAt: %s, ExpiresAt: %s, Secret: <redacted>}",
		r.CreatedAt.UTC().Format(time.RFC3339), r.ExpiresAt.UTC().Format(time.RFC3339))
}

func (r Record) GoString() string {
	return r.String()
}

// Parse decodes the on-disk form and checks both its shape and that it has not expired at now.
// Each failure wraps one of ErrCorrupt or ErrExpired; a record created after its expiry additionally
// matches ErrCreatedAfterExpiry.
func Parse(data []byte, now time.Time) (Record, error) {
	fields := strings.Split(strings.TrimSpace(string(data)), ":")
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("%w: expected 3 fields, found %d", ErrCorrupt, len(fields))
	}

	created, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: creation time is not an integer", ErrCorrupt)
	}
	expires, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: expiry time is not an integer", ErrCorrupt)
	}

	record := Record{
		CreatedAt: time.Unix(created, 0),
		ExpiresAt: time.Unix(expires, 0),
		Secret:    fields[2],
	}
	if err := record.Validate(); err != nil {
		return Record{}, err
	}

	if !now.Before(record.ExpiresAt) {
		return Record{}, fmt.Errorf("%w: expired at %s", ErrExpired, record.ExpiresAt.UTC().Format(time.RFC3339))
	}

	return record, nil
}
