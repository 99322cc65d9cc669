// Copyright 2021-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package credential reads and writes the on-disk platform credential.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/securefile"
)

const (
	// defaultFileLockTimeout is how long we will wait trying to acquire the file lock on the credential file before timing out.
	defaultFileLockTimeout = 10 * time.Second

	// defaultFileLockRetryInterval is how often we will poll while waiting for the file lock to become available.
	defaultFileLockRetryInterval = 10 * time.Millisecond
)

// Store guards the credential file with a sidecar lock file so that other processes sharing the
// credential never read it while it is being replaced.
type Store struct {
	path     string
	lockPath string
	clock    clock.PassiveClock
	writeOpt []securefile.Option
}

type StoreOption func(*Store)

func WithClock(c clock.PassiveClock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// WithWriteOptions is passed through to securefile.WriteAtomic on every Write.
func WithWriteOptions(opts ...securefile.Option) StoreOption {
	return func(s *Store) { s.writeOpt = opts }
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:     path,
		lockPath: path + ".lock",
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Read returns the stored record if it is well-formed and not yet expired.
func (s *Store) Read() (Record, error) {
	// If the credential file does not exist, exit immediately without creating a lock file.
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrMissing
	}

	var data []byte
	err := s.withLock(false, func() error {
		var err error
		data, err = os.ReadFile(s.path)
		return err
	})
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrMissing
	}
	if err != nil {
		return Record{}, fmt.Errorf("could not read credential file: %w", err)
	}

	return Parse(data, s.clock.Now())
}

// Write atomically replaces the credential file with record.
func (s *Store) Write(record Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to write credential: %w", err)
	}

	// Create the credential directory if it does not exist.
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("could not create credential directory: %w", err)
	}

	return s.withLock(true, func() error {
		return securefile.WriteAtomic(s.path, record.Marshal(), s.writeOpt...)
	})
}

// Remove deletes the credential file so that the next Read reports ErrMissing.
func (s *Store) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove credential file: %w", err)
	}
	return nil
}

// withLock runs f while holding the sidecar lock.  A new lock handle is used per call so that
// concurrent callers within this process also exclude each other.
func (s *Store) withLock(exclusive bool, f func() error) (err error) {
	lock := flock.New(s.lockPath, flock.SetPermissions(securefile.Mode))

	ctx, cancel := context.WithTimeout(context.Background(), defaultFileLockTimeout)
	defer cancel()

	var locked bool
	if exclusive {
		locked, err = lock.TryLockContext(ctx, defaultFileLockRetryInterval)
	} else {
		locked, err = lock.TryRLockContext(ctx, defaultFileLockRetryInterval)
	}
	if err != nil {
		return fmt.Errorf("could not lock credential file: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not lock credential file: timed out after %s", defaultFileLockTimeout)
	}

	// Unlock the file at the end of this call, bubbling up the error if things were otherwise successful.
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("could not unlock credential file: %w", unlockErr)
		}
	}()

	return f()
}
