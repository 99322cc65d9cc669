// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package securefile writes small secret files so that readers never observe partial content
// and the file is never readable by anyone other than its owner.
package securefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Mode is the only permission set a secure file ever has.
const Mode os.FileMode = 0o600

type Option func(*writer)

// WithBeforeRename runs f after the temporary file is fully written and closed but before it is
// renamed over the target.  Returning an error aborts the write.
func WithBeforeRename(f func(tmpPath string) error) Option {
	return func(w *writer) { w.beforeRename = f }
}

type writer struct {
	beforeRename func(tmpPath string) error
}

// WriteAtomic replaces path with data.  The data is written to a uniquely named sibling that is created
// exclusively with owner-only permissions, flushed to disk, and then renamed over path.
// The temporary file is removed on every failure after it has been created.
func WriteAtomic(path string, data []byte, opts ...Option) (err error) {
	var w writer
	for _, opt := range opts {
		opt(&w)
	}

	dir, base := filepath.Split(path)
	tmpPath := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")

	restoreUmask := tightenUmask()
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, Mode)
	restoreUmask()
	if err != nil {
		return fmt.Errorf("could not create temporary file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = f.Close() // may already be closed
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("could not remove temporary file: %w", removeErr))
			}
		}
	}()

	if err := f.Chmod(Mode); err != nil {
		return fmt.Errorf("could not restrict temporary file permissions: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("could not write temporary file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("could not sync temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %w", err)
	}

	if w.beforeRename != nil {
		if err := w.beforeRename(tmpPath); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("could not replace %s: %w", filepath.Base(path), err)
	}

	// the temporary name no longer exists so the deferred cleanup is a no-op from here on
	if chmodErr := os.Chmod(path, Mode); chmodErr != nil {
		return fmt.Errorf("could not restrict permissions of %s: %w", filepath.Base(path), chmodErr)
	}

	return nil
}
