// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package authgate

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sigs.k8s.io/yaml"
)

// FileSecretSource reads the inbound secret from the configuration file.  The file is only re-read
// when its modification time or size changes, so edits made outside the reload path are still seen.
type FileSecretSource struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	size    int64
	secret  string
	loaded  bool
}

func NewFileSecretSource(path string) *FileSecretSource {
	return &FileSecretSource{path: path}
}

func (s *FileSecretSource) Secret() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("could not stat configuration file: %w", err)
	}
	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.secret, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("could not read configuration file: %w", err)
	}

	// Other keys are validated by the configuration loader.
	var doc struct {
		AuthTokenMCP string `json:"authTokenMCP"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("could not decode configuration file: %w", err)
	}

	s.secret, s.modTime, s.size, s.loaded = doc.AuthTokenMCP, info.ModTime(), info.Size(), true
	return s.secret, nil
}
