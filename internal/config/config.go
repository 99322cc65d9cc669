// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config contains functionality to load a Config from a local file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"

	"go.voipnowmcp.dev/internal/constable"
	"go.voipnowmcp.dev/internal/plog"
)

const (
	errInvalidHost        = constable.Error("voipnowHost must start with http:// or https://")
	errMissingInboundAuth = constable.Error("authTokenMCP is required when authentication is enabled")
)

type Options struct {
	// RequireInboundSecret is set when the networked transports must authenticate their clients.
	RequireInboundSecret bool
}

// FromPath loads a Config from a provided local file path, inserts any
// defaults, and verifies that the config is valid.  Unknown keys are an error.
// The file may be JSON or YAML.
func FromPath(path string, opts Options) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var config Config
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, fmt.Errorf("validate required fields: %w", err)
	}

	if err := validateHost(&config); err != nil {
		return nil, fmt.Errorf("validate voipnowHost: %w", err)
	}

	if opts.RequireInboundSecret && config.InboundAuthSecret == "" {
		return nil, fmt.Errorf("validate authTokenMCP: %w", errMissingInboundAuth)
	}

	if _, err := plog.ParseLogLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("validate logLevel: %w", err)
	}

	credentialFile, err := filepath.Abs(config.CredentialFile)
	if err != nil {
		return nil, fmt.Errorf("validate voipnowTokenFile: %w", err)
	}
	config.CredentialFile = credentialFile

	return &config, nil
}

// PlogLevel returns the configured log level, which FromPath has already validated.
func (c *Config) PlogLevel() plog.LogLevel {
	level, _ := plog.ParseLogLevel(c.LogLevel)
	return level
}

func validateRequired(config *Config) error {
	missing := sets.New[string]()
	for name, value := range map[string]string{
		"appId":            config.AppID,
		"appSecret":        config.AppSecret,
		"voipnowHost":      config.VoipnowHost,
		"voipnowTokenFile": config.CredentialFile,
	} {
		if strings.TrimSpace(value) == "" {
			missing.Insert(name)
		}
	}
	if missing.Len() > 0 {
		return constable.Error("missing required fields: " + strings.Join(sets.List(missing), ", "))
	}
	return nil
}

func validateHost(config *Config) error {
	if !strings.HasPrefix(config.VoipnowHost, "http://") && !strings.HasPrefix(config.VoipnowHost, "https://") {
		return errInvalidHost
	}
	config.VoipnowHost = strings.TrimRight(config.VoipnowHost, "/")
	return nil
}
