// Copyright 2020-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config contains knobs to set up an instance of the MCP server.
// The JSON keys are kept compatible with existing deployments.
type Config struct {
	AppID     string `json:"appId"`
	AppSecret string `json:"appSecret"`
	// VoipnowHost is the base URL of the platform, e.g. https://voipnow.example.com.
	VoipnowHost    string `json:"voipnowHost"`
	CredentialFile string `json:"voipnowTokenFile"`

	// InboundAuthSecret is the bearer token expected from clients of the networked transports.
	InboundAuthSecret string `json:"authTokenMCP,omitempty"`
	LogLevel          string `json:"logLevel,omitempty"`
	// AllowUnverifiedTLS disables certificate verification towards the platform.  Never use it in production.
	AllowUnverifiedTLS FlexBool `json:"insecure,omitempty"`
}

// Identity is the subset of Config that determines which remote identity a credential is issued for.
type Identity struct {
	AppID     string `json:"appId"`
	AppSecret string `json:"appSecret"`
	Host      string `json:"voipnowHost"`
}

func (c *Config) Identity() Identity {
	return Identity{AppID: c.AppID, AppSecret: c.AppSecret, Host: c.VoipnowHost}
}

// TokenURL is the client-credentials endpoint of the platform.
func (c *Config) TokenURL() string {
	return c.VoipnowHost + "/oauth/token.php"
}

// FingerprintFile is where the identity fingerprint is stored next to the credential.
func (c *Config) FingerprintFile() string {
	return c.CredentialFile + ".config_hash"
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{AppID: %q, VoipnowHost: %q, CredentialFile: %q, LogLevel: %q, AllowUnverifiedTLS: %t}",
		c.AppID, c.VoipnowHost, c.CredentialFile, c.LogLevel, bool(c.AllowUnverifiedTLS))
}

func (c *Config) GoString() string {
	return c.String()
}

func (i Identity) String() string {
	return fmt.Sprintf("Identity{AppID: %q, AppSecret: <redacted>, Host: %q}", i.AppID, i.Host)
}

func (i Identity) GoString() string {
	return i.String()
}

// FlexBool decodes either a JSON boolean or the strings "true" and "false".
type FlexBool bool

var _ json.Unmarshaler = (*FlexBool)(nil)

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s, valid choices are true and false", data)
	}
	return nil
}
