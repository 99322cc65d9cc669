// Copyright 2024-2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// LogEntries decodes every JSON log line in log.
func LogEntries(t *testing.T, log *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(log.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line is not JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

// LogMessages returns only the message of every JSON log line in log.
func LogMessages(t *testing.T, log *bytes.Buffer) []string {
	t.Helper()

	var messages []string
	for _, entry := range LogEntries(t, log) {
		msg, _ := entry["message"].(string)
		messages = append(messages, msg)
	}
	return messages
}
