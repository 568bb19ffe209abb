// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logsearch finds diagnostics log lines by correlation ID or
// status class, in both structured JSON and plain-text middleware output.
package logsearch

import (
	"encoding/json"
	"strings"
)

// LogEntry is one structured diagnostics record. Field names follow the
// format the generated middleware emits.
type LogEntry struct {
	Timestamp     string `json:"timestamp"`
	Level         string `json:"level"`
	CorrelationID string `json:"correlation_id"`
	Endpoint      string `json:"endpoint"`
	Method        string `json:"method"`
	StatusCode    int    `json:"status_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
	StackTrace    string `json:"stack_trace,omitempty"`
	RequestBody   string `json:"request_body,omitempty"`
}

// ParseLine decodes a log line into a LogEntry.
//
// Only JSON object lines parse; plain-text middleware lines return nil.
// A nil result is not an error, callers fall back to raw-line matching.
func ParseLine(line string) *LogEntry {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(trimmed), &entry); err != nil {
		return nil
	}
	if entry.CorrelationID == "" && entry.Timestamp == "" {
		return nil
	}
	return &entry
}

// Format renders an entry as indented JSON for terminal display.
func (e *LogEntry) Format() string {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

// StatusClass returns "4xx", "5xx", or "" for the entry's status code.
func (e *LogEntry) StatusClass() string {
	switch e.StatusCode / 100 {
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	default:
		return ""
	}
}
