// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import "github.com/google/uuid"

// NewCorrelationID returns a fresh UUID v4 correlation ID.
func NewCorrelationID() string {
	return uuid.NewString()
}

// ShortCorrelationID returns the 8-character display form of an ID,
// matching what the generated middleware prints.
func ShortCorrelationID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// IsCorrelationID reports whether s parses as a UUID.
func IsCorrelationID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
