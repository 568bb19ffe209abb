// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inject

import "strings"

// DefaultMarker delimits blocks injected by the diagnostics integration.
const DefaultMarker = "api_diagnostics_injection"

// startToken returns the marker-bearing fragment of the start sentinel.
//
// Detection intentionally ignores the comment prefix so a block injected
// with one prefix is still found in a file read with a different kind hint.
func startToken(marker string) string {
	return "START " + marker
}

func endToken(marker string) string {
	return "END " + marker
}

// StartSentinel returns the full start sentinel line for a marker.
func StartSentinel(marker, commentPrefix string) string {
	return commentPrefix + " " + startToken(marker) + " - Auto-generated"
}

// EndSentinel returns the full end sentinel line for a marker.
func EndSentinel(marker, commentPrefix string) string {
	return commentPrefix + " " + endToken(marker)
}

// Wrap surrounds code with the sentinel pair for marker.
//
// The result always ends with a newline:
//
//	# START <marker> - Auto-generated
//	<code>
//	# END <marker>
func Wrap(code, marker, commentPrefix string) string {
	return StartSentinel(marker, commentPrefix) + "\n" + code + "\n" + EndSentinel(marker, commentPrefix) + "\n"
}

// ContainsMarker reports whether content holds the marker's start sentinel.
func ContainsMarker(content, marker string) bool {
	return strings.Contains(content, startToken(marker))
}

// StripMarker removes the marked region from content.
//
// Every line from the start sentinel through the matching end sentinel,
// both inclusive, is dropped; all other lines keep their relative order.
// When no start sentinel is present the content is returned unchanged and
// removed is false. A start sentinel without a matching end sentinel strips
// through the end of the content.
func StripMarker(content, marker string) (string, bool) {
	if !ContainsMarker(content, marker) {
		return content, false
	}

	start := startToken(marker)
	end := endToken(marker)

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	inBlock := false
	removed := false

	for _, line := range lines {
		if !inBlock && strings.Contains(line, start) {
			inBlock = true
			removed = true
			continue
		}
		if inBlock {
			if strings.Contains(line, end) {
				inBlock = false
			}
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n"), removed
}
