// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values that end up
// inside user source files or filesystem paths.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// markerPattern matches valid injection marker names.
// Allows: letters, digits, underscores, hyphens. Max length: 64.
var markerPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_\-]{0,63}$`)

// ValidateMarker checks a marker name before it is written into source
// file sentinels.
//
// Markers become part of comment lines in user files, so anything that
// could break out of a line comment (newlines, control characters) or
// confuse later sentinel matching is rejected.
func ValidateMarker(marker string) error {
	if marker == "" {
		return fmt.Errorf("marker is empty")
	}
	if !markerPattern.MatchString(marker) {
		return fmt.Errorf("invalid marker %q: use letters, digits, underscores, hyphens (max 64 chars)", marker)
	}
	return nil
}

// ValidateProjectPath checks that rel stays inside the project root
// when joined to it.
//
// Rejects absolute paths and any path whose cleaned form escapes via
// "..", preventing operations on files outside the project.
func ValidateProjectPath(rel string) error {
	if rel == "" {
		return fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(rel) {
		return fmt.Errorf("path %q must be relative to the project root", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q escapes the project root", rel)
	}
	return nil
}
