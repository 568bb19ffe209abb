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

import "errors"

// Sentinel errors for the injection subsystem.
var (
	// ErrNotFound indicates the target file does not exist.
	ErrNotFound = errors.New("target file not found")

	// ErrInvalidPosition indicates an unrecognized injection position.
	ErrInvalidPosition = errors.New("invalid injection position")

	// ErrInvalidMarker indicates a marker name that cannot safely be
	// embedded in source file sentinels.
	ErrInvalidMarker = errors.New("invalid marker name")
)
