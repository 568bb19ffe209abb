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

import "errors"

var (
	// ErrNotInitialized means no .api-diagnostics directory exists yet.
	ErrNotInitialized = errors.New("project is not initialized, run init first")

	// ErrAlreadyInitialized means init was already run for the project.
	ErrAlreadyInitialized = errors.New("project is already initialized")
)
