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

import (
	"fmt"
	"os"

	"github.com/AleutianAI/apidiag/pkg/validation"
)

// Remover strips a previously injected region from a target file.
//
// # Thread Safety
//
// Remover holds no per-call state; calls for the same path must be
// serialized by the caller.
type Remover struct {
	backups BackupStore
}

// NewRemover creates a Remover.
func NewRemover(backups BackupStore) *Remover {
	return &Remover{backups: backups}
}

// Remove deletes the marker's sentinel pair and everything between them.
//
// Returns (false, nil) when path does not exist or the marker's start
// sentinel is absent. A backup snapshot is taken before the write; any
// failure during stripping or writing restores the snapshot before the
// error is returned. Returns true only when a region was found and
// removed.
func (r *Remover) Remove(path string, opts Options) (bool, error) {
	marker := opts.marker()
	if err := validation.ValidateMarker(marker); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidMarker, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}

	content, err := readFileText(path)
	if err != nil {
		return false, err
	}

	// StripMarker is a pure string transform, so running it before the
	// backup means no snapshot is taken when there is nothing to remove.
	stripped, removed := StripMarker(content, marker)
	if !removed {
		return false, nil
	}

	backupPath, err := r.backups.Create(path)
	if err != nil {
		return false, err
	}

	if err := atomicWriteFile(path, []byte(stripped), permOf(path)); err != nil {
		if _, restoreErr := r.backups.Restore(path, backupPath); restoreErr != nil {
			return false, fmt.Errorf("write failed (%v); restore also failed: %w", err, restoreErr)
		}
		return false, fmt.Errorf("writing %s: %w", path, err)
	}

	return true, nil
}
