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
	"path/filepath"
	"sort"
	"time"
)

const (
	// backupSeparator joins the original filename and the timestamp.
	backupSeparator = ".backup_"

	// backupTimeFormat is second-resolution. Two backups of the same file
	// within one second collide and the later one overwrites the earlier.
	backupTimeFormat = "20060102_150405"
)

// BackupStore defines snapshot operations for target files.
//
// # Description
//
// BackupStore creates timestamped sibling copies of a file before a
// mutating operation, lists and restores them, and trims old snapshots
// to a bounded count.
//
// # Thread Safety
//
// Implementations are not required to serialize access to the same
// target path. Callers own that ordering.
type BackupStore interface {
	// Create copies path to a timestamped sibling and returns the backup path.
	Create(path string) (string, error)

	// List returns all backups for path, newest first by modification time.
	List(path string) ([]string, error)

	// Restore overwrites path with backupPath's content. An empty backupPath
	// selects the newest backup. Returns false when no backup is available.
	Restore(path, backupPath string) (bool, error)

	// Prune deletes all but the keep most recent backups for path,
	// best-effort, and returns the count actually removed.
	Prune(path string, keep int) (int, error)
}

// DefaultBackupStore implements BackupStore with sibling files named
// <original-name>.backup_<YYYYMMDD_HHMMSS>.
//
// # Limitations
//
//   - Timestamp suffixes are second-resolution; same-second snapshots of
//     one file overwrite each other.
//   - Backups live next to the original and are never removed except by
//     Prune.
type DefaultBackupStore struct{}

// NewBackupStore creates a DefaultBackupStore.
func NewBackupStore() *DefaultBackupStore {
	return &DefaultBackupStore{}
}

// Create copies the full content and mode of path to a sibling backup file.
//
// Returns ErrNotFound if path does not exist.
func (s *DefaultBackupStore) Create(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	backupPath := path + backupSeparator + time.Now().Format(backupTimeFormat)
	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", backupPath, err)
	}
	// WriteFile's perm is subject to the umask; chmod pins the exact bits
	// so Restore can hand them back.
	if err := os.Chmod(backupPath, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("setting backup permissions: %w", err)
	}
	return backupPath, nil
}

// List globs <name>.backup_* in the target's directory, newest first.
func (s *DefaultBackupStore) List(path string) ([]string, error) {
	matches, err := filepath.Glob(path + backupSeparator + "*")
	if err != nil {
		return nil, fmt.Errorf("globbing backups for %s: %w", path, err)
	}

	type stamped struct {
		path    string
		modTime time.Time
	}
	found := make([]stamped, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, stamped{path: m, modTime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.After(found[j].modTime)
	})

	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

// Restore overwrites path with a backup's content and permission bits.
//
// With an empty backupPath the most recently modified backup is used.
// Returns false (and no error) when no usable backup exists.
func (s *DefaultBackupStore) Restore(path, backupPath string) (bool, error) {
	if backupPath == "" {
		backups, err := s.List(path)
		if err != nil {
			return false, err
		}
		if len(backups) == 0 {
			return false, nil
		}
		backupPath = backups[0]
	}

	data, err := os.ReadFile(backupPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading backup %s: %w", backupPath, err)
	}

	if err := atomicWriteFile(path, data, permOf(backupPath)); err != nil {
		return false, fmt.Errorf("restoring %s: %w", path, err)
	}
	return true, nil
}

// Prune deletes all but the keep newest backups for path.
//
// Individual delete failures are skipped; only successful removals count.
func (s *DefaultBackupStore) Prune(path string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	backups, err := s.List(path)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[keep:] {
		if err := os.Remove(b); err != nil {
			continue
		}
		removed++
	}
	return removed, nil
}

// Compile-time interface check
var _ BackupStore = (*DefaultBackupStore)(nil)
