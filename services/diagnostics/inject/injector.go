// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package inject implements safe, reversible code injection into user
// source files: marker-delimited blocks, pre-mutation backups, optional
// syntax validation of the result, and rollback on any failure.
//
// Operations on one target file must be serialized by the caller; the
// package provides no locking.
package inject

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/apidiag/pkg/validation"
)

// Position selects where the wrapped block is inserted.
type Position int

const (
	// PositionTop prepends the block before the first line.
	PositionTop Position = iota

	// PositionBottom appends the block after the last line.
	PositionBottom

	// PositionAfterImports inserts just past the leading import section.
	PositionAfterImports
)

// String returns the wire name of the position.
func (p Position) String() string {
	switch p {
	case PositionTop:
		return "top"
	case PositionBottom:
		return "bottom"
	case PositionAfterImports:
		return "after_imports"
	default:
		return "unknown"
	}
}

// ParsePosition converts a wire name into a Position.
//
// Returns ErrInvalidPosition for anything but top, bottom, after_imports.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "top":
		return PositionTop, nil
	case "bottom":
		return PositionBottom, nil
	case "after_imports":
		return PositionAfterImports, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, s)
	}
}

// Validator checks whether candidate content still parses for a file kind.
//
// Implementations must treat kinds they do not recognize as always valid
// so injection is never blocked for file types outside their registry.
type Validator interface {
	IsValid(content []byte, kind string) bool
}

// Options tunes a single Inject or Remove call.
//
// The zero value selects DefaultMarker, enables the verbatim-duplicate
// check, and derives the file kind from the target's extension.
type Options struct {
	// Marker names the sentinel pair. Default: DefaultMarker.
	Marker string

	// SkipExistingCheck disables the verbatim-duplicate guard that
	// refuses to re-inject a snippet already present under any marker.
	SkipExistingCheck bool

	// Kind overrides extension-based file kind detection for comment
	// prefixes and validator dispatch.
	Kind string
}

func (o Options) marker() string {
	if o.Marker == "" {
		return DefaultMarker
	}
	return o.Marker
}

func (o Options) kind(path string) string {
	if o.Kind != "" {
		return o.Kind
	}
	return KindForPath(path)
}

// Injector performs marker-delimited, validated, reversible insertion.
//
// # Description
//
// Inject orchestrates backup, duplicate check, positional insertion,
// syntax validation, and commit-or-rollback. On any false return or
// error the target file's observable content is unchanged.
//
// # Thread Safety
//
// Injector holds no per-call state and is safe for concurrent use on
// distinct paths. Calls for the same path must be serialized by the
// caller.
type Injector struct {
	backups   BackupStore
	validator Validator
}

// NewInjector creates an Injector.
//
// A nil validator disables syntax validation entirely; a non-nil
// validator is consulted for every injection and must return true for
// kinds it does not recognize.
func NewInjector(backups BackupStore, validator Validator) *Injector {
	return &Injector{backups: backups, validator: validator}
}

// Inject inserts code, wrapped in marker sentinels, into the file at path.
//
// Returns (false, nil) without touching the file when the snippet is
// already present verbatim, or when the marker's start sentinel already
// exists (idempotence: at most one live injection per marker per file).
// Returns (false, nil) after restoring the pre-call content when the
// resulting file fails syntax validation. Any error during the mutating
// window triggers a restore from the snapshot taken in the same call
// before the error is returned.
func (inj *Injector) Inject(path, code string, position Position, opts Options) (bool, error) {
	if position != PositionTop && position != PositionBottom && position != PositionAfterImports {
		return false, fmt.Errorf("%w: %d", ErrInvalidPosition, position)
	}

	marker := opts.marker()
	if err := validation.ValidateMarker(marker); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidMarker, err)
	}

	content, err := readFileText(path)
	if err != nil {
		return false, err
	}

	kind := opts.kind(path)

	if !opts.SkipExistingCheck && strings.Contains(content, code) {
		return false, nil
	}
	if ContainsMarker(content, marker) {
		return false, nil
	}

	block := Wrap(code, marker, commentPrefixForKind(kind))

	var newContent string
	switch position {
	case PositionTop:
		newContent = block + content
	case PositionBottom:
		newContent = content + "\n" + block
	case PositionAfterImports:
		newContent = insertAfterImports(content, block, kind)
	}

	// Rollback anchor, taken unconditionally before any write.
	backupPath, err := inj.backups.Create(path)
	if err != nil {
		return false, err
	}

	if inj.validator != nil && !inj.validator.IsValid([]byte(newContent), kind) {
		if _, restoreErr := inj.backups.Restore(path, backupPath); restoreErr != nil {
			return false, fmt.Errorf("restoring after validation failure: %w", restoreErr)
		}
		return false, nil
	}

	if err := atomicWriteFile(path, []byte(newContent), permOf(path)); err != nil {
		if _, restoreErr := inj.backups.Restore(path, backupPath); restoreErr != nil {
			return false, fmt.Errorf("write failed (%v); restore also failed: %w", err, restoreErr)
		}
		return false, fmt.Errorf("writing %s: %w", path, err)
	}

	return true, nil
}

// insertAfterImports places block just past the leading import section.
//
// The scan is line-textual, not a parse: it advances the insertion index
// past each import-like line, skipping comments and blanks between them,
// and stops at the first substantive non-import line once at least one
// import has been seen. Files without imports get the block at index 0.
// Best-effort placement only; semantic correctness is not guaranteed.
func insertAfterImports(content, block, kind string) string {
	lines := strings.Split(content, "\n")

	insertAt := 0
	seenImport := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		if isImportLine(trimmed, kind) {
			seenImport = true
			insertAt = i + 1
			continue
		}
		if seenImport {
			break
		}
	}

	blockLines := strings.Split(strings.TrimSuffix(block, "\n"), "\n")
	result := make([]string, 0, len(lines)+len(blockLines))
	result = append(result, lines[:insertAt]...)
	result = append(result, blockLines...)
	result = append(result, lines[insertAt:]...)
	return strings.Join(result, "\n")
}

// isImportLine reports whether a trimmed line begins an import declaration
// for the given file kind.
func isImportLine(trimmed, kind string) bool {
	switch kind {
	case KindPython:
		return strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ")
	case KindJavaScript, KindTypeScript:
		return strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "export ") ||
			strings.Contains(trimmed, "require(")
	case KindGo:
		return strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "import(")
	default:
		return strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from ")
	}
}

func isCommentLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*")
}
