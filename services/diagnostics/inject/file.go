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
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// File kind hints used for comment prefixes and validator dispatch.
const (
	KindPython     = "python"
	KindJavaScript = "javascript"
	KindTypeScript = "typescript"
	KindGo         = "go"
)

// KindForPath derives a file kind hint from the path's extension.
//
// Returns "" for extensions the injection subsystem has no opinion about;
// such files get the default comment prefix and skip validation.
func KindForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyi":
		return KindPython
	case ".js", ".jsx", ".mjs", ".cjs":
		return KindJavaScript
	case ".ts", ".tsx":
		return KindTypeScript
	case ".go":
		return KindGo
	default:
		return ""
	}
}

// commentPrefixForKind returns the line-comment leader for sentinel lines.
func commentPrefixForKind(kind string) string {
	switch kind {
	case KindJavaScript, KindTypeScript, KindGo:
		return "//"
	default:
		return "#"
	}
}

// readFileText reads path as UTF-8, falling back to Latin-1 when the raw
// bytes are not valid UTF-8. Content written back is always UTF-8.
//
// Returns ErrNotFound when path does not exist.
func readFileText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return string(decoded), nil
}

// permOf returns path's permission bits, or 0644 when stat fails.
//
// Used by mutating writes so an existing target keeps its mode (an
// executable script stays executable after injection and removal).
func permOf(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

// atomicWriteFile writes content to a file atomically using rename.
//
// The file is either fully written or not modified at all, so no partial
// write is ever observable by a subsequent read.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Temp file in the same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
