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
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator returns a fixed verdict for every kind it recognizes.
type stubValidator struct {
	verdict bool
	calls   int
}

func (s *stubValidator) IsValid(content []byte, kind string) bool {
	s.calls++
	return s.verdict
}

func newTestInjector(v Validator) *Injector {
	return NewInjector(NewBackupStore(), v)
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestInject_TopHasSentinels(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "print('injected')", PositionTop, Options{})
	require.NoError(t, err)
	assert.True(t, changed)

	content := readBack(t, path)
	assert.True(t, strings.HasPrefix(content, "# START api_diagnostics_injection - Auto-generated\n"))
	assert.Contains(t, content, "print('injected')")
	assert.Contains(t, content, "# END api_diagnostics_injection")
	assert.True(t, strings.HasSuffix(content, "print('app')\n"))
}

func TestInject_Bottom(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "print('injected')", PositionBottom, Options{})
	require.NoError(t, err)
	assert.True(t, changed)

	content := readBack(t, path)
	assert.True(t, strings.HasPrefix(content, "print('app')\n"))
	assert.True(t, strings.HasSuffix(content, "# END api_diagnostics_injection\n"))
}

func TestInject_AfterImports(t *testing.T) {
	original := "import os\nfrom flask import Flask\n\napp = Flask(__name__)\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "monitor = True", PositionAfterImports, Options{})
	require.NoError(t, err)
	assert.True(t, changed)

	content := readBack(t, path)
	importIdx := strings.Index(content, "from flask import Flask")
	startIdx := strings.Index(content, "# START api_diagnostics_injection")
	appIdx := strings.Index(content, "app = Flask(__name__)")
	assert.Less(t, importIdx, startIdx)
	assert.Less(t, startIdx, appIdx)
}

func TestInject_AfterImportsNoImports(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "monitor = True", PositionAfterImports, Options{})
	require.NoError(t, err)
	assert.True(t, changed)

	content := readBack(t, path)
	assert.True(t, strings.HasPrefix(content, "# START api_diagnostics_injection"))
}

func TestInject_JavaScriptCommentPrefix(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.js", "console.log('app');\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "console.log('injected');", PositionTop, Options{})
	require.NoError(t, err)
	assert.True(t, changed)

	content := readBack(t, path)
	assert.True(t, strings.HasPrefix(content, "// START api_diagnostics_injection - Auto-generated\n"))
}

// Second injection with the same marker must leave the file byte-identical.
func TestInject_Idempotent(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "print('injected')", PositionTop, Options{})
	require.NoError(t, err)
	require.True(t, changed)

	afterFirst := readBack(t, path)

	changed, err = inj.Inject(path, "print('injected')", PositionTop, Options{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, afterFirst, readBack(t, path))
}

func TestInject_DuplicateSnippetGuard(t *testing.T) {
	// Snippet already present verbatim, no sentinels anywhere.
	path := writeTestFile(t, t.TempDir(), "app.py", "print('injected')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "print('injected')", PositionTop, Options{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "print('injected')\n", readBack(t, path))
}

func TestInject_SkipExistingCheck(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('injected')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "print('injected')", PositionTop, Options{SkipExistingCheck: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ContainsMarker(readBack(t, path), DefaultMarker))
}

func TestInject_DistinctMarkersCoexist(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	changed, err := inj.Inject(path, "a = 1", PositionTop, Options{Marker: "marker_a"})
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = inj.Inject(path, "b = 2", PositionBottom, Options{Marker: "marker_b"})
	require.NoError(t, err)
	require.True(t, changed)

	content := readBack(t, path)
	assert.True(t, ContainsMarker(content, "marker_a"))
	assert.True(t, ContainsMarker(content, "marker_b"))
}

func TestInject_MissingFile(t *testing.T) {
	inj := newTestInjector(nil)

	_, err := inj.Inject(t.TempDir()+"/nope.py", "x = 1", PositionTop, Options{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInject_InvalidPosition(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	inj := newTestInjector(nil)

	_, err := inj.Inject(path, "x = 1", Position(42), Options{})
	assert.True(t, errors.Is(err, ErrInvalidPosition))
}

// A marker with sentinel-breaking characters must be rejected before
// any file access.
func TestInject_InvalidMarker(t *testing.T) {
	original := "print('app')\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	inj := newTestInjector(nil)

	for _, marker := range []string{"has space", "bad\nmarker", "end # comment"} {
		changed, err := inj.Inject(path, "x = 1", PositionTop, Options{Marker: marker})
		assert.True(t, errors.Is(err, ErrInvalidMarker), "marker %q", marker)
		assert.False(t, changed)
	}
	assert.Equal(t, original, readBack(t, path))
}

// An executable target (shebang script) must keep its mode across
// inject, remove, and restore.
func TestInjectRemove_PreservesExecutableMode(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "#!/usr/bin/env python\nprint('app')\n")
	require.NoError(t, os.Chmod(path, 0755))
	inj := newTestInjector(nil)
	rem := NewRemover(NewBackupStore())

	changed, err := inj.Inject(path, "x = 1", PositionBottom, Options{})
	require.NoError(t, err)
	require.True(t, changed)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	removed, err := rem.Remove(path, Options{})
	require.NoError(t, err)
	require.True(t, removed)
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestRemove_InvalidMarker(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	rem := NewRemover(NewBackupStore())

	_, err := rem.Remove(path, Options{Marker: "bad\nmarker"})
	assert.True(t, errors.Is(err, ErrInvalidMarker))
}

// Validation failure must restore the pre-call content and report no change.
func TestInject_ValidationRollback(t *testing.T) {
	original := "print('app')\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	v := &stubValidator{verdict: false}
	inj := newTestInjector(v)

	changed, err := inj.Inject(path, "def broken(:", PositionTop, Options{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, original, readBack(t, path))

	// The rollback anchor must survive: exactly one snapshot, holding the
	// pre-call content.
	backups, err := NewBackupStore().List(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, original, readBack(t, backups[0]))
}

func TestInject_ValidationPass(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	v := &stubValidator{verdict: true}
	inj := newTestInjector(v)

	changed, err := inj.Inject(path, "x = 1", PositionTop, Options{})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, v.calls)
}

func TestInject_BackupTakenBeforeWrite(t *testing.T) {
	original := "print('app')\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	store := NewBackupStore()
	inj := NewInjector(store, nil)

	changed, err := inj.Inject(path, "x = 1", PositionTop, Options{})
	require.NoError(t, err)
	require.True(t, changed)

	backups, err := store.List(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	backup, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, original, string(backup))
}

// Inject, remove, and compare: top-position round trip restores the file
// byte for byte.
func TestInjectRemove_RoundTrip(t *testing.T) {
	original := "import os\n\nprint('app')\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	store := NewBackupStore()
	inj := NewInjector(store, nil)
	rem := NewRemover(store)

	changed, err := inj.Inject(path, "print('injected')", PositionTop, Options{})
	require.NoError(t, err)
	require.True(t, changed)

	removed, err := rem.Remove(path, Options{})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, original, readBack(t, path))
}

func TestRemove_NoMarker(t *testing.T) {
	original := "print('app')\n"
	path := writeTestFile(t, t.TempDir(), "app.py", original)
	rem := NewRemover(NewBackupStore())

	removed, err := rem.Remove(path, Options{})
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, original, readBack(t, path))
}

func TestRemove_MissingFile(t *testing.T) {
	rem := NewRemover(NewBackupStore())

	removed, err := rem.Remove(t.TempDir()+"/nope.py", Options{})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemove_TakesBackup(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "app.py", "print('app')\n")
	store := NewBackupStore()
	inj := NewInjector(store, nil)
	rem := NewRemover(store)

	_, err := inj.Inject(path, "x = 1", PositionTop, Options{})
	require.NoError(t, err)

	_, err = rem.Remove(path, Options{})
	require.NoError(t, err)

	backups, err := store.List(path)
	require.NoError(t, err)
	// Injection and removal each snapshot; same-second timestamps collapse
	// into one file.
	assert.NotEmpty(t, backups)

	newest, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.True(t, ContainsMarker(string(newest), DefaultMarker))
}

func TestParsePosition(t *testing.T) {
	for name, want := range map[string]Position{
		"top":           PositionTop,
		"bottom":        PositionBottom,
		"after_imports": PositionAfterImports,
	} {
		got, err := ParsePosition(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParsePosition("middle")
	assert.True(t, errors.Is(err, ErrInvalidPosition))
}
