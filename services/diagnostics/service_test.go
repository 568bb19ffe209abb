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

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/apidiag/services/diagnostics/detect"
	"github.com/AleutianAI/apidiag/services/diagnostics/inject"
)

const flaskApp = `from flask import Flask

app = Flask(__name__)


@app.route('/users/<int:user_id>')
def get_user(user_id):
    return {"user_id": user_id}
`

func newFlaskProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte(flaskApp), 0644))
	return root
}

func newTestService(t *testing.T, root string) *Service {
	t.Helper()
	svc, err := NewService(&ServiceConfig{Root: root})
	require.NoError(t, err)
	return svc
}

func TestSetup_FlaskProject(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	result, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, detect.FrameworkFlask, result.Project.Backend)
	assert.Equal(t, []string{"app.py"}, result.Injected)
	assert.Empty(t, result.Skipped)

	// Generated middleware lands under the state directory.
	mw, err := os.ReadFile(filepath.Join(GeneratedPath(root), "api_middleware.py"))
	require.NoError(t, err)
	assert.Contains(t, string(mw), "class FlaskAPIDebugger")

	// Entry file carries the wiring inside marker sentinels, at the bottom.
	entry, err := os.ReadFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)
	content := string(entry)
	assert.True(t, strings.HasPrefix(content, "from flask import Flask"))
	assert.Contains(t, content, "# START api_diagnostics_injection - Auto-generated")
	assert.Contains(t, content, "_ApidiagDebugger(app)")

	// Config records the target for later removal.
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "app.py", cfg.Targets.BackendEntry)
	assert.Equal(t, detect.FrameworkFlask, cfg.Frameworks.Backend)
}

func TestSetup_Rerun(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)

	result, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Injected)
	assert.Equal(t, []string{"app.py"}, result.Skipped)

	second, err := os.ReadFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSetup_NoFramework(t *testing.T) {
	root := t.TempDir()
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	assert.True(t, errors.Is(err, detect.ErrNoFramework))
}

func TestSetup_Fullstack(t *testing.T) {
	root := newFlaskProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"dependencies": {"react": "^18.0.0"}}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.js"),
		[]byte("import React from 'react';\n\nconsole.log('app');\n"), 0644))

	svc := newTestService(t, root)
	result, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, detect.TypeFullstack, result.Project.Type)
	assert.Len(t, result.Generated, 2)
	assert.ElementsMatch(t, []string{"app.py", filepath.Join("src", "index.js")}, result.Injected)

	// Frontend wiring imports the generated interceptor relative to src/.
	entry, err := os.ReadFile(filepath.Join(root, "src", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(entry), `import "../.api-diagnostics/generated/api_interceptor.js";`)
	assert.Contains(t, string(entry), "// START api_diagnostics_injection - Auto-generated")
}

func TestRemove_RestoresEntryFile(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	result, err := svc.Remove(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, result.Cleaned)
	assert.False(t, result.Purged)

	entry, err := os.ReadFile(filepath.Join(root, "app.py"))
	require.NoError(t, err)
	assert.False(t, inject.ContainsMarker(string(entry), inject.DefaultMarker))
	assert.Contains(t, string(entry), "def get_user")

	// State directory survives a non-purging remove; monitoring is off.
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Targets.BackendEntry)
}

func TestRemove_Purge(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	result, err := svc.Remove(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, result.Purged)

	_, err = os.Stat(filepath.Join(root, StateDir))
	assert.True(t, os.IsNotExist(err))

	_, err = LoadConfig(root)
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestRemove_NotInitialized(t *testing.T) {
	svc := newTestService(t, t.TempDir())

	_, err := svc.Remove(context.Background(), false)
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestStatus(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Initialized)

	_, err = svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	status, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Initialized)
	assert.True(t, status.Enabled)
	assert.Equal(t, "ERROR", status.LogLevel)
	assert.Equal(t, []string{"app.py"}, status.Injected)
	assert.Equal(t, 1, status.Backups["app.py"])
	assert.False(t, status.LogExists)
}

func TestSetEnabled(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.SetEnabled(context.Background(), false)
	assert.True(t, errors.Is(err, ErrNotInitialized))

	_, err = svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	was, err := svc.SetEnabled(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, was)

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)

	was, err = svc.SetEnabled(context.Background(), true)
	require.NoError(t, err)
	assert.False(t, was)
}

func TestSearcher_FindsMiddlewareOutput(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	id := NewCorrelationID()
	logPath, err := svc.LogPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0755))
	require.NoError(t, os.WriteFile(logPath,
		[]byte(`{"timestamp":"t","correlation_id":"`+id+`","endpoint":"/x","method":"GET","status_code":500}`+"\n"), 0644))

	searcher, err := svc.Searcher()
	require.NoError(t, err)
	matches, err := searcher.ByCorrelationID(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 500, matches[0].Entry.StatusCode)
}

func TestPruneBackups(t *testing.T) {
	root := newFlaskProject(t)
	svc := newTestService(t, root)

	_, err := svc.Setup(context.Background(), nil)
	require.NoError(t, err)

	// Manufacture extra backups with distinct timestamps.
	entry := filepath.Join(root, "app.py")
	for _, ts := range []string{"20240101_000000", "20240102_000000", "20240103_000000"} {
		require.NoError(t, os.WriteFile(entry+".backup_"+ts, []byte(flaskApp), 0644))
	}

	removed, err := svc.PruneBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	backups, err := svc.Backups().List(entry)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestCorrelationIDs(t *testing.T) {
	id := NewCorrelationID()
	assert.True(t, IsCorrelationID(id))
	assert.Len(t, ShortCorrelationID(id), 8)
	assert.False(t, IsCorrelationID("not-a-uuid"))
	assert.Equal(t, "abc", ShortCorrelationID("abc"))
}
