// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detect identifies the frameworks a project uses so the
// diagnostics integration can pick injection targets automatically.
//
// Detection is heuristic: package.json dependencies for the frontend,
// import fingerprints in Python sources for the backend.
package detect

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Framework names reported by Detect.
const (
	FrameworkReact   = "react"
	FrameworkFastAPI = "fastapi"
	FrameworkFlask   = "flask"
)

// Project type values reported by Detect.
const (
	TypeFrontend  = "frontend"
	TypeBackend   = "backend"
	TypeFullstack = "fullstack"
)

// ErrNoFramework is returned when no supported framework is found.
var ErrNoFramework = errors.New("no supported framework detected")

// ProjectInfo describes what Detect found in a project tree.
type ProjectInfo struct {
	// Type is frontend, backend, or fullstack.
	Type string `json:"type"`

	// Frontend is the detected frontend framework, empty if none.
	Frontend string `json:"frontend,omitempty"`

	// Backend is the detected backend framework, empty if none.
	Backend string `json:"backend,omitempty"`

	// PackageManager is npm when a frontend is present, pip otherwise.
	PackageManager string `json:"package_manager"`

	// FrontendEntry is the best-guess frontend entry file, relative to
	// the project root. Empty when no candidate exists.
	FrontendEntry string `json:"frontend_entry,omitempty"`

	// BackendEntry is the file whose content matched the backend
	// framework fingerprints, relative to the project root.
	BackendEntry string `json:"backend_entry,omitempty"`
}

// Directories never descended into during the backend scan.
var skipDirs = map[string]bool{
	".git":             true,
	"node_modules":     true,
	"venv":             true,
	".venv":            true,
	"env":              true,
	"__pycache__":      true,
	".api-diagnostics": true,
	"dist":             true,
	"build":            true,
}

// Candidate frontend entry files, in preference order.
var frontendEntryCandidates = []string{
	"src/index.js",
	"src/index.jsx",
	"src/index.tsx",
	"src/main.js",
	"src/main.jsx",
	"src/main.tsx",
	"src/App.js",
	"src/App.jsx",
	"src/App.tsx",
}

// reactDeps are the package.json dependency names that indicate React.
var reactDeps = []string{"react", "react-dom", "@types/react"}

// fastapiPatterns and flaskPatterns are content fingerprints. FastAPI is
// checked first per file because its patterns are the more specific.
var (
	fastapiPatterns = []string{
		"from fastapi import",
		"import fastapi",
		"FastAPI()",
		"@app.get",
		"@app.post",
	}
	flaskPatterns = []string{
		"from flask import",
		"import flask",
		"Flask(__name__)",
		"@app.route",
	}
)

// Detect inspects root and reports the frameworks in use.
//
// # Description
//
// The frontend and backend probes run concurrently. Returns
// ErrNoFramework when neither probe matches; I/O problems on individual
// files are skipped, not surfaced.
//
// # Inputs
//
//	ctx - Cancels the backend file walk.
//	root - Project directory to inspect.
//
// # Outputs
//
//	*ProjectInfo - Findings, nil on error.
//	error - ErrNoFramework or a walk-level failure.
func Detect(ctx context.Context, root string) (*ProjectInfo, error) {
	var (
		frontend, frontendEntry string
		backend, backendEntry   string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		frontend, frontendEntry = detectFrontend(root)
		return nil
	})
	g.Go(func() error {
		var err error
		backend, backendEntry, err = detectBackend(ctx, root)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if frontend == "" && backend == "" {
		return nil, ErrNoFramework
	}

	info := &ProjectInfo{
		Frontend:       frontend,
		Backend:        backend,
		FrontendEntry:  frontendEntry,
		BackendEntry:   backendEntry,
		PackageManager: "pip",
	}
	switch {
	case frontend != "" && backend != "":
		info.Type = TypeFullstack
	case frontend != "":
		info.Type = TypeFrontend
	default:
		info.Type = TypeBackend
	}
	if frontend != "" {
		info.PackageManager = "npm"
	}
	return info, nil
}

// detectFrontend checks package.json for React dependencies and probes
// for a conventional entry file.
func detectFrontend(root string) (framework, entry string) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return "", ""
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", ""
	}

	deps := make(map[string]bool, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		deps[name] = true
	}
	for name := range pkg.DevDependencies {
		deps[name] = true
	}

	for _, d := range reactDeps {
		if deps[d] {
			for _, candidate := range frontendEntryCandidates {
				if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
					return FrameworkReact, candidate
				}
			}
			return FrameworkReact, ""
		}
	}
	return "", ""
}

// detectBackend walks root for Python files matching framework
// fingerprints. The first match wins and becomes the backend entry.
func detectBackend(ctx context.Context, root string) (framework, entry string, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !strings.EqualFold(filepath.Ext(path), ".py") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := string(data)

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if containsAny(content, fastapiPatterns) {
			framework, entry = FrameworkFastAPI, rel
			return fs.SkipAll
		}
		if containsAny(content, flaskPatterns) {
			framework, entry = FrameworkFlask, rel
			return fs.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return framework, entry, nil
}

func containsAny(content string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}
