// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package templates holds the code the diagnostics integration generates
// into user projects: middleware for supported backends, a fetch
// interceptor for supported frontends, and the short wiring snippets
// injected into project entry files to load them.
//
// Generated files are written whole into .api-diagnostics/generated/ and
// never injected; only the wiring snippets touch user source.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

// Filenames under the generated directory.
const (
	MiddlewareFile  = "api_middleware.py"
	InterceptorFile = "api_interceptor.js"
)

// ErrUnknownFramework is returned for frameworks with no template.
var ErrUnknownFramework = errors.New("no template for framework")

//go:embed assets/react_interceptor.js
var reactInterceptor string

//go:embed assets/fastapi_middleware.py
var fastapiMiddleware string

//go:embed assets/flask_middleware.py
var flaskMiddleware string

// BackendMiddleware returns the full middleware source for a backend
// framework.
func BackendMiddleware(framework string) (string, error) {
	switch framework {
	case "fastapi":
		return fastapiMiddleware, nil
	case "flask":
		return flaskMiddleware, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFramework, framework)
	}
}

// FrontendInterceptor returns the full interceptor source for a frontend
// framework.
func FrontendInterceptor(framework string) (string, error) {
	switch framework {
	case "react":
		return reactInterceptor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFramework, framework)
	}
}

// BackendWiring returns the snippet injected into the backend entry file
// to load the generated middleware.
//
// generatedDir is the path from the entry file's directory to the
// generated code directory, slash-separated. The snippet assumes an
// `app` object is already defined, so it belongs at the bottom of the
// entry file.
func BackendWiring(framework, generatedDir string) (string, error) {
	generatedDir = strings.TrimSuffix(generatedDir, "/")

	switch framework {
	case "fastapi":
		return fmt.Sprintf(`import sys as _apidiag_sys
from pathlib import Path as _ApidiagPath
_apidiag_sys.path.insert(0, str(_ApidiagPath(__file__).resolve().parent / %q))
from api_middleware import APIDebugMiddleware as _ApidiagMiddleware
app.add_middleware(_ApidiagMiddleware)`, generatedDir), nil
	case "flask":
		return fmt.Sprintf(`import sys as _apidiag_sys
from pathlib import Path as _ApidiagPath
_apidiag_sys.path.insert(0, str(_ApidiagPath(__file__).resolve().parent / %q))
from api_middleware import FlaskAPIDebugger as _ApidiagDebugger
_apidiag_debugger = _ApidiagDebugger(app)`, generatedDir), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFramework, framework)
	}
}

// FrontendWiring returns the snippet injected into the frontend entry
// file to load the generated interceptor.
//
// importPath is the module path from the entry file to the interceptor,
// slash-separated, including the filename.
func FrontendWiring(importPath string) string {
	return fmt.Sprintf("import %q;", importPath)
}
