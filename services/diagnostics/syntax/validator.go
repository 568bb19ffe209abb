// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package syntax checks whether source content parses, using tree-sitter.
// It backs the injection subsystem's post-edit validation and the CLI's
// standalone check command.
package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Issue is one parse problem with its position in the checked content.
type Issue struct {
	// Line is 1-based.
	Line int

	// Column is 0-based, matching tree-sitter points.
	Column int

	// Message describes the problem.
	Message string

	// Kind is "syntax" for ERROR nodes and "missing" for MISSING nodes.
	Kind string

	// Context holds the offending source fragment when it is short enough
	// to be useful.
	Context string

	// Suggestion is a fix hint for missing delimiters, empty otherwise.
	Suggestion string
}

// Config controls which file kinds are validated and how much malformed
// input is tolerated before the walk gives up.
type Config struct {
	// Kinds lists the file kinds to validate. Content of any other kind
	// is reported valid without parsing. Default: python only, since
	// generated middleware targets Python backends and frontend snippets
	// are left to the project's own tooling.
	Kinds []string

	// MaxIssues caps collected issues on heavily malformed input.
	// Default: 50.
	MaxIssues int

	// MaxDepth caps tree recursion. Default: 1000.
	MaxDepth int
}

// DefaultConfig returns the standard validator configuration.
func DefaultConfig() *Config {
	return &Config{
		Kinds:     []string{"python"},
		MaxIssues: 50,
		MaxDepth:  1000,
	}
}

// Validator parses content with tree-sitter and reports ERROR/MISSING
// nodes as issues.
//
// # Thread Safety
//
// Validator is safe for concurrent use; a fresh parser is created per
// call because tree-sitter parsers are not concurrency-safe.
type Validator struct {
	config *Config
	kinds  map[string]bool
}

// NewValidator creates a Validator.
//
// A nil config selects DefaultConfig. Unknown kind names in the config
// are kept in the registry but never match content, so they are inert.
func NewValidator(config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxIssues <= 0 {
		config.MaxIssues = 50
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = 1000
	}

	kinds := make(map[string]bool, len(config.Kinds))
	for _, k := range config.Kinds {
		kinds[k] = true
	}
	return &Validator{config: config, kinds: kinds}
}

// IsValid reports whether content parses cleanly for the given kind.
//
// Kinds outside the configured registry, and kinds with no grammar, are
// always valid so callers are never blocked on file types this package
// does not cover. Parser-level failures (cancellation) also count as
// valid because no verdict was reached.
func (v *Validator) IsValid(content []byte, kind string) bool {
	if !v.kinds[kind] {
		return true
	}

	issues, err := v.Check(context.Background(), content, kind)
	if err != nil {
		return true
	}
	return len(issues) == 0
}

// Check parses content and returns every ERROR or MISSING node as an
// Issue, capped by the configured MaxIssues.
//
// Kinds with no grammar yield no issues. The error return covers parser
// failure only, which in practice means ctx was cancelled.
func (v *Validator) Check(ctx context.Context, content []byte, kind string) ([]Issue, error) {
	lang := grammarFor(kind)
	if lang == nil {
		return nil, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s content: %w", kind, err)
	}
	defer tree.Close()

	issues := make([]Issue, 0)
	v.collect(tree.RootNode(), content, &issues, 0)
	return issues, nil
}

// Kinds returns the configured kind registry, for status output.
func (v *Validator) Kinds() []string {
	out := make([]string, 0, len(v.kinds))
	for k := range v.kinds {
		out = append(out, k)
	}
	return out
}

// grammarFor maps a file kind to its tree-sitter grammar.
func grammarFor(kind string) *sitter.Language {
	switch kind {
	case "python":
		return python.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "go":
		return golang.GetLanguage()
	default:
		return nil
	}
}

func (v *Validator) collect(node *sitter.Node, content []byte, issues *[]Issue, depth int) {
	// Depth cap prevents stack overflow on pathologically nested trees.
	if depth > v.config.MaxDepth || len(*issues) >= v.config.MaxIssues {
		return
	}

	if node.IsError() || node.IsMissing() {
		point := node.StartPoint()
		start := node.StartByte()
		end := node.EndByte()
		if end > uint32(len(content)) {
			end = uint32(len(content))
		}

		contextStr := ""
		if end > start && end-start < 100 {
			contextStr = string(content[start:end])
		}

		kind := "syntax"
		msg := "syntax error"
		if node.IsMissing() {
			kind = "missing"
			msg = fmt.Sprintf("missing %s", node.Type())
		} else if contextStr != "" {
			msg = fmt.Sprintf("unexpected: %s", truncate(contextStr, 50))
		}

		*issues = append(*issues, Issue{
			Line:       int(point.Row) + 1,
			Column:     int(point.Column),
			Message:    msg,
			Kind:       kind,
			Context:    contextStr,
			Suggestion: suggestionFor(node),
		})
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		v.collect(node.Child(i), content, issues, depth+1)
	}
}

// suggestionFor returns a fix hint for missing delimiter nodes.
func suggestionFor(node *sitter.Node) string {
	if !node.IsMissing() {
		return ""
	}
	switch t := node.Type(); t {
	case "}", "]", ")":
		return fmt.Sprintf("add missing closing '%s'", t)
	case "{", "[", "(":
		return fmt.Sprintf("add missing opening '%s'", t)
	case ";":
		return "add missing semicolon"
	case ":":
		return "add missing colon"
	default:
		return fmt.Sprintf("add missing '%s'", t)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FormatIssues renders issues one per line for terminal output.
func FormatIssues(issues []Issue) string {
	var sb strings.Builder
	for _, iss := range issues {
		fmt.Fprintf(&sb, "line %d, col %d: %s", iss.Line, iss.Column, iss.Message)
		if iss.Suggestion != "" {
			fmt.Fprintf(&sb, " (%s)", iss.Suggestion)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
