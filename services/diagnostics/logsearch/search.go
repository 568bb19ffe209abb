// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logsearch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Match is one log line that satisfied a search.
type Match struct {
	// File is the log file the line came from.
	File string

	// LineNo is 1-based within the file.
	LineNo int

	// Line is the raw text.
	Line string

	// Entry is the structured form when the line is JSON, nil otherwise.
	Entry *LogEntry
}

// Config controls a Searcher.
type Config struct {
	// Paths are the log files to search. Missing files are skipped.
	Paths []string

	// MaxMatches caps results per search. Default: 1000.
	MaxMatches int

	// MaxLineBytes caps the longest scannable line. Default: 1 MiB.
	MaxLineBytes int
}

// DefaultConfig returns the standard search configuration.
func DefaultConfig(paths ...string) *Config {
	return &Config{
		Paths:        paths,
		MaxMatches:   1000,
		MaxLineBytes: 1 << 20,
	}
}

// Searcher scans diagnostics log files.
//
// # Thread Safety
//
// Searcher is safe for concurrent use; each search opens its own file
// handles.
type Searcher struct {
	config *Config
}

// NewSearcher creates a Searcher. A nil config yields a searcher over no
// files, which matches nothing.
func NewSearcher(config *Config) *Searcher {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxMatches <= 0 {
		config.MaxMatches = 1000
	}
	if config.MaxLineBytes <= 0 {
		config.MaxLineBytes = 1 << 20
	}
	return &Searcher{config: config}
}

// ByCorrelationID returns every line containing the correlation ID.
//
// Files are scanned concurrently; results are ordered by file then line
// number. A short ID prefix (8+ characters) also matches, mirroring the
// short form the middleware prints.
func (s *Searcher) ByCorrelationID(ctx context.Context, correlationID string) ([]Match, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("correlation ID is empty")
	}
	return s.search(ctx, func(line string, entry *LogEntry) bool {
		if entry != nil {
			return strings.HasPrefix(entry.CorrelationID, correlationID)
		}
		return strings.Contains(line, correlationID)
	})
}

// statusPattern matches a standalone 4xx/5xx status code in plain-text
// middleware lines.
var statusPattern = regexp.MustCompile(`(?:^|\s)([45]\d{2})(?:\s|$)`)

// ByStatusClass returns lines for HTTP error responses.
//
// class must be "4xx" or "5xx". Structured lines match on status_code;
// plain-text lines match on a standalone three-digit code.
func (s *Searcher) ByStatusClass(ctx context.Context, class string) ([]Match, error) {
	if class != "4xx" && class != "5xx" {
		return nil, fmt.Errorf("unknown status class %q (want 4xx or 5xx)", class)
	}
	return s.search(ctx, func(line string, entry *LogEntry) bool {
		if entry != nil {
			return entry.StatusClass() == class
		}
		m := statusPattern.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		code, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		return fmt.Sprintf("%dxx", code/100) == class
	})
}

func (s *Searcher) search(ctx context.Context, pred func(string, *LogEntry) bool) ([]Match, error) {
	var (
		mu      sync.Mutex
		matches []Match
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range s.config.Paths {
		path := path
		g.Go(func() error {
			found, err := s.searchFile(ctx, path, pred)
			if err != nil {
				return err
			}
			mu.Lock()
			matches = append(matches, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].File != matches[j].File {
			return matches[i].File < matches[j].File
		}
		return matches[i].LineNo < matches[j].LineNo
	})
	if len(matches) > s.config.MaxMatches {
		matches = matches[:s.config.MaxMatches]
	}
	return matches, nil
}

func (s *Searcher) searchFile(ctx context.Context, path string, pred func(string, *LogEntry) bool) ([]Match, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), s.config.MaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		line := scanner.Text()
		entry := ParseLine(line)
		if pred(line, entry) {
			matches = append(matches, Match{File: path, LineNo: lineNo, Line: line, Entry: entry})
			if len(matches) >= s.config.MaxMatches {
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return matches, nil
}
