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
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follower tails a log file and emits matching lines as they are
// appended, for the CLI's live search mode.
//
// # Thread Safety
//
// One Follow call per Follower. The handler runs on the Follow
// goroutine.
type Follower struct {
	// MaxLineBytes caps the longest readable line. Default: 1 MiB.
	MaxLineBytes int
}

// NewFollower creates a Follower with defaults.
func NewFollower() *Follower {
	return &Follower{MaxLineBytes: 1 << 20}
}

// Follow tails path from its current end, calling handler for each new
// line that satisfies pred. A nil pred matches every line.
//
// The file's directory is watched rather than the file itself so
// rotation (rename plus recreate) picks up the new file. Follow blocks
// until ctx is done; ctx cancellation is the normal exit and returns
// nil.
func (f *Follower) Follow(ctx context.Context, path string, pred func(string, *LogEntry) bool, handler func(Match)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	// Start at EOF; a follow shows new lines only.
	offset := int64(0)
	if info, err := os.Stat(path); err == nil {
		offset = info.Size()
	}
	lineNo := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write):
				offset = f.drain(path, offset, &lineNo, pred, handler)
			case event.Op.Has(fsnotify.Create):
				// Rotated: new file, read from the start.
				offset, lineNo = 0, 0
				offset = f.drain(path, offset, &lineNo, pred, handler)
			case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
				offset, lineNo = 0, 0
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// drain reads complete lines from offset to EOF, returning the new
// offset. Read errors leave the offset unchanged so the next event
// retries.
func (f *Follower) drain(path string, offset int64, lineNo *int, pred func(string, *LogEntry) bool, handler func(Match)) int64 {
	file, err := os.Open(path)
	if err != nil {
		return offset
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() < offset {
		// Truncated in place.
		offset = 0
		*lineNo = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// Partial trailing line stays unread until its newline arrives.
			return offset
		}
		offset += int64(len(line))
		*lineNo++

		text := line[:len(line)-1]
		if len(text) > f.MaxLineBytes {
			continue
		}
		entry := ParseLine(text)
		if pred == nil || pred(text, entry) {
			handler(Match{File: path, LineNo: *lineNo, Line: text, Entry: entry})
		}
	}
}
