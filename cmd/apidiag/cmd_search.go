// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
	"github.com/AleutianAI/apidiag/services/diagnostics/logsearch"
)

var (
	searchFollow bool
	searchErrors string
)

// searchCmd finds log lines for a request.
//
// # Examples
//
//	apidiag search 550e8400-e29b-41d4-a716-446655440000
//	apidiag search 550e8400                # Short prefix works too
//	apidiag search --errors 5xx            # All server errors
//	apidiag search 550e8400 --follow       # Tail for new matches
var searchCmd = &cobra.Command{
	Use:   "search [correlation-id]",
	Short: "Search API logs by correlation ID",
	Long: `Searches the project's API log for a correlation ID.

The ID comes from the browser console (the interceptor prints it for
every fetch call) or from an error response's correlation_id field.
With --errors, searches for a whole class of failing requests instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchFollow, "follow", "f", false,
		"Keep watching the log for new matches")
	searchCmd.Flags().StringVar(&searchErrors, "errors", "",
		"Search by status class instead of ID (4xx or 5xx)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && searchErrors == "" {
		return fmt.Errorf("provide a correlation ID or --errors 4xx|5xx")
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	searcher, err := svc.Searcher()
	if err != nil {
		return err
	}

	var matches []logsearch.Match
	if searchErrors != "" {
		matches, err = searcher.ByStatusClass(cmd.Context(), searchErrors)
	} else {
		matches, err = searcher.ByCorrelationID(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}

	for _, m := range matches {
		printMatch(m)
	}
	if len(matches) == 0 && !searchFollow {
		ux.Muted("no matches")
	}

	if !searchFollow {
		return nil
	}

	logPath, err := svc.LogPath()
	if err != nil {
		return err
	}
	ux.Muted("following " + logPath + " (ctrl-c to stop)")

	pred := func(line string, entry *logsearch.LogEntry) bool {
		if searchErrors != "" {
			if entry != nil {
				return entry.StatusClass() == searchErrors
			}
			return false
		}
		if entry != nil {
			return strings.HasPrefix(entry.CorrelationID, args[0])
		}
		return strings.Contains(line, args[0])
	}
	return logsearch.NewFollower().Follow(cmd.Context(), logPath, pred, printMatch)
}

func printMatch(m logsearch.Match) {
	if m.Entry != nil {
		fmt.Println(m.Entry.Format())
		return
	}
	fmt.Printf("%s:%d: %s\n", m.File, m.LineNo, m.Line)
}
