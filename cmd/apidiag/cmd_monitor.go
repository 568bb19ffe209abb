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
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/apidiag/pkg/ux"
	"github.com/AleutianAI/apidiag/services/diagnostics"
)

// startCmd enables monitoring for an initialized project.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Enable API monitoring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleMonitoring(cmd, true)
	},
}

// stopCmd disables monitoring without removing any injected code.
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Disable API monitoring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleMonitoring(cmd, false)
	},
}

func toggleMonitoring(cmd *cobra.Command, enabled bool) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	was, err := svc.SetEnabled(cmd.Context(), enabled)
	if errors.Is(err, diagnostics.ErrNotInitialized) {
		ux.Error("not initialized, run: apidiag init")
		return err
	}
	if err != nil {
		return err
	}

	switch {
	case enabled && was:
		ux.Muted("monitoring already enabled")
	case enabled:
		ux.Success("monitoring enabled")
	case !enabled && !was:
		ux.Muted("monitoring already disabled")
	default:
		ux.Success("monitoring disabled")
	}
	return nil
}

// statusCmd reports the integration state without modifying anything.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitoring status and injected files",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	status, err := svc.Status(cmd.Context())
	if err != nil {
		return err
	}
	if !status.Initialized {
		ux.Muted("not initialized, run: apidiag init")
		return nil
	}

	ux.Title("API diagnostics status")
	if status.Enabled {
		ux.Success("monitoring enabled")
	} else {
		ux.Warning("monitoring disabled")
	}
	if status.Frameworks.Frontend != "" {
		ux.KeyValue("frontend", status.Frameworks.Frontend)
	}
	if status.Frameworks.Backend != "" {
		ux.KeyValue("backend", status.Frameworks.Backend)
	}
	ux.KeyValue("log level", status.LogLevel)
	if status.LogExists {
		ux.KeyValue("log file", status.LogPath)
	} else {
		ux.KeyValue("log file", status.LogPath+" (not created yet)")
	}

	if len(status.Injected) == 0 {
		ux.Muted("no files currently carry injected wiring")
	}
	for _, f := range status.Injected {
		line := "injected: " + f
		if n := status.Backups[f]; n > 0 {
			line += fmt.Sprintf(" (%s)", pluralBackups(n))
		}
		ux.Info(line)
	}
	return nil
}

func pluralBackups(n int) string {
	if n == 1 {
		return "1 backup"
	}
	return strconv.Itoa(n) + " backups"
}
